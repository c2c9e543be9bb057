// Package sheet reads production planning spreadsheets into a tabular grid,
// tolerating unknown header placement and merged-cell artifacts.
package sheet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
)

// minHeaderColumns is the number of non-empty header cells a candidate row
// must exceed to be accepted as the header.
const minHeaderColumns = 5

// ReadError marks a file that could not be opened or decoded. Everything
// else the reader tolerates.
type ReadError struct {
	err error
}

func (e *ReadError) Error() string { return e.err.Error() }
func (e *ReadError) Unwrap() error { return e.err }

// IsReadError reports whether err has a ReadError in its chain.
func IsReadError(err error) bool {
	var re *ReadError
	return errors.As(err, &re)
}

// headerCandidates are the row offsets tried as the header row, in order.
var headerCandidates = []int{0, 1, 2}

// Grid is the first sheet of a workbook as strings. Header may be empty when
// no plausible header row was found; Rows then keep positional columns and
// field inference is left to the extraction step.
type Grid struct {
	Header []string
	Rows   [][]string
}

// ReadGrid loads the first sheet of an .xlsx/.xls file. It tries rows 0, 1
// and 2 as the header, accepts the first with more than minHeaderColumns
// non-empty cells, forward-fills blanks left by merged ranges and drops
// fully empty rows. When no candidate qualifies it falls back to a
// headerless grid rather than failing; the only error case is a file that
// cannot be opened or decoded.
func ReadGrid(path string) (*Grid, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, &ReadError{err: eris.Wrap(err, "sheet: open file")}
	}
	if len(f.Sheets) == 0 {
		return nil, &ReadError{err: eris.New("sheet: workbook has no sheets")}
	}

	raw := sheetToStrings(f.Sheets[0])

	for _, headerRow := range headerCandidates {
		if headerRow >= len(raw) {
			break
		}
		header := raw[headerRow]
		if countNonEmpty(header) > minHeaderColumns {
			rows := forwardFill(raw[headerRow+1:])
			rows = dropEmptyRows(rows)
			zap.L().Info("sheet: header detected",
				zap.Int("header_row", headerRow),
				zap.Int("columns", countNonEmpty(header)),
				zap.Int("rows", len(rows)),
			)
			return &Grid{Header: header, Rows: rows}, nil
		}
	}

	// Last line of defense: hand the whole sheet to the extraction step with
	// positional columns and let it infer the fields.
	zap.L().Warn("sheet: no header row found, using headerless grid", zap.String("path", path))
	rows := dropEmptyRows(forwardFill(raw))
	return &Grid{Rows: rows}, nil
}

// CSV serializes the grid as compact row-oriented CSV for the extraction
// payload. A headerless grid gets positional column names (col_0, col_1, ...)
// so every payload is self-describing.
func (g *Grid) CSV() string {
	var b strings.Builder

	header := g.Header
	if len(header) == 0 {
		width := 0
		for _, row := range g.Rows {
			if len(row) > width {
				width = len(row)
			}
		}
		header = make([]string, width)
		for i := range header {
			header[i] = fmt.Sprintf("col_%d", i)
		}
	}

	writeCSVRow(&b, header)
	for _, row := range g.Rows {
		writeCSVRow(&b, row)
	}
	return b.String()
}

func writeCSVRow(b *strings.Builder, cells []string) {
	for i, c := range cells {
		if i > 0 {
			b.WriteByte(',')
		}
		if strings.ContainsAny(c, ",\"\n") {
			b.WriteByte('"')
			b.WriteString(strings.ReplaceAll(c, `"`, `""`))
			b.WriteByte('"')
		} else {
			b.WriteString(c)
		}
	}
	b.WriteByte('\n')
}

func sheetToStrings(sheet *xlsx.Sheet) [][]string {
	rows := make([][]string, len(sheet.Rows))
	for i, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = strings.TrimSpace(cell.String())
		}
		rows[i] = cells
	}
	return rows
}

// forwardFill makes every blank cell inherit the nearest non-blank value
// above it in the same column. This recovers values a merged range renders
// only once, e.g. a style printed for the first of several color rows.
func forwardFill(rows [][]string) [][]string {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	out := make([][]string, len(rows))
	last := make([]string, width)
	for i, row := range rows {
		filled := make([]string, width)
		for j := 0; j < width; j++ {
			v := ""
			if j < len(row) {
				v = row[j]
			}
			if v == "" {
				v = last[j]
			} else {
				last[j] = v
			}
			filled[j] = v
		}
		out[i] = filled
	}
	return out
}

func dropEmptyRows(rows [][]string) [][]string {
	var out [][]string
	for _, row := range rows {
		if countNonEmpty(row) > 0 {
			out = append(out, row)
		}
	}
	return out
}

func countNonEmpty(cells []string) int {
	n := 0
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			n++
		}
	}
	return n
}
