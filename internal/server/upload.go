package server

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/prodsheet/internal/extract"
	"github.com/sells-group/prodsheet/internal/sheet"
)

// handleUpload accepts a multipart spreadsheet, runs the ingestion pipeline
// and upserts the result. The uploaded bytes live in a temp file that is
// removed on every exit path.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxBytes := s.upload.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 16 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing or oversized file field")
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".xlsx" && ext != ".xls" {
		writeError(w, http.StatusBadRequest, "invalid file type %q, expected .xlsx or .xls", ext)
		return
	}

	tmp, err := os.CreateTemp(s.upload.TempDir, "upload-*"+ext)
	if err != nil {
		zap.L().Error("server: create temp file", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		zap.L().Error("server: write temp file", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := tmp.Close(); err != nil {
		zap.L().Error("server: close temp file", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	items, err := s.parser.Parse(r.Context(), tmpPath, filename)
	if err != nil {
		switch {
		case sheet.IsReadError(err):
			writeError(w, http.StatusBadRequest, "could not read spreadsheet: %v", err)
		case extract.IsValidation(err):
			writeError(w, http.StatusUnprocessableEntity, "extraction failed: %v", err)
		default:
			zap.L().Error("server: parse upload",
				zap.String("file", filename),
				zap.Error(err),
			)
			writeError(w, http.StatusInternalServerError, "internal error during parsing")
		}
		return
	}

	report, err := s.store.Upsert(r.Context(), items)
	if err != nil {
		zap.L().Error("server: upsert batch", zap.String("file", filename), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error during storage")
		return
	}

	zap.L().Info("server: upload processed",
		zap.String("file", filename),
		zap.Int("extracted", len(items)),
		zap.Int("stored", report.Stored),
		zap.Int("failed", report.Failed),
	)

	writeJSON(w, http.StatusOK, map[string]any{
		"filename":        filename,
		"items_extracted": len(items),
		"items_stored":    report.Stored,
		"report":          report,
	})
}
