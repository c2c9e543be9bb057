package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sells-group/prodsheet/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS production_items (
	id              TEXT PRIMARY KEY,
	order_number    TEXT NOT NULL,
	style           TEXT NOT NULL,
	fabric          TEXT NOT NULL,
	color           TEXT NOT NULL,
	quantity        INTEGER NOT NULL CHECK (quantity >= 0),
	status          TEXT NOT NULL,
	dates           TEXT NOT NULL,
	supplier        TEXT,
	required_weight REAL,
	source_file     TEXT NOT NULL,
	created_at      DATETIME NOT NULL,
	updated_at      DATETIME NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_items_order_color ON production_items(order_number, color);
CREATE INDEX IF NOT EXISTS idx_items_order_number ON production_items(order_number);
CREATE INDEX IF NOT EXISTS idx_items_status ON production_items(status);
CREATE INDEX IF NOT EXISTS idx_items_created_at ON production_items(created_at DESC);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteUpsert = `
INSERT INTO production_items
	(id, order_number, style, fabric, color, quantity, status, dates, supplier, required_weight, source_file, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (order_number, color) DO UPDATE SET
	style = excluded.style,
	fabric = excluded.fabric,
	quantity = excluded.quantity,
	status = excluded.status,
	dates = excluded.dates,
	supplier = excluded.supplier,
	required_weight = excluded.required_weight,
	source_file = excluded.source_file,
	updated_at = excluded.updated_at
`

func (s *SQLiteStore) Upsert(ctx context.Context, items []model.ProductionItem) (*UpsertReport, error) {
	report := &UpsertReport{}
	now := time.Now().UTC()

	for _, item := range items {
		datesJSON, err := json.Marshal(item.Dates)
		if err != nil {
			report.recordFailure(item, err)
			continue
		}

		res, err := s.db.ExecContext(ctx, sqliteUpsert,
			uuid.New().String(),
			item.OrderNumber,
			item.Style,
			item.Fabric,
			item.Color,
			item.Quantity,
			string(item.Status),
			string(datesJSON),
			nullString(item.Supplier),
			item.RequiredWeight,
			item.SourceFile,
			item.CreatedAt.UTC(),
			now,
		)
		if err != nil {
			report.recordFailure(item, err)
			continue
		}

		affected, err := res.RowsAffected()
		if err == nil && affected == 0 {
			report.Skipped++
			continue
		}
		report.Stored++
	}

	return report, nil
}

func (s *SQLiteStore) Query(ctx context.Context, f Filter) ([]model.ProductionItem, error) {
	f = clampFilter(f)
	where, args := sqliteWhere(f)

	query := `SELECT id, order_number, style, fabric, color, quantity, status, dates, supplier, required_weight, source_file, created_at, updated_at
		FROM production_items` + where + ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, f.Limit, f.Skip)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query items")
	}
	defer rows.Close()

	var items []model.ProductionItem
	for rows.Next() {
		item, err := scanSQLiteItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, eris.Wrap(rows.Err(), "sqlite: query items iterate")
}

func (s *SQLiteStore) Count(ctx context.Context, f Filter) (int, error) {
	where, args := sqliteWhere(f)

	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM production_items`+where, args...).Scan(&count)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: count items")
	}
	return count, nil
}

func (s *SQLiteStore) StatusCounts(ctx context.Context) (map[model.Status]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM production_items GROUP BY status ORDER BY status`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: status counts")
	}
	defer rows.Close()

	counts := make(map[model.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan status count")
		}
		counts[model.Status(status)] = n
	}
	return counts, eris.Wrap(rows.Err(), "sqlite: status counts iterate")
}

func (s *SQLiteStore) GetByID(ctx context.Context, id string) (*model.ProductionItem, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, order_number, style, fabric, color, quantity, status, dates, supplier, required_weight, source_file, created_at, updated_at
		FROM production_items WHERE id = ?`, id,
	)
	item, err := scanSQLiteItem(row)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return item, nil
}

func (s *SQLiteStore) DeleteByID(ctx context.Context, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM production_items WHERE id = ?`, id)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: delete item %s", id)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: delete rows affected")
	}
	return affected > 0, nil
}

// sqliteWhere builds the WHERE clause shared by Query and Count so that
// counts stay invariant to pagination.
func sqliteWhere(f Filter) (string, []any) {
	clauses := []string{"1=1"}
	var args []any

	if f.Style != "" {
		clauses = append(clauses, "LOWER(style) LIKE ?")
		args = append(args, "%"+strings.ToLower(f.Style)+"%")
	}
	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.OrderNumber != "" {
		clauses = append(clauses, "LOWER(order_number) LIKE ?")
		args = append(args, "%"+strings.ToLower(f.OrderNumber)+"%")
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteItem(row rowScanner) (*model.ProductionItem, error) {
	var item model.ProductionItem
	var status, datesJSON string
	var supplier sql.NullString
	var weight sql.NullFloat64

	err := row.Scan(
		&item.ID, &item.OrderNumber, &item.Style, &item.Fabric, &item.Color,
		&item.Quantity, &status, &datesJSON, &supplier, &weight,
		&item.SourceFile, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, eris.Wrap(err, "sqlite: scan item")
	}

	item.Status = model.Status(status)
	if err := json.Unmarshal([]byte(datesJSON), &item.Dates); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal dates")
	}
	if supplier.Valid {
		item.Supplier = supplier.String
	}
	if weight.Valid {
		item.RequiredWeight = &weight.Float64
	}
	return &item, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (r *UpsertReport) recordFailure(item model.ProductionItem, err error) {
	zap.L().Warn("store: upsert failed for item",
		zap.String("order_number", item.OrderNumber),
		zap.String("color", item.Color),
		zap.Error(err),
	)
	r.Failed++
	r.Errors = append(r.Errors, RecordError{
		OrderNumber: item.OrderNumber,
		Color:       item.Color,
		Reason:      err.Error(),
	})
}
