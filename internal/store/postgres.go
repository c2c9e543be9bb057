package store

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/prodsheet/internal/db"
	"github.com/sells-group/prodsheet/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}

	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS production_items (
	id              UUID PRIMARY KEY,
	order_number    TEXT NOT NULL,
	style           TEXT NOT NULL,
	fabric          TEXT NOT NULL,
	color           TEXT NOT NULL,
	quantity        INTEGER NOT NULL CHECK (quantity >= 0),
	status          TEXT NOT NULL,
	dates           JSONB NOT NULL,
	supplier        TEXT,
	required_weight DOUBLE PRECISION,
	source_file     TEXT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_items_order_color ON production_items(order_number, color);
CREATE INDEX IF NOT EXISTS idx_items_order_number ON production_items(order_number);
CREATE INDEX IF NOT EXISTS idx_items_status ON production_items(status);
CREATE INDEX IF NOT EXISTS idx_items_created_at ON production_items(created_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// itemColumns matches the $1..$n order used by upsertSQL.
var itemColumns = []string{
	"id", "order_number", "style", "fabric", "color", "quantity", "status",
	"dates", "supplier", "required_weight", "source_file", "created_at", "updated_at",
}

var upsertSQL = db.BuildUpsertSQL(db.UpsertConfig{
	Table:        "production_items",
	Columns:      itemColumns,
	ConflictKeys: []string{"order_number", "color"},
	// id and created_at survive replacement; everything else is content.
	UpdateCols: []string{
		"style", "fabric", "quantity", "status", "dates",
		"supplier", "required_weight", "source_file", "updated_at",
	},
})

func (s *PostgresStore) Upsert(ctx context.Context, items []model.ProductionItem) (*UpsertReport, error) {
	report := &UpsertReport{}
	now := time.Now().UTC()

	for _, item := range items {
		datesJSON, err := json.Marshal(item.Dates)
		if err != nil {
			report.recordFailure(item, err)
			continue
		}

		tag, err := s.pool.Exec(ctx, upsertSQL,
			uuid.New().String(),
			item.OrderNumber,
			item.Style,
			item.Fabric,
			item.Color,
			item.Quantity,
			string(item.Status),
			datesJSON,
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

		if tag.RowsAffected() == 0 {
			report.Skipped++
			continue
		}
		report.Stored++
	}

	return report, nil
}

func (s *PostgresStore) Query(ctx context.Context, f Filter) ([]model.ProductionItem, error) {
	f = clampFilter(f)
	where, args := postgresWhere(f)

	query := `SELECT id, order_number, style, fabric, color, quantity, status, dates, supplier, required_weight, source_file, created_at, updated_at
		FROM production_items` + where +
		` ORDER BY created_at DESC LIMIT ` + placeholder(len(args)+1) + ` OFFSET ` + placeholder(len(args)+2)
	args = append(args, f.Limit, f.Skip)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query items")
	}
	defer rows.Close()

	var items []model.ProductionItem
	for rows.Next() {
		item, err := scanPostgresItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, eris.Wrap(rows.Err(), "postgres: query items iterate")
}

func (s *PostgresStore) Count(ctx context.Context, f Filter) (int, error) {
	where, args := postgresWhere(f)

	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM production_items`+where, args...).Scan(&count)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: count items")
	}
	return count, nil
}

func (s *PostgresStore) StatusCounts(ctx context.Context) (map[model.Status]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM production_items GROUP BY status ORDER BY status`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: status counts")
	}
	defer rows.Close()

	counts := make(map[model.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan status count")
		}
		counts[model.Status(status)] = n
	}
	return counts, eris.Wrap(rows.Err(), "postgres: status counts iterate")
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (*model.ProductionItem, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	row := s.pool.QueryRow(ctx,
		`SELECT id, order_number, style, fabric, color, quantity, status, dates, supplier, required_weight, source_file, created_at, updated_at
		FROM production_items WHERE id = $1`, id,
	)
	item, err := scanPostgresItem(row)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return item, nil
}

func (s *PostgresStore) DeleteByID(ctx context.Context, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM production_items WHERE id = $1`, id)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: delete item %s", id)
	}
	return tag.RowsAffected() > 0, nil
}

func postgresWhere(f Filter) (string, []any) {
	clauses := []string{"1=1"}
	var args []any

	if f.Style != "" {
		args = append(args, "%"+f.Style+"%")
		clauses = append(clauses, "style ILIKE "+placeholder(len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		clauses = append(clauses, "status = "+placeholder(len(args)))
	}
	if f.OrderNumber != "" {
		args = append(args, "%"+f.OrderNumber+"%")
		clauses = append(clauses, "order_number ILIKE "+placeholder(len(args)))
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

func scanPostgresItem(row pgx.Row) (*model.ProductionItem, error) {
	var item model.ProductionItem
	var status string
	var datesJSON []byte
	var supplier *string
	var weight *float64

	err := row.Scan(
		&item.ID, &item.OrderNumber, &item.Style, &item.Fabric, &item.Color,
		&item.Quantity, &status, &datesJSON, &supplier, &weight,
		&item.SourceFile, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, eris.Wrap(err, "postgres: scan item")
	}

	item.Status = model.Status(status)
	if err := json.Unmarshal(datesJSON, &item.Dates); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal dates")
	}
	if supplier != nil {
		item.Supplier = *supplier
	}
	item.RequiredWeight = weight
	return &item, nil
}
