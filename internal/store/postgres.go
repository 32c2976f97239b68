package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/marketlens/ingest/internal/schema"
)

// DBTX is the subset of pgx operations the store needs.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// Pinger is implemented by *pgxpool.Pool.
type Pinger interface {
	Ping(context.Context) error
}

// uniqueViolation is the PostgreSQL error code for unique constraint
// violations.
const uniqueViolation = "23505"

// tableFor maps entity kinds to their tables and identifier columns.
var tableFor = map[schema.Kind]struct {
	name     string
	idColumn string
}{
	schema.KindCustomers:   {name: "customers", idColumn: "customer_id"},
	schema.KindPurchases:   {name: "purchases"},
	schema.KindCampaigns:   {name: "campaigns", idColumn: "campaign_id"},
	schema.KindPerformance: {name: "campaign_performance"},
}

// Postgres is the pgx-backed Store. Insert statements are derived from the
// schema registry so the SQL can never disagree with the templates.
type Postgres struct {
	db DBTX
}

// NewPostgres creates a Store over db (normally a *pgxpool.Pool).
func NewPostgres(db DBTX) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Create(ctx context.Context, rec *Record) error {
	tbl, ok := tableFor[rec.Kind]
	if !ok {
		return fmt.Errorf("no table for kind %s", rec.Kind)
	}
	tmpl, ok := schema.Get(rec.Kind)
	if !ok {
		return fmt.Errorf("no template for kind %s", rec.Kind)
	}

	cols := tmpl.Columns()
	names := make([]string, 0, len(cols)+2)
	holders := make([]string, 0, len(cols)+2)
	args := make([]any, 0, len(cols)+2)
	for _, col := range cols {
		names = append(names, quoteIdent(col))
		holders = append(holders, fmt.Sprintf("$%d", len(args)+1))
		args = append(args, pgValue(rec.Fields[col]))
	}
	names = append(names, "batch_id", "imported_by")
	holders = append(holders, fmt.Sprintf("$%d", len(args)+1), fmt.Sprintf("$%d", len(args)+2))
	args = append(args, toPgUUID(rec.BatchID), toPgText(rec.ImportedBy))

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(tbl.name), strings.Join(names, ", "), strings.Join(holders, ", "))

	if _, err := p.db.Exec(ctx, sql, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%s %q: %w", rec.Kind, rec.ID, ErrDuplicate)
		}
		return fmt.Errorf("insert %s: %w", tbl.name, err)
	}
	return nil
}

func (p *Postgres) Exists(ctx context.Context, kind schema.Kind, id string) (bool, error) {
	tbl, ok := tableFor[kind]
	if !ok || tbl.idColumn == "" {
		return false, fmt.Errorf("kind %s has no identifier column", kind)
	}

	sql := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1)",
		quoteIdent(tbl.name), quoteIdent(tbl.idColumn))

	var exists bool
	if err := p.db.QueryRow(ctx, sql, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("lookup %s %q: %w", kind, id, err)
	}
	return exists, nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	if pinger, ok := p.db.(Pinger); ok {
		return pinger.Ping(ctx)
	}
	_, err := p.db.Exec(ctx, "SELECT 1")
	return err
}

// pgValue converts a validated field value to its pgtype representation.
func pgValue(v any) any {
	switch val := v.(type) {
	case string:
		return toPgText(val)
	case int64:
		return pgtype.Int8{Int64: val, Valid: true}
	case float64:
		return pgtype.Float8{Float64: val, Valid: true}
	case time.Time:
		return pgtype.Date{Time: val, Valid: true}
	case nil:
		return nil
	default:
		return v
	}
}

func toPgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

func toPgUUID(s string) pgtype.UUID {
	parsed, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{Valid: false}
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}
}

// quoteIdent quotes a SQL identifier. Identifiers here come from the static
// schema registry, never from user input.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
