package repository

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
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpattn/flowlib/internal/domain"
)

const uniqueViolation = "23505"

// recordRepository implements RecordStore on top of one Postgres table.
type recordRepository struct {
	pool  *pgxpool.Pool
	table Table
}

// NewRecordRepository creates a pgx backed store for table.
func NewRecordRepository(pool *pgxpool.Pool, table Table) RecordStore {
	return &recordRepository{pool: pool, table: table}
}

// PostgresStores returns a StoreFactory bound to pool.
func PostgresStores(pool *pgxpool.Pool) StoreFactory {
	return func(table Table) RecordStore {
		return NewRecordRepository(pool, table)
	}
}

func (r *recordRepository) Exists(ctx context.Context, identifier string) (bool, error) {
	query := fmt.Sprintf(
		"SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1)",
		quoteIdent(r.table.Name), quoteIdent(r.table.KeyColumn),
	)
	var exists bool
	if err := r.pool.QueryRow(ctx, query, identifier).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to look up %s %q: %w", r.table.Kind, identifier, err)
	}
	return exists, nil
}

func (r *recordRepository) Get(ctx context.Context, identifier string) (domain.Record, error) {
	query := fmt.Sprintf("%s WHERE %s = $1", r.selectClause(), quoteIdent(r.table.KeyColumn))
	rows, err := r.pool.Query(ctx, query, identifier)
	if err != nil {
		return domain.Record{}, fmt.Errorf("failed to get %s %q: %w", r.table.Kind, identifier, err)
	}
	records, err := r.collect(rows)
	if err != nil {
		return domain.Record{}, err
	}
	if len(records) == 0 {
		return domain.Record{}, fmt.Errorf("%s %q: %w", r.table.Kind, identifier, ErrNotFound)
	}
	return records[0], nil
}

func (r *recordRepository) Insert(ctx context.Context, record domain.Record) (domain.Record, error) {
	columns := []string{"id", r.table.KeyColumn}
	args := []any{record.ID, record.Identifier}
	for _, column := range r.table.Columns {
		value, ok := record.Fields[column]
		if !ok {
			continue
		}
		columns = append(columns, column)
		args = append(args, value)
	}

	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, column := range columns {
		quoted[i] = quoteIdent(column)
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) RETURNING created_at, updated_at",
		quoteIdent(r.table.Name), strings.Join(quoted, ", "), strings.Join(placeholders, ", "),
	)

	var createdAt, updatedAt time.Time
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&createdAt, &updatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.Record{}, fmt.Errorf("%s %q: %w", r.table.Kind, record.Identifier, ErrAlreadyExists)
		}
		return domain.Record{}, fmt.Errorf("failed to insert %s %q: %w", r.table.Kind, record.Identifier, err)
	}

	record.Kind = r.table.Kind
	record.CreatedAt = createdAt
	record.UpdatedAt = updatedAt
	return record, nil
}

func (r *recordRepository) Update(ctx context.Context, identifier string, fields map[string]any) (domain.Record, error) {
	assignments := []string{"updated_at = now()"}
	args := []any{}
	for _, column := range r.table.Columns {
		value, ok := fields[column]
		if !ok {
			continue
		}
		args = append(args, value)
		assignments = append(assignments, fmt.Sprintf("%s = $%d", quoteIdent(column), len(args)))
	}
	args = append(args, identifier)

	query := fmt.Sprintf(
		"UPDATE %s SET %s WHERE %s = $%d",
		quoteIdent(r.table.Name), strings.Join(assignments, ", "), quoteIdent(r.table.KeyColumn), len(args),
	)

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return domain.Record{}, fmt.Errorf("failed to update %s %q: %w", r.table.Kind, identifier, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Record{}, fmt.Errorf("%s %q: %w", r.table.Kind, identifier, ErrNotFound)
	}

	return r.Get(ctx, identifier)
}

func (r *recordRepository) Delete(ctx context.Context, identifier string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", quoteIdent(r.table.Name), quoteIdent(r.table.KeyColumn))
	tag, err := r.pool.Exec(ctx, query, identifier)
	if err != nil {
		return fmt.Errorf("failed to delete %s %q: %w", r.table.Kind, identifier, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %q: %w", r.table.Kind, identifier, ErrNotFound)
	}
	return nil
}

func (r *recordRepository) List(ctx context.Context, limit int, offset int) ([]domain.Record, error) {
	limit, offset = normalizePage(limit, offset)
	query := fmt.Sprintf("%s ORDER BY %s LIMIT $1 OFFSET $2", r.selectClause(), quoteIdent(r.table.KeyColumn))
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", r.table.Kind, err)
	}
	return r.collect(rows)
}

func (r *recordRepository) selectClause() string {
	columns := []string{"id", quoteIdent(r.table.KeyColumn)}
	for _, column := range r.table.Columns {
		columns = append(columns, quoteIdent(column))
	}
	columns = append(columns, "created_at", "updated_at")
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(columns, ", "), quoteIdent(r.table.Name))
}

func (r *recordRepository) collect(rows pgx.Rows) ([]domain.Record, error) {
	defer rows.Close()

	records := []domain.Record{}
	for rows.Next() {
		var (
			id         uuid.UUID
			identifier string
			createdAt  pgtype.Timestamptz
			updatedAt  pgtype.Timestamptz
		)
		values := make([]any, len(r.table.Columns))
		dest := []any{&id, &identifier}
		for i := range values {
			dest = append(dest, &values[i])
		}
		dest = append(dest, &createdAt, &updatedAt)

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", r.table.Kind, err)
		}

		fields := make(map[string]any, len(values))
		for i, column := range r.table.Columns {
			fields[column] = normalizeScanned(values[i])
		}

		record := domain.Record{
			ID:         id,
			Kind:       r.table.Kind,
			Identifier: identifier,
			Fields:     fields,
		}
		if createdAt.Valid {
			record.CreatedAt = createdAt.Time
		}
		if updatedAt.Valid {
			record.UpdatedAt = updatedAt.Time
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s rows: %w", r.table.Kind, err)
	}
	return records, nil
}

// normalizeScanned maps pgx's generic decodings onto the value set used by domain.Record.
func normalizeScanned(value any) any {
	switch v := value.(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case int32:
		return int64(v)
	case int16:
		return int64(v)
	case float32:
		return float64(v)
	default:
		return v
	}
}

func quoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}
