package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/shopcore/shopcore/internal/entity"
)

// ListOptions controls list and count queries. SelectedColumn narrows the
// free-text search to one column; empty means every column. Limit <= 0 means
// no pagination.
type ListOptions struct {
	SearchString   string
	SelectedColumn string
	Skip           int
	Limit          int
	IncludeDeleted bool
}

// Insert creates a row for d from rec, generating the primary key and
// created_at when absent, and returns the materialized row as stored.
func (r *Repository) Insert(ctx context.Context, d *entity.Descriptor, rec Record) (Record, error) {
	row := make(Record, len(rec)+2)
	for k, v := range rec {
		row[k] = v
	}
	pk := d.PrimaryKey()
	if v, ok := row[pk]; !ok || v == "" || v == nil {
		row[pk] = uuid.New().String()
	}
	if _, ok := row["created_at"]; !ok {
		row["created_at"] = time.Now().UTC()
	}
	if _, ok := row["attributes"]; !ok {
		row["attributes"] = map[string]any{}
	}

	columns := make([]string, 0, len(row))
	placeholders := make([]string, 0, len(row))
	args := make([]any, 0, len(row))
	// Walk declared columns so statement shape is deterministic.
	for _, name := range d.ColumnNames() {
		value, ok := row[name]
		if !ok {
			continue
		}
		columns = append(columns, quoteIdent(name))
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)+1))
		args = append(args, value)
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		quoteIdent(d.Table),
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to insert %s: %w", d.Name, err)
	}
	stored, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("failed to insert %s: %w", d.Name, err)
	}
	return stored, nil
}

// GetByID fetches one row by primary key. Soft-deleted rows are excluded
// unless includeDeleted is set.
func (r *Repository) GetByID(ctx context.Context, d *entity.Descriptor, id string, includeDeleted bool) (Record, error) {
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = $1", quoteIdent(d.Table), quoteIdent(d.PrimaryKey()))
	if !includeDeleted {
		query += " AND deleted_by IS NULL"
	}

	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s by ID: %w", d.Name, err)
	}
	rec, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s by ID: %w", d.Name, err)
	}
	return rec, nil
}

// List fetches rows for d ordered by creation time descending, applying the
// soft-delete filter, optional search predicates, and pagination.
func (r *Repository) List(ctx context.Context, d *entity.Descriptor, opts ListOptions) ([]Record, error) {
	where, args, err := buildPredicates(d, opts)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT * FROM %s%s ORDER BY created_at DESC", quoteIdent(d.Table), where)
	if opts.Limit > 0 {
		query += fmt.Sprintf(" OFFSET $%d LIMIT $%d", len(args)+1, len(args)+2)
		args = append(args, opts.Skip, opts.Limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", d.Name, err)
	}
	recs, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", d.Name, err)
	}
	return recs, nil
}

// Count counts rows for d under the same predicate rules as List.
func (r *Repository) Count(ctx context.Context, d *entity.Descriptor, opts ListOptions) (int64, error) {
	where, args, err := buildPredicates(d, opts)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", quoteIdent(d.Table), where)

	var total int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", d.Name, err)
	}
	return total, nil
}

// Update overwrites the live row identified by id with the fields present in
// changes. Soft-deleted rows are not updatable; they surface as ErrNotFound.
// The attributes map is shallow-merged, incoming keys winning, and
// modified_at is stamped. Returns the stored representation.
func (r *Repository) Update(ctx context.Context, d *entity.Descriptor, id string, changes Record) (Record, error) {
	existing, err := r.GetByID(ctx, d, id, false)
	if err != nil {
		return nil, err
	}

	merged := make(Record, len(changes)+1)
	for k, v := range changes {
		merged[k] = v
	}
	if incoming, ok := changes["attributes"].(map[string]any); ok {
		merged["attributes"] = mergeAttributes(existing["attributes"], incoming)
	}
	if _, ok := merged["modified_at"]; !ok {
		merged["modified_at"] = time.Now().UTC()
	}
	delete(merged, d.PrimaryKey())

	assignments := make([]string, 0, len(merged))
	args := make([]any, 0, len(merged)+1)
	for _, name := range d.ColumnNames() {
		value, ok := merged[name]
		if !ok {
			continue
		}
		assignments = append(assignments, fmt.Sprintf("%s = $%d", quoteIdent(name), len(args)+1))
		args = append(args, value)
	}
	if len(assignments) == 0 {
		return existing, nil
	}
	args = append(args, id)

	query := fmt.Sprintf(
		"UPDATE %s SET %s WHERE %s = $%d RETURNING *",
		quoteIdent(d.Table),
		strings.Join(assignments, ", "),
		quoteIdent(d.PrimaryKey()),
		len(args),
	)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", d.Name, err)
	}
	stored, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("failed to update %s: %w", d.Name, err)
	}
	return stored, nil
}

// SoftDelete marks the row deleted by setting deleted_at/deleted_by. The row
// stays in the table and is excluded from default reads.
func (r *Repository) SoftDelete(ctx context.Context, d *entity.Descriptor, id, deletedBy string) (Record, error) {
	return r.Update(ctx, d, id, Record{
		"deleted_at": time.Now().UTC(),
		"deleted_by": deletedBy,
	})
}

// GetByColumn fetches one row by equality on any declared column.
func (r *Repository) GetByColumn(ctx context.Context, d *entity.Descriptor, column string, value any, includeDeleted bool) (Record, error) {
	if !d.HasColumn(column) {
		return nil, fmt.Errorf("%s.%s: %w", d.Name, column, entity.ErrUnknownColumn)
	}

	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = $1", quoteIdent(d.Table), quoteIdent(column))
	if !includeDeleted {
		query += " AND deleted_by IS NULL"
	}
	query += " LIMIT 1"

	rows, err := r.pool.Query(ctx, query, value)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s by %s: %w", d.Name, column, err)
	}
	rec, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s by %s: %w", d.Name, column, err)
	}
	return rec, nil
}

// GetByColumnIn fetches all live rows whose column value is in values.
func (r *Repository) GetByColumnIn(ctx context.Context, d *entity.Descriptor, column string, values []string) ([]Record, error) {
	if !d.HasColumn(column) {
		return nil, fmt.Errorf("%s.%s: %w", d.Name, column, entity.ErrUnknownColumn)
	}

	query := fmt.Sprintf(
		"SELECT * FROM %s WHERE %s = ANY($1) AND deleted_by IS NULL ORDER BY created_at DESC",
		quoteIdent(d.Table), quoteIdent(column),
	)

	rows, err := r.pool.Query(ctx, query, values)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s by %s set: %w", d.Name, column, err)
	}
	recs, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s by %s set: %w", d.Name, column, err)
	}
	return recs, nil
}

// buildPredicates returns the WHERE clause (with leading space, or empty) and
// its arguments for list/count queries. The selected search column must be
// declared on the descriptor; search casts columns to text and matches
// case-insensitively, ORed across columns.
func buildPredicates(d *entity.Descriptor, opts ListOptions) (string, []any, error) {
	var clauses []string
	var args []any

	if !opts.IncludeDeleted {
		clauses = append(clauses, "deleted_by IS NULL")
	}

	if opts.SearchString != "" {
		args = append(args, "%"+opts.SearchString+"%")
		placeholder := fmt.Sprintf("$%d", len(args))

		var targets []string
		if opts.SelectedColumn != "" {
			if !d.HasColumn(opts.SelectedColumn) {
				return "", nil, fmt.Errorf("%s.%s: %w", d.Name, opts.SelectedColumn, entity.ErrUnknownColumn)
			}
			targets = []string{opts.SelectedColumn}
		} else {
			targets = d.ColumnNames()
		}

		predicates := make([]string, 0, len(targets))
		for _, name := range targets {
			predicates = append(predicates, fmt.Sprintf("CAST(%s AS TEXT) ILIKE %s", quoteIdent(name), placeholder))
		}
		clauses = append(clauses, "("+strings.Join(predicates, " OR ")+")")
	}

	if len(clauses) == 0 {
		return "", args, nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

// mergeAttributes shallow-merges incoming attribute keys over the stored map.
func mergeAttributes(stored any, incoming map[string]any) map[string]any {
	base, _ := stored.(map[string]any)
	merged := make(map[string]any, len(base)+len(incoming))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range incoming {
		merged[k] = v
	}
	return merged
}

// quoteIdent quotes a SQL identifier. Identifiers only ever come from the
// static entity catalog, but "user" and "order" are reserved words.
func quoteIdent(name string) string {
	return `"` + name + `"`
}
