package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is the remote backend.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an open pool. The store owns the pool and closes it in Close.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) Kind() string { return "postgres" }

func (p *Postgres) Close() {
	p.pool.Close()
}

// Ping verifies the connection.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Postgres) Select(ctx context.Context, table string, q Query) ([]Row, error) {
	query := "SELECT * FROM " + quoteIdentifier(table)
	if q.Order != nil {
		dir := "DESC"
		if q.Order.Ascending {
			dir = "ASC"
		}
		query += fmt.Sprintf(" ORDER BY %s %s", quoteIdentifier(q.Order.Column), dir)
	}

	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, translate("select", table, err)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, translate("select", table, err)
	}
	return normalize(maps), nil
}

func (p *Postgres) Insert(ctx context.Context, table string, rows []Row) ([]Row, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, translate("insert", table, err)
	}
	defer tx.Rollback(ctx)

	var inserted []Row
	for _, r := range rows {
		cols := sortedColumns(r)
		names := make([]string, len(cols))
		params := make([]string, len(cols))
		args := make([]any, len(cols))
		for i, c := range cols {
			names[i] = quoteIdentifier(c)
			params[i] = fmt.Sprintf("$%d", i+1)
			args[i] = r[c]
		}

		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
			quoteIdentifier(table), strings.Join(names, ", "), strings.Join(params, ", "))

		res, err := tx.Query(ctx, query, args...)
		if err != nil {
			return nil, translate("insert", table, err)
		}
		maps, err := pgx.CollectRows(res, pgx.RowToMap)
		if err != nil {
			return nil, translate("insert", table, err)
		}
		inserted = append(inserted, normalize(maps)...)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, translate("insert", table, err)
	}
	return inserted, nil
}

func (p *Postgres) Update(ctx context.Context, table string, f Filter, patch Row) error {
	if len(patch) == 0 {
		return nil
	}

	cols := sortedColumns(patch)
	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", quoteIdentifier(c), i+1)
		args = append(args, patch[c])
	}
	args = append(args, f.Value)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d",
		quoteIdentifier(table), strings.Join(sets, ", "), quoteIdentifier(f.Column), len(args))

	if _, err := p.pool.Exec(ctx, query, args...); err != nil {
		return translate("update", table, err)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, table string, f Filter) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = $1",
		quoteIdentifier(table), quoteIdentifier(f.Column))

	if _, err := p.pool.Exec(ctx, query, f.Value); err != nil {
		return translate("delete", table, err)
	}
	return nil
}

// quoteIdentifier safely quotes a PostgreSQL identifier.
// Column names are camelCase, so every identifier is quoted.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func sortedColumns(r Row) []string {
	cols := make([]string, 0, len(r))
	for c := range r {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// normalize converts driver-specific values (uuid bytes) into plain Go values.
func normalize(maps []map[string]any) []Row {
	out := make([]Row, len(maps))
	for i, m := range maps {
		for k, v := range m {
			if b, ok := v.([16]byte); ok {
				m[k] = uuid.UUID(b).String()
			}
		}
		out[i] = Row(m)
	}
	return out
}
