package faqsource

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yanqian/faqbot/internal/domain/faq"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Postgres reads FAQ entries from a table with question, answer and position
// columns.
type Postgres struct {
	pool  *pgxpool.Pool
	query string
}

// NewPostgres constructs the source. The table name is interpolated into the
// query, so only plain (optionally schema qualified) identifiers are accepted.
func NewPostgres(pool *pgxpool.Pool, table string) (*Postgres, error) {
	if table == "" {
		table = "faqs"
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid faq table name %q", table)
	}
	return &Postgres{
		pool:  pool,
		query: fmt.Sprintf(`SELECT question, answer FROM %s ORDER BY position, id`, table),
	}, nil
}

// Load implements faq.Source.
func (p *Postgres) Load(ctx context.Context) ([]faq.Entry, error) {
	rows, err := p.pool.Query(ctx, p.query)
	if err != nil {
		return nil, fmt.Errorf("query faq entries: %w", err)
	}
	entries, err := pgx.CollectRows(rows, scanEntry)
	if err != nil {
		return nil, fmt.Errorf("scan faq entries: %w", err)
	}
	return entries, nil
}

func scanEntry(row pgx.CollectableRow) (faq.Entry, error) {
	var e faq.Entry
	err := row.Scan(&e.Question, &e.Answer)
	return e, err
}

var _ faq.Source = (*Postgres)(nil)
