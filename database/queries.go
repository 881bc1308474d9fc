package database

import (
	"context"
	"fmt"
	"strings"
)

// InsertSearchQuery remembers a search. Repeating a query is a no-op.
func (d *DB) InsertSearchQuery(ctx context.Context, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	res, err := d.db.ExecContext(ctx, "INSERT OR IGNORE INTO SearchQuery (query) VALUES (?)", query)
	if err != nil {
		return fmt.Errorf("insert search query: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		d.tracker.notify(TableSearchQuery)
	}
	return nil
}

// SearchQueries returns remembered searches containing filter, newest first.
func (d *DB) SearchQueries(ctx context.Context, filter string) ([]SearchQuery, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT id, query FROM SearchQuery WHERE query LIKE ? ORDER BY id DESC", "%"+filter+"%")
	if err != nil {
		return nil, fmt.Errorf("query search history: %w", err)
	}
	defer rows.Close()

	queries := []SearchQuery{}
	for rows.Next() {
		var q SearchQuery
		if err := rows.Scan(&q.ID, &q.Query); err != nil {
			return nil, err
		}
		queries = append(queries, q)
	}
	return queries, rows.Err()
}

// DeleteSearchQuery forgets one search. It reports whether a row was removed.
func (d *DB) DeleteSearchQuery(ctx context.Context, query string) (bool, error) {
	res, err := d.db.ExecContext(ctx, "DELETE FROM SearchQuery WHERE query = ?", query)
	if err != nil {
		return false, fmt.Errorf("delete search query: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		d.tracker.notify(TableSearchQuery)
	}
	return n > 0, nil
}

// QueriesCount returns the number of remembered searches.
func (d *DB) QueriesCount(ctx context.Context) (int64, error) {
	var n int64
	err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM SearchQuery").Scan(&n)
	return n, err
}

// ClearHistory forgets every search.
func (d *DB) ClearHistory(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, "DELETE FROM SearchQuery"); err != nil {
		return fmt.Errorf("clear search history: %w", err)
	}
	d.tracker.notify(TableSearchQuery)
	return nil
}
