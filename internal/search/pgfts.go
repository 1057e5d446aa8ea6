package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// articleVector is the expression the fallback searches over; it has to
// match the expression index created by the migrations.
const articleVector = `to_tsvector('english',
	COALESCE(doc->>'headline', '') || ' ' ||
	COALESCE(doc->>'slugline', '') || ' ' ||
	COALESCE(doc->>'body_html', ''))`

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true: if Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search runs plainto_tsquery over the article documents, ranked with
// ts_rank and snippeted with ts_headline.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	where := articleVector + " @@ plainto_tsquery('english', $1)"
	args := []any{q.Text}
	argN := 2
	if q.FilterProfile != "" {
		where += fmt.Sprintf(" AND profile = $%d", argN)
		args = append(args, q.FilterProfile)
		argN++
	}
	if q.FilterState != "" {
		where += fmt.Sprintf(" AND state = $%d", argN)
		args = append(args, q.FilterState)
		argN++
	}

	ctx := context.Background()

	var total int
	countSQL := fmt.Sprintf(`SELECT count(*) FROM articles WHERE %s`, where)
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	dataSQL := fmt.Sprintf(`
		SELECT id,
			COALESCE(doc->>'headline', ''),
			COALESCE(doc->>'slugline', ''),
			ts_headline('english', COALESCE(doc->>'body_html', ''),
				plainto_tsquery('english', $1), 'MaxFragments=1,MaxWords=30'),
			profile, state, item_type
		FROM articles
		WHERE %s
		ORDER BY ts_rank(%s, plainto_tsquery('english', $1)) DESC
		LIMIT %d OFFSET %d`, where, articleVector, limit, offset)

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.Headline, &r.Slugline, &r.Snippet, &r.Profile, &r.State, &r.Type); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns all indexable articles for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]ArticleRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id,
			COALESCE(doc->>'headline', ''),
			COALESCE(doc->>'slugline', ''),
			COALESCE(doc->>'body_html', ''),
			profile, state, item_type,
			COALESCE(doc->>'language', '')
		FROM articles
	`)
	if err != nil {
		return nil, fmt.Errorf("load articles: %w", err)
	}
	defer rows.Close()

	records := make([]ArticleRecord, 0)
	for rows.Next() {
		var r ArticleRecord
		if err := rows.Scan(&r.ID, &r.Headline, &r.Slugline, &r.BodyText, &r.Profile, &r.State, &r.Type, &r.Language); err != nil {
			return nil, fmt.Errorf("scan article record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate article records: %w", err)
	}
	return records, nil
}
