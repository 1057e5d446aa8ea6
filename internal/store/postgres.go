package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"newsdesk/api/internal/article"
	"newsdesk/api/internal/vocabulary"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

// GetArticle loads one article. The entity tag is kept in its own column and
// injected into the document on read.
func (s *PostgresStore) GetArticle(ctx context.Context, articleID string) (article.Article, error) {
	var doc []byte
	var etag string
	err := s.db.QueryRowContext(ctx, `
		SELECT doc, etag
		FROM articles
		WHERE id=$1
	`, articleID).Scan(&doc, &etag)
	if errors.Is(err, sql.ErrNoRows) {
		return article.Article{}, ErrNotFound
	}
	if err != nil {
		return article.Article{}, fmt.Errorf("get article %s: %w", articleID, err)
	}

	var art article.Article
	if err := json.Unmarshal(doc, &art); err != nil {
		return article.Article{}, fmt.Errorf("decode article %s: %w", articleID, err)
	}
	art.ETag = etag
	return art, nil
}

// InsertArticle stores a new article and returns it with its entity tag and
// timestamps set.
func (s *PostgresStore) InsertArticle(ctx context.Context, art article.Article) (article.Article, error) {
	now := time.Now().UTC()
	art.Created = &now
	art.Updated = &now

	etag, err := ComputeETag(art)
	if err != nil {
		return article.Article{}, err
	}
	art.ETag = ""
	doc, err := json.Marshal(art)
	if err != nil {
		return article.Article{}, fmt.Errorf("encode article: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO articles (id, profile, item_type, state, etag, lock_user, lock_session, lock_time, doc, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8, $9, $10, $10)
	`, art.ID, art.Profile, art.Type, art.State, etag, art.LockUser, art.LockSession, art.LockTime, doc, now)
	if err != nil {
		return article.Article{}, fmt.Errorf("insert article %s: %w", art.ID, err)
	}

	art.ETag = etag
	return art, nil
}

// UpdateArticle replaces an article's document, guarded by the entity tag the
// client last read. A stale tag yields ErrETagMismatch; a missing article
// ErrNotFound.
func (s *PostgresStore) UpdateArticle(ctx context.Context, art article.Article, ifMatch string) (article.Article, error) {
	now := time.Now().UTC()
	art.Updated = &now

	etag, err := ComputeETag(art)
	if err != nil {
		return article.Article{}, err
	}
	art.ETag = ""
	doc, err := json.Marshal(art)
	if err != nil {
		return article.Article{}, fmt.Errorf("encode article: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE articles
		SET profile=$2, item_type=$3, state=$4, etag=$5,
		    lock_user=NULLIF($6, ''), lock_session=NULLIF($7, ''), lock_time=$8,
		    doc=$9, updated_at=$10
		WHERE id=$1 AND etag=$11
	`, art.ID, art.Profile, art.Type, art.State, etag,
		art.LockUser, art.LockSession, art.LockTime, doc, now, ifMatch)
	if err != nil {
		return article.Article{}, fmt.Errorf("update article %s: %w", art.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return article.Article{}, fmt.Errorf("update article %s rows: %w", art.ID, err)
	}
	if affected == 0 {
		var exists bool
		if err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM articles WHERE id=$1)`, art.ID).Scan(&exists); err != nil {
			return article.Article{}, fmt.Errorf("check article %s: %w", art.ID, err)
		}
		if !exists {
			return article.Article{}, ErrNotFound
		}
		return article.Article{}, ErrETagMismatch
	}

	art.ETag = etag
	return art, nil
}

// DeleteArticle removes an article and its autosave snapshot.
func (s *PostgresStore) DeleteArticle(ctx context.Context, articleID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM articles WHERE id=$1`, articleID)
	if err != nil {
		return fmt.Errorf("delete article %s: %w", articleID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete article %s rows: %w", articleID, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	_, err = s.db.ExecContext(ctx, `DELETE FROM archive_autosave WHERE article_id=$1`, articleID)
	if err != nil {
		return fmt.Errorf("delete autosave %s: %w", articleID, err)
	}
	return nil
}

// ListArticles returns articles ordered by last update, newest first.
func (s *PostgresStore) ListArticles(ctx context.Context, limit int) ([]article.Article, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc, etag
		FROM articles
		ORDER BY updated_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	items := make([]article.Article, 0)
	for rows.Next() {
		var doc []byte
		var etag string
		if err := rows.Scan(&doc, &etag); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		var art article.Article
		if err := json.Unmarshal(doc, &art); err != nil {
			return nil, fmt.Errorf("decode article: %w", err)
		}
		art.ETag = etag
		items = append(items, art)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate articles: %w", err)
	}
	return items, nil
}

// SearchArticles runs a full-text query over headline, slugline and body.
// The durable fallback behind the search index.
func (s *PostgresStore) SearchArticles(ctx context.Context, query string, limit int) ([]article.Article, error) {
	if limit <= 0 {
		limit = 25
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc, etag
		FROM articles
		WHERE to_tsvector('english',
			COALESCE(doc->>'headline', '') || ' ' ||
			COALESCE(doc->>'slugline', '') || ' ' ||
			COALESCE(doc->>'body_html', ''))
			@@ plainto_tsquery('english', $1)
		ORDER BY updated_at DESC
		LIMIT $2
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search articles: %w", err)
	}
	defer rows.Close()

	items := make([]article.Article, 0)
	for rows.Next() {
		var doc []byte
		var etag string
		if err := rows.Scan(&doc, &etag); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		var art article.Article
		if err := json.Unmarshal(doc, &art); err != nil {
			return nil, fmt.Errorf("decode article: %w", err)
		}
		art.ETag = etag
		items = append(items, art)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search results: %w", err)
	}
	return items, nil
}

// ListVocabularies returns all vocabularies in their stored order.
func (s *PostgresStore) ListVocabularies(ctx context.Context) ([]vocabulary.Vocabulary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc
		FROM vocabularies
		ORDER BY sort_order ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list vocabularies: %w", err)
	}
	defer rows.Close()

	items := make([]vocabulary.Vocabulary, 0)
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan vocabulary: %w", err)
		}
		var voc vocabulary.Vocabulary
		if err := json.Unmarshal(doc, &voc); err != nil {
			return nil, fmt.Errorf("decode vocabulary: %w", err)
		}
		items = append(items, voc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vocabularies: %w", err)
	}
	return items, nil
}

// UpsertVocabulary stores a vocabulary document keyed by its id.
func (s *PostgresStore) UpsertVocabulary(ctx context.Context, voc vocabulary.Vocabulary, sortOrder int) error {
	doc, err := json.Marshal(voc)
	if err != nil {
		return fmt.Errorf("encode vocabulary %s: %w", voc.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO vocabularies (id, doc, sort_order)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET doc=EXCLUDED.doc, sort_order=EXCLUDED.sort_order, updated_at=NOW()
	`, voc.ID, doc, sortOrder)
	if err != nil {
		return fmt.Errorf("upsert vocabulary %s: %w", voc.ID, err)
	}
	return nil
}

// GetContentProfile loads one profile's editor/schema configuration.
func (s *PostgresStore) GetContentProfile(ctx context.Context, profileID string) (ProfileRecord, error) {
	var item ProfileRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT id, label, editor, schema, custom_fields, labels, updated_at
		FROM content_profiles
		WHERE id=$1
	`, profileID).Scan(&item.ID, &item.Label, &item.Editor, &item.Schema, &item.CustomFields, &item.Labels, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ProfileRecord{}, ErrNotFound
	}
	if err != nil {
		return ProfileRecord{}, fmt.Errorf("get content profile %s: %w", profileID, err)
	}
	return item, nil
}

// UpsertContentProfile stores a profile configuration.
func (s *PostgresStore) UpsertContentProfile(ctx context.Context, record ProfileRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO content_profiles (id, label, editor, schema, custom_fields, labels)
		VALUES ($1, $2, COALESCE($3, '{}'::jsonb), COALESCE($4, '{}'::jsonb), COALESCE($5, '{}'::jsonb), COALESCE($6, '{}'::jsonb))
		ON CONFLICT (id) DO UPDATE SET
			label=EXCLUDED.label,
			editor=EXCLUDED.editor,
			schema=EXCLUDED.schema,
			custom_fields=EXCLUDED.custom_fields,
			labels=EXCLUDED.labels,
			updated_at=NOW()
	`, record.ID, record.Label, []byte(record.Editor), []byte(record.Schema), []byte(record.CustomFields), []byte(record.Labels))
	if err != nil {
		return fmt.Errorf("upsert content profile %s: %w", record.ID, err)
	}
	return nil
}

// UpsertAutosave stores an autosave snapshot. Durable fallback behind the
// redis snapshot store.
func (s *PostgresStore) UpsertAutosave(ctx context.Context, articleID string, doc json.RawMessage) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO archive_autosave (article_id, doc)
		VALUES ($1, $2)
		ON CONFLICT (article_id) DO UPDATE SET doc=EXCLUDED.doc, updated_at=NOW()
	`, articleID, []byte(doc))
	if err != nil {
		return fmt.Errorf("upsert autosave %s: %w", articleID, err)
	}
	return nil
}

// GetAutosave loads the autosave snapshot of an article.
func (s *PostgresStore) GetAutosave(ctx context.Context, articleID string) (AutosaveRecord, error) {
	var item AutosaveRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT article_id, doc, updated_at
		FROM archive_autosave
		WHERE article_id=$1
	`, articleID).Scan(&item.ArticleID, (*[]byte)(&item.Doc), &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return AutosaveRecord{}, ErrNotFound
	}
	if err != nil {
		return AutosaveRecord{}, fmt.Errorf("get autosave %s: %w", articleID, err)
	}
	return item, nil
}

// DeleteAutosave drops the autosave snapshot of an article.
func (s *PostgresStore) DeleteAutosave(ctx context.Context, articleID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM archive_autosave WHERE article_id=$1`, articleID)
	if err != nil {
		return fmt.Errorf("delete autosave %s: %w", articleID, err)
	}
	return nil
}

// InsertMediaAsset records the metadata of an uploaded binary.
func (s *PostgresStore) InsertMediaAsset(ctx context.Context, asset MediaAsset) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO media_assets (id, filename, mimetype, size_bytes, storage_key)
		VALUES ($1, $2, $3, $4, $5)
	`, asset.ID, asset.Filename, asset.MimeType, asset.SizeBytes, asset.StorageKey)
	if err != nil {
		return fmt.Errorf("insert media asset %s: %w", asset.ID, err)
	}
	return nil
}

// GetMediaAsset loads the metadata of an uploaded binary.
func (s *PostgresStore) GetMediaAsset(ctx context.Context, assetID string) (MediaAsset, error) {
	var item MediaAsset
	err := s.db.QueryRowContext(ctx, `
		SELECT id, filename, mimetype, size_bytes, storage_key, created_at
		FROM media_assets
		WHERE id=$1
	`, assetID).Scan(&item.ID, &item.Filename, &item.MimeType, &item.SizeBytes, &item.StorageKey, &item.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return MediaAsset{}, ErrNotFound
	}
	if err != nil {
		return MediaAsset{}, fmt.Errorf("get media asset %s: %w", assetID, err)
	}
	return item, nil
}

// Ping verifies the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
