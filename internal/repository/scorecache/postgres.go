package scorecache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/kailas-cloud/feedlock/internal/db"
	"github.com/kailas-cloud/feedlock/internal/domain/cache"
)

const cacheTable = "ai_classification_cache"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresStore keeps entries in the ai_classification_cache table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres creates a PostgreSQL-backed cache store.
func NewPostgres(conn *sql.DB) *PostgresStore {
	return &PostgresStore{db: conn}
}

// Get loads an entry by cache key.
func (p *PostgresStore) Get(ctx context.Context, key string) (cache.Entry, error) {
	query, args, err := psql.
		Select("post_id", "keywords", "relevance_score", "created_at", "expires_at").
		From(cacheTable).
		Where(sq.Eq{"cache_key": key}).
		ToSql()
	if err != nil {
		return cache.Entry{}, fmt.Errorf("build select: %w", err)
	}

	e := cache.Entry{Key: key}
	err = p.db.QueryRowContext(ctx, query, args...).
		Scan(&e.PostID, pq.Array(&e.Keywords), &e.Score, &e.CreatedAt, &e.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return cache.Entry{}, db.ErrKeyNotFound
	}
	if err != nil {
		return cache.Entry{}, &db.Error{Op: db.OpSelect, Err: err}
	}
	return e, nil
}

// Put upserts an entry on its cache key.
func (p *PostgresStore) Put(ctx context.Context, e cache.Entry) error {
	query, args, err := psql.
		Insert(cacheTable).
		Columns("id", "cache_key", "post_id", "keywords", "relevance_score", "created_at", "expires_at").
		Values(uuid.NewString(), e.Key, e.PostID, pq.Array(e.Keywords), e.Score, e.CreatedAt, e.ExpiresAt).
		Suffix(`ON CONFLICT (cache_key) DO UPDATE SET
			keywords = EXCLUDED.keywords,
			relevance_score = EXCLUDED.relevance_score,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := p.db.ExecContext(ctx, query, args...); err != nil {
		return &db.Error{Op: db.OpInsert, Err: err}
	}
	return nil
}

// Delete removes one entry. Returns db.ErrKeyNotFound when absent.
func (p *PostgresStore) Delete(ctx context.Context, key string) error {
	n, err := p.delete(ctx, sq.Eq{"cache_key": key})
	if err != nil {
		return err
	}
	if n == 0 {
		return db.ErrKeyNotFound
	}
	return nil
}

// DeleteByPost removes every entry of a post.
func (p *PostgresStore) DeleteByPost(ctx context.Context, postID string) (int, error) {
	return p.delete(ctx, sq.Eq{"post_id": postID})
}

// DeleteExpired removes entries whose expiry is at or before now.
func (p *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	return p.delete(ctx, sq.LtOrEq{"expires_at": now})
}

// Stats counts all and expired entries in one pass.
func (p *PostgresStore) Stats(ctx context.Context, now time.Time) (cache.Stats, error) {
	query, args, err := psql.
		Select("COUNT(*)").
		Column(sq.Expr("COUNT(*) FILTER (WHERE expires_at <= ?)", now)).
		From(cacheTable).
		ToSql()
	if err != nil {
		return cache.Stats{}, fmt.Errorf("build stats: %w", err)
	}

	var st cache.Stats
	if err := p.db.QueryRowContext(ctx, query, args...).Scan(&st.Total, &st.Expired); err != nil {
		return cache.Stats{}, &db.Error{Op: db.OpSelect, Err: err}
	}
	st.Active = st.Total - st.Expired
	return st, nil
}

func (p *PostgresStore) delete(ctx context.Context, where sq.Sqlizer) (int, error) {
	query, args, err := psql.Delete(cacheTable).Where(where).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete: %w", err)
	}
	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, &db.Error{Op: db.OpDelete, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, &db.Error{Op: db.OpDelete, Err: err}
	}
	return int(n), nil
}
