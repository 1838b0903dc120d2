package scorecache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kailas-cloud/feedlock/internal/db"
	"github.com/kailas-cloud/feedlock/internal/domain/cache"
	"github.com/kailas-cloud/feedlock/internal/domain/keyword"
)

func newTestPostgres(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewPostgres(conn), mock
}

func TestPostgresStore_Get(t *testing.T) {
	p, mock := newTestPostgres(t)
	expires := testNow.Add(time.Hour)

	mock.ExpectQuery("SELECT post_id, keywords, relevance_score, created_at, expires_at FROM ai_classification_cache").
		WithArgs("k1").
		WillReturnRows(sqlmock.NewRows([]string{"post_id", "keywords", "relevance_score", "created_at", "expires_at"}).
			AddRow("p1", "{cooking,travel}", "0.750", testNow, expires))

	e, err := p.Get(context.Background(), "k1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if e.PostID != "p1" || e.Score != 0.75 || len(e.Keywords) != 2 || e.Keywords[1] != "travel" {
		t.Errorf("entry = %+v", e)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresStore_GetMissing(t *testing.T) {
	p, mock := newTestPostgres(t)

	mock.ExpectQuery("SELECT (.+) FROM ai_classification_cache").
		WithArgs("k1").
		WillReturnRows(sqlmock.NewRows([]string{"post_id"}))

	if _, err := p.Get(context.Background(), "k1"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestPostgresStore_Put(t *testing.T) {
	p, mock := newTestPostgres(t)
	e := cache.NewEntry("p1", keyword.Of("cooking"), 0.8, testNow, time.Hour)

	mock.ExpectExec("INSERT INTO ai_classification_cache (.+) ON CONFLICT \\(cache_key\\) DO UPDATE").
		WithArgs(sqlmock.AnyArg(), e.Key, "p1", sqlmock.AnyArg(), 0.8, e.CreatedAt, e.ExpiresAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := p.Put(context.Background(), e); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresStore_Delete(t *testing.T) {
	p, mock := newTestPostgres(t)

	mock.ExpectExec("DELETE FROM ai_classification_cache WHERE cache_key = \\$1").
		WithArgs("k1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := p.Delete(context.Background(), "k1"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestPostgresStore_DeleteExpired(t *testing.T) {
	p, mock := newTestPostgres(t)

	mock.ExpectExec("DELETE FROM ai_classification_cache WHERE expires_at <= \\$1").
		WithArgs(testNow).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := p.DeleteExpired(context.Background(), testNow)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 4 {
		t.Errorf("removed = %d, want 4", n)
	}
}

func TestPostgresStore_DeleteByPostError(t *testing.T) {
	p, mock := newTestPostgres(t)

	mock.ExpectExec("DELETE FROM ai_classification_cache WHERE post_id = \\$1").
		WithArgs("p1").
		WillReturnError(errBoom)

	_, err := p.DeleteByPost(context.Background(), "p1")
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpDelete {
		t.Fatalf("expected db.Error DELETE, got %v", err)
	}
}

func TestPostgresStore_Stats(t *testing.T) {
	p, mock := newTestPostgres(t)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\), COUNT\\(\\*\\) FILTER \\(WHERE expires_at <= \\$1\\) FROM ai_classification_cache").
		WithArgs(testNow).
		WillReturnRows(sqlmock.NewRows([]string{"total", "expired"}).AddRow(10, 3))

	st, err := p.Stats(context.Background(), testNow)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Total != 10 || st.Expired != 3 || st.Active != 7 {
		t.Errorf("stats = %+v", st)
	}
}
