package quota

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/kailas-cloud/feedlock/internal/db"
	domquota "github.com/kailas-cloud/feedlock/internal/domain/quota"
)

const trackingTable = "rate_limit_tracking"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresStore keeps counters in rate_limit_tracking, one row per user and day.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgres creates a PostgreSQL-backed quota store.
func NewPostgres(conn *sql.DB) *PostgresStore {
	return &PostgresStore{db: conn, now: time.Now}
}

// IncrementIfBelow upserts the row; the conflict branch only fires while the counter is below limit,
// so a rejected call returns no row.
func (p *PostgresStore) IncrementIfBelow(
	ctx context.Context, userID string, tier domquota.Tier, day domquota.Day, limit int64,
) (bool, int64, error) {
	if limit == 0 {
		calls, err := p.Calls(ctx, userID, day)
		return false, calls, err
	}

	suffix := `ON CONFLICT (user_id, date) DO UPDATE SET
		ai_calls_today = rate_limit_tracking.ai_calls_today + 1,
		tier = EXCLUDED.tier,
		last_reset = EXCLUDED.last_reset`
	var suffixArgs []any
	if limit > 0 {
		suffix += ` WHERE rate_limit_tracking.ai_calls_today < ?`
		suffixArgs = append(suffixArgs, limit)
	}
	suffix += ` RETURNING ai_calls_today`

	query, args, err := psql.
		Insert(trackingTable).
		Columns("id", "user_id", "tier", "date", "ai_calls_today", "last_reset").
		Values(uuid.NewString(), userID, string(tier), string(day), 1, p.now().UTC()).
		Suffix(suffix, suffixArgs...).
		ToSql()
	if err != nil {
		return false, 0, fmt.Errorf("build upsert: %w", err)
	}

	var calls int64
	err = p.db.QueryRowContext(ctx, query, args...).Scan(&calls)
	if errors.Is(err, sql.ErrNoRows) {
		return false, limit, nil
	}
	if err != nil {
		return false, 0, &db.Error{Op: db.OpInsert, Err: err}
	}
	return true, calls, nil
}

// Calls returns the user's counter for the day, 0 when absent.
func (p *PostgresStore) Calls(ctx context.Context, userID string, day domquota.Day) (int64, error) {
	query, args, err := psql.
		Select("ai_calls_today").
		From(trackingTable).
		Where(sq.Eq{"user_id": userID, "date": string(day)}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build select: %w", err)
	}

	var calls int64
	err = p.db.QueryRowContext(ctx, query, args...).Scan(&calls)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, &db.Error{Op: db.OpSelect, Err: err}
	}
	return calls, nil
}

// Records lists every counter of the day.
func (p *PostgresStore) Records(ctx context.Context, day domquota.Day) ([]domquota.Record, error) {
	query, args, err := psql.
		Select("user_id", "tier", "ai_calls_today").
		From(trackingTable).
		Where(sq.Eq{"date": string(day)}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}
	defer rows.Close()

	var out []domquota.Record
	for rows.Next() {
		r := domquota.Record{Day: day}
		var tier string
		if err := rows.Scan(&r.UserID, &tier, &r.CallsToday); err != nil {
			return nil, &db.Error{Op: db.OpSelect, Err: err}
		}
		r.Tier = domquota.Tier(tier)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}
	return out, nil
}

// DeleteBefore removes rows of days strictly before day.
func (p *PostgresStore) DeleteBefore(ctx context.Context, day domquota.Day) (int, error) {
	query, args, err := psql.Delete(trackingTable).Where(sq.Lt{"date": string(day)}).ToSql()
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
