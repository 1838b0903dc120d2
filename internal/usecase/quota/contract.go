package quota

import (
	"context"

	domquota "github.com/kailas-cloud/feedlock/internal/domain/quota"
)

// Store persists daily AI call counters.
//
// IncrementIfBelow must check and increment atomically: concurrent callers can never push
// a counter past limit. A negative limit means unlimited; the call is still counted.
type Store interface {
	IncrementIfBelow(
		ctx context.Context, userID string, tier domquota.Tier, day domquota.Day, limit int64,
	) (allowed bool, calls int64, err error)
	Calls(ctx context.Context, userID string, day domquota.Day) (int64, error)
	Records(ctx context.Context, day domquota.Day) ([]domquota.Record, error)
	DeleteBefore(ctx context.Context, day domquota.Day) (int, error)
}
