package maintenance

import "context"

// CacheSweeper removes expired classification cache entries.
type CacheSweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// QuotaResetter removes quota records of past days.
type QuotaResetter interface {
	ResetDailyLimits(ctx context.Context) (int, error)
}
