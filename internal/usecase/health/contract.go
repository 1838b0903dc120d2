package health

import "context"

// Pinger checks store availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// AIChecker checks AI provider availability.
type AIChecker interface {
	HealthCheck(ctx context.Context) error
}
