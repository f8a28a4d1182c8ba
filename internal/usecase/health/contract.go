package health

import "context"

// CachePinger checks answer-cache availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// Checker checks an upstream collaborator's availability.
type Checker interface {
	HealthCheck(ctx context.Context) error
}
