package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// TextServiceChecker checks that the Text Service accepts the active credential.
type TextServiceChecker interface {
	HealthCheck(ctx context.Context) error
}
