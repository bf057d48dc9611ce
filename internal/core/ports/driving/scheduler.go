package driving

import "context"

// Scheduler runs report schedules and housekeeping tasks.
type Scheduler interface {
	// Start begins running scheduled tasks.
	// Blocks until context is cancelled or an error occurs.
	Start(ctx context.Context) error

	// Stop gracefully stops all running tasks.
	Stop() error

	// Reload re-reads task configuration without restarting.
	Reload(ctx context.Context) error
}
