package domain

import "time"

// ScheduledTask represents a recurring background task.
type ScheduledTask struct {
	// ID is the unique identifier for the task.
	ID string

	// Name is a human-readable name for the task.
	Name string

	// Report is the registered report the task runs. Empty for built-in tasks.
	Report string

	// Customers lists "id" or "id:name" entries the report runs for.
	Customers []string

	// SpreadsheetURL overrides the default report spreadsheet.
	SpreadsheetURL string

	// Interval defines how often the task should run.
	Interval time.Duration

	// LastRun is when the task last ran.
	LastRun time.Time

	// NextRun is when the task should run next.
	NextRun time.Time

	// LastError contains the last error message, if any.
	LastError string

	// LastSuccess is when the task last completed successfully.
	LastSuccess time.Time

	// Enabled indicates whether the task is active.
	Enabled bool
}

// TaskResult represents the outcome of a task execution.
type TaskResult struct {
	// TaskID identifies which task was run.
	TaskID string

	// RunID links to the report run, if the task ran a report.
	RunID string

	// StartedAt is when the task started.
	StartedAt time.Time

	// EndedAt is when the task completed.
	EndedAt time.Time

	// Success indicates whether the task completed without error.
	Success bool

	// Error contains the error message if Success is false.
	Error string

	// Rows is the number of report rows written.
	Rows int
}

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	// Enabled is the master switch for the scheduler.
	Enabled bool

	// TaskConfigs holds per-task configuration.
	TaskConfigs map[string]TaskConfig
}

// TaskConfig holds configuration for a single task.
type TaskConfig struct {
	// Enabled indicates whether this task should run.
	Enabled bool

	// Interval defines how often the task should run.
	Interval time.Duration

	// Report is the report to run.
	Report string

	// Customers lists "id" or "id:name" entries.
	Customers []string

	// SpreadsheetURL overrides the default spreadsheet.
	SpreadsheetURL string
}

// GetTaskConfig returns the configuration for a specific task.
// Returns a zero TaskConfig if the task is not configured.
func (c *SchedulerConfig) GetTaskConfig(taskID string) TaskConfig {
	if c.TaskConfigs == nil {
		return TaskConfig{}
	}
	return c.TaskConfigs[taskID]
}

// DefaultSchedulerConfig returns sensible defaults for the scheduler.
// Report tasks are added from configuration.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled: true,
		TaskConfigs: map[string]TaskConfig{
			TaskIDHistoryPrune: {
				Enabled:  true,
				Interval: 24 * time.Hour,
			},
		},
	}
}

// HistoryRetention is how long run and task history is kept.
const HistoryRetention = 90 * 24 * time.Hour

// Task IDs for built-in tasks.
const (
	TaskIDHistoryPrune = "history-prune"
)
