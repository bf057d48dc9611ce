package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/adreports/internal/core/domain"
	"github.com/custodia-labs/adreports/internal/core/ports/driven"
	"github.com/custodia-labs/adreports/internal/core/ports/driving"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// historyKeep is the number of task results kept per task.
const historyKeep = 100

// Scheduler runs report schedules and housekeeping in the background.
// Task state lives in the SchedulerStore so schedules survive restarts.
type Scheduler struct {
	store   driven.SchedulerStore
	reports driving.ReportRunner
	runs    driven.RunStore
	load    func(ctx context.Context) (domain.SchedulerConfig, error)

	mu       sync.Mutex
	config   domain.SchedulerConfig
	running  bool
	inFlight map[string]bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithRunHistory prunes report runs as part of the history-prune task.
func WithRunHistory(runs driven.RunStore) SchedulerOption {
	return func(s *Scheduler) { s.runs = runs }
}

// WithConfigLoader sets the function Reload reads configuration from.
func WithConfigLoader(load func(ctx context.Context) (domain.SchedulerConfig, error)) SchedulerOption {
	return func(s *Scheduler) { s.load = load }
}

// NewScheduler creates a scheduler with configuration.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	reports driving.ReportRunner,
	opts ...SchedulerOption,
) *Scheduler {
	s := &Scheduler{
		config:   config,
		store:    store,
		reports:  reports,
		inFlight: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins the scheduler loop. This method blocks until Stop is called
// or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		log.Printf("scheduler: disabled")
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	if err := s.initialiseTasks(ctx); err != nil {
		log.Printf("scheduler: failed to initialise tasks: %v", err)
	}

	return s.run(ctx)
}

// Stop gracefully shuts down the scheduler and waits for running tasks.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// Reload re-reads configuration and syncs the stored tasks with it.
// Report tasks no longer configured are removed.
func (s *Scheduler) Reload(ctx context.Context) error {
	if s.load == nil {
		return nil
	}
	cfg, err := s.load(ctx)
	if err != nil {
		return fmt.Errorf("load scheduler config: %w", err)
	}

	s.mu.Lock()
	s.config = cfg
	s.mu.Unlock()

	if err := s.initialiseTasks(ctx); err != nil {
		return err
	}

	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		return err
	}
	for _, task := range tasks {
		if task.Report == "" {
			continue
		}
		if _, ok := cfg.TaskConfigs[task.ID]; !ok {
			if err := s.store.DeleteTask(ctx, task.ID); err != nil {
				return err
			}
			log.Printf("scheduler: removed task %s", task.ID)
		}
	}
	return nil
}

// initialiseTasks ensures all configured tasks exist in the store.
func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	s.mu.Lock()
	configs := make(map[string]domain.TaskConfig, len(s.config.TaskConfigs))
	for id, cfg := range s.config.TaskConfigs {
		configs[id] = cfg
	}
	s.mu.Unlock()

	ids := make([]string, 0, len(configs))
	for id := range configs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		cfg := configs[id]
		name := "History Prune"
		if cfg.Report != "" {
			name = "Report " + cfg.Report
		} else if id != domain.TaskIDHistoryPrune {
			log.Printf("scheduler: task %s has no report, skipping", id)
			continue
		}
		if err := s.ensureTask(ctx, id, name, cfg); err != nil {
			return err
		}
	}
	return nil
}

// ensureTask creates or updates a task in the store.
func (s *Scheduler) ensureTask(ctx context.Context, id, name string, cfg domain.TaskConfig) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}

	if task == nil {
		task = &domain.ScheduledTask{
			ID:       id,
			Name:     name,
			Interval: cfg.Interval,
			NextRun:  time.Now().Add(cfg.Interval),
		}
	} else if task.Interval != cfg.Interval {
		task.Interval = cfg.Interval
		task.NextRun = time.Now().Add(cfg.Interval)
	}
	task.Name = name
	task.Enabled = cfg.Enabled
	task.Report = cfg.Report
	task.Customers = cfg.Customers
	task.SpreadsheetURL = cfg.SpreadsheetURL

	return s.store.SaveTask(ctx, task)
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context) error {
	s.checkAndRunDueTasks(ctx)

	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		}
	}
}

// checkAndRunDueTasks finds and executes tasks that are due.
func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	tasks, err := s.store.ListDueTasks(ctx, time.Now())
	if err != nil {
		log.Printf("scheduler: failed to list due tasks: %v", err)
		return
	}

	for i := range tasks {
		s.runTask(ctx, &tasks[i])
	}
}

// runTask executes a single task unless it is still running from a previous tick.
func (s *Scheduler) runTask(ctx context.Context, task *domain.ScheduledTask) {
	s.mu.Lock()
	if s.inFlight[task.ID] {
		s.mu.Unlock()
		return
	}
	s.inFlight[task.ID] = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.inFlight, task.ID)
			s.mu.Unlock()
		}()

		result := &domain.TaskResult{
			TaskID:    task.ID,
			StartedAt: time.Now(),
		}

		var err error
		switch {
		case task.ID == domain.TaskIDHistoryPrune:
			err = s.pruneHistory(ctx)
		case task.Report != "":
			result.RunID, result.Rows, err = s.runReport(ctx, task)
		default:
			log.Printf("scheduler: unknown task ID: %s", task.ID)
			return
		}

		result.EndedAt = time.Now()
		if err != nil {
			result.Error = err.Error()
			task.LastError = err.Error()
			log.Printf("scheduler: task %s failed: %v", task.ID, err)
		} else {
			result.Success = true
			task.LastError = ""
			task.LastSuccess = result.EndedAt
		}

		task.LastRun = result.StartedAt
		task.NextRun = result.EndedAt.Add(task.Interval)

		if saveErr := s.store.SaveTask(ctx, task); saveErr != nil {
			log.Printf("scheduler: failed to save task %s: %v", task.ID, saveErr)
		}

		if recordErr := s.store.RecordResult(ctx, result); recordErr != nil {
			log.Printf("scheduler: failed to record result for %s: %v", task.ID, recordErr)
		}

		if pruneErr := s.store.PruneHistory(ctx, historyKeep); pruneErr != nil {
			log.Printf("scheduler: failed to prune history: %v", pruneErr)
		}
	}()
}

// runReport runs a scheduled report. Any failed customer fails the task.
func (s *Scheduler) runReport(ctx context.Context, task *domain.ScheduledTask) (string, int, error) {
	if s.reports == nil {
		return "", 0, fmt.Errorf("report %s: %w", task.Report, domain.ErrNotImplemented)
	}

	customers := make([]domain.Customer, 0, len(task.Customers))
	for _, c := range task.Customers {
		customers = append(customers, domain.ParseCustomer(c))
	}

	def := domain.ReportDefinition{
		Name:           task.Report,
		SpreadsheetURL: task.SpreadsheetURL,
	}
	summary, err := s.reports.Run(ctx, def, customers)
	if err != nil {
		return "", 0, err
	}

	if failed := len(summary.Failures()); failed > 0 {
		return summary.ID, summary.TotalRows(), fmt.Errorf("%d of %d customers failed", failed, len(summary.Results))
	}
	return summary.ID, summary.TotalRows(), nil
}

// pruneHistory removes report runs older than the retention window.
func (s *Scheduler) pruneHistory(ctx context.Context) error {
	if s.runs == nil {
		return nil
	}
	return s.runs.PruneRuns(ctx, time.Now().Add(-domain.HistoryRetention))
}
