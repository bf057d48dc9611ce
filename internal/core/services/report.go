package services

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/custodia-labs/adreports/internal/core/domain"
	"github.com/custodia-labs/adreports/internal/core/ports/driven"
	"github.com/custodia-labs/adreports/internal/core/ports/driving"
	"github.com/custodia-labs/adreports/internal/logger"
)

// Ensure ReportService implements the interfaces.
var (
	_ driving.ReportRunner = (*ReportService)(nil)
	_ driving.RunHistory   = (*ReportService)(nil)
)

// ReportService runs a report for many customers at once and delivers
// each customer's tables to the configured sinks.
type ReportService struct {
	reports driven.ReportRegistry
	runs    driven.RunStore

	sheets    driven.SpreadsheetSink
	warehouse driven.TableSink
	files     driven.FileExporter

	notifier      driven.Notifier
	notifyChannel string
	mailer        driven.Mailer
	recipients    []string

	now func() time.Time

	mu      sync.Mutex
	running map[string]bool
}

// ReportOption configures a ReportService.
type ReportOption func(*ReportService)

// WithRunStore records runs and customer results.
func WithRunStore(store driven.RunStore) ReportOption {
	return func(s *ReportService) { s.runs = store }
}

// WithSpreadsheetSink writes tables to the definition's spreadsheet.
func WithSpreadsheetSink(sink driven.SpreadsheetSink) ReportOption {
	return func(s *ReportService) { s.sheets = sink }
}

// WithTableSink writes tables to the warehouse.
func WithTableSink(sink driven.TableSink) ReportOption {
	return func(s *ReportService) { s.warehouse = sink }
}

// WithFileExporter exports tables to the definition's Drive folder.
func WithFileExporter(exporter driven.FileExporter) ReportOption {
	return func(s *ReportService) { s.files = exporter }
}

// WithNotifier posts run failures to channel.
func WithNotifier(n driven.Notifier, channel string) ReportOption {
	return func(s *ReportService) {
		s.notifier = n
		s.notifyChannel = channel
	}
}

// WithMailer emails run failures to recipients.
func WithMailer(m driven.Mailer, recipients ...string) ReportOption {
	return func(s *ReportService) {
		s.mailer = m
		s.recipients = recipients
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) ReportOption {
	return func(s *ReportService) { s.now = now }
}

// NewReportService creates a report service.
func NewReportService(reports driven.ReportRegistry, opts ...ReportOption) *ReportService {
	s := &ReportService{
		reports: reports,
		now:     time.Now,
		running: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reports returns the registered report names.
func (s *ReportService) Reports() []string {
	return s.reports.Names()
}

// Run executes def for every customer in its own goroutine and waits for all
// of them. Each worker reports on its own channel; results are merged after
// the join in customer order.
func (s *ReportService) Run(
	ctx context.Context,
	def domain.ReportDefinition,
	customers []domain.Customer,
) (*domain.RunSummary, error) {
	report, err := s.reports.Get(def.Name)
	if err != nil {
		return nil, err
	}
	if len(customers) == 0 {
		return nil, fmt.Errorf("no customers for report %s: %w", def.Name, domain.ErrInvalidInput)
	}

	if err := s.begin(def.Name); err != nil {
		return nil, err
	}
	defer s.end(def.Name)

	summary := &domain.RunSummary{
		ID:        uuid.NewString(),
		Report:    def.Name,
		Status:    domain.RunRunning,
		StartedAt: s.now(),
	}
	logger.Section("Report " + def.Name)
	if s.runs != nil {
		if err := s.runs.CreateRun(ctx, summary); err != nil {
			logger.Warn("record run start: %v", err)
		}
	}

	results := make([]chan domain.CustomerResult, len(customers))
	var wg sync.WaitGroup
	for i, customer := range customers {
		results[i] = make(chan domain.CustomerResult, 1)
		wg.Add(1)
		go s.runCustomer(ctx, &wg, results[i], summary.ID, report, def, customer, len(customers) > 1)
	}
	wg.Wait()

	for _, ch := range results {
		summary.Results = append(summary.Results, <-ch)
	}
	summary.FinishedAt = s.now()
	summary.Settle()

	if s.runs != nil {
		if err := s.runs.FinishRun(ctx, summary); err != nil {
			logger.Warn("record run finish: %v", err)
		}
	}
	logger.Info("run %s: %s, %d rows, %d failures",
		summary.ID, summary.Status, summary.TotalRows(), len(summary.Failures()))

	if len(summary.Failures()) > 0 {
		s.notifyFailures(ctx, summary)
	}
	return summary, nil
}

func (s *ReportService) begin(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[name] {
		return fmt.Errorf("report %s: %w", name, domain.ErrRunInProgress)
	}
	s.running[name] = true
	return nil
}

func (s *ReportService) end(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, name)
}

// runCustomer produces and delivers one customer's report. Errors and
// panics are captured in the result and never escape the worker.
func (s *ReportService) runCustomer(
	ctx context.Context,
	wg *sync.WaitGroup,
	out chan<- domain.CustomerResult,
	runID string,
	report driven.Report,
	def domain.ReportDefinition,
	customer domain.Customer,
	prefixSheets bool,
) {
	defer wg.Done()

	res := domain.CustomerResult{
		RunID:     runID,
		Customer:  customer,
		Status:    domain.CustomerSucceeded,
		StartedAt: s.now(),
	}

	defer func() {
		if r := recover(); r != nil {
			res.Status = domain.CustomerFailed
			res.Error = fmt.Sprintf("panic: %v", r)
			res.Stack = string(debug.Stack())
		}
		res.FinishedAt = s.now()
		switch {
		case res.Stack != "":
			logger.Error("%s (%s): %s\n%s", def.Name, customer.Label(), res.Error, res.Stack)
		case res.Status == domain.CustomerFailed:
			logger.Error("%s (%s): %s", def.Name, customer.Label(), res.Error)
		}
		if s.runs != nil {
			if err := s.runs.RecordCustomer(ctx, res); err != nil {
				logger.Warn("record customer %s: %v", customer.ID, err)
			}
		}
		out <- res
	}()

	output, err := report.Run(ctx, customer, def)
	if err == nil {
		res.Rows = output.Rows()
		err = s.deliver(ctx, def, customer, output, prefixSheets)
	}
	if err != nil {
		res.Status = domain.CustomerFailed
		res.Error = err.Error()
	}
}

// deliver writes every table to each configured sink. A failing sink does
// not stop the others.
func (s *ReportService) deliver(
	ctx context.Context,
	def domain.ReportDefinition,
	customer domain.Customer,
	output *domain.ReportOutput,
	prefixSheets bool,
) error {
	if output == nil {
		return nil
	}

	var errs []error
	for _, nt := range output.Tables {
		if nt.Table == nil {
			continue
		}

		if s.sheets != nil && def.SpreadsheetURL != "" {
			sheet := nt.Name
			if prefixSheets {
				sheet = customer.Label() + " - " + nt.Name
			}
			if err := s.sheets.WriteTable(ctx, def.SpreadsheetURL, sheet, nt.Table); err != nil {
				errs = append(errs, fmt.Errorf("write sheet %s: %w", sheet, err))
			}
		}

		if s.warehouse != nil && def.WarehouseTable != "" {
			name := WarehouseTableName(def.WarehouseTable, customer.ID, nt.Name)
			if err := s.warehouse.WriteTable(ctx, name, nt.Table); err != nil {
				errs = append(errs, fmt.Errorf("write table %s: %w", name, err))
			}
		}

		if s.files != nil && def.DriveFolderID != "" {
			name := fmt.Sprintf("%s - %s.csv", customer.Label(), nt.Name)
			fileID, err := s.files.Export(ctx, def.DriveFolderID, name, nt.Table)
			if err != nil {
				errs = append(errs, fmt.Errorf("export %s: %w", name, err))
				continue
			}
			if len(def.ShareWith) > 0 {
				if err := s.files.Share(ctx, fileID, def.ShareWith); err != nil {
					errs = append(errs, fmt.Errorf("share %s: %w", name, err))
				}
			}
		}
	}
	return errors.Join(errs...)
}

func (s *ReportService) notifyFailures(ctx context.Context, summary *domain.RunSummary) {
	failures := summary.Failures()
	headline := fmt.Sprintf("%s run %s: %d of %d customers failed",
		summary.Report, summary.Status, len(failures), len(summary.Results))

	if s.notifier != nil && s.notifyChannel != "" {
		n := domain.Notification{
			Channel: s.notifyChannel,
			Text:    headline,
			Color:   "danger",
		}
		for _, f := range failures {
			n.Fields = append(n.Fields, domain.NotificationField{
				Title: f.Customer.Label(),
				Value: f.Error,
			})
		}
		if err := s.notifier.Notify(ctx, n); err != nil {
			logger.Warn("notify %s: %v", s.notifyChannel, err)
		}
	}

	if s.mailer != nil && len(s.recipients) > 0 {
		var body strings.Builder
		body.WriteString(headline + "\n\n")
		for _, f := range failures {
			fmt.Fprintf(&body, "%s (%s)\n%s\n", f.Customer.Label(), f.Customer.ID, f.Error)
			if f.Stack != "" {
				fmt.Fprintf(&body, "\n%s\n", f.Stack)
			}
		}
		email := domain.Email{
			To:      s.recipients,
			Subject: fmt.Sprintf("[adreports] %s failed for %d customers", summary.Report, len(failures)),
			Body:    body.String(),
		}
		if err := s.mailer.Send(ctx, email); err != nil {
			logger.Warn("email failures: %v", err)
		}
	}
}

// GetRun returns a stored run.
func (s *ReportService) GetRun(ctx context.Context, id string) (*domain.RunSummary, error) {
	if s.runs == nil {
		return nil, fmt.Errorf("run %s: %w", id, domain.ErrNotFound)
	}
	return s.runs.GetRun(ctx, id)
}

// ListRuns returns recent runs.
func (s *ReportService) ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	if s.runs == nil {
		return nil, nil
	}
	return s.runs.ListRuns(ctx, limit)
}

// WarehouseTableName builds "<prefix>_<customer>_<table>" as a lower-case
// SQL identifier.
func WarehouseTableName(prefix, customerID, table string) string {
	var parts []string
	for _, p := range []string{prefix, customerID, table} {
		if id := identifier(p); id != "" {
			parts = append(parts, id)
		}
	}
	return strings.Join(parts, "_")
}

func identifier(s string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore {
			b.WriteByte('_')
			underscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}
