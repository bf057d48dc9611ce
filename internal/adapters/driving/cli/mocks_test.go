package cli

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/custodia-labs/adreports/internal/core/domain"
)

type mockReportRunner struct {
	def       domain.ReportDefinition
	customers []domain.Customer
	summary   *domain.RunSummary
	err       error
}

func (m *mockReportRunner) Run(_ context.Context, def domain.ReportDefinition, customers []domain.Customer) (*domain.RunSummary, error) {
	m.def = def
	m.customers = customers
	if m.err != nil {
		return nil, m.err
	}
	if m.summary != nil {
		return m.summary, nil
	}
	s := &domain.RunSummary{ID: "run-1", Report: def.Name}
	for _, c := range customers {
		s.Results = append(s.Results, domain.CustomerResult{Customer: c, Status: domain.CustomerSucceeded, Rows: 3})
	}
	s.Settle()
	return s, nil
}

func (m *mockReportRunner) Reports() []string { return []string{"shopping"} }

type mockRunHistory struct {
	runs []domain.RunSummary
}

func (m *mockRunHistory) GetRun(_ context.Context, id string) (*domain.RunSummary, error) {
	for i := range m.runs {
		if m.runs[i].ID == id {
			return &m.runs[i], nil
		}
	}
	return nil, fmt.Errorf("run %s: %w", id, domain.ErrNotFound)
}

func (m *mockRunHistory) ListRuns(_ context.Context, limit int) ([]domain.RunSummary, error) {
	if limit < len(m.runs) {
		return m.runs[:limit], nil
	}
	return m.runs, nil
}

type mockBatchRunner struct {
	customerID string
	ops        []domain.MutateOperation
	awaited    string
	results    []domain.OperationResult
	err        error
}

func (m *mockBatchRunner) Submit(_ context.Context, customerID string, ops []domain.MutateOperation) (*domain.BatchResult, error) {
	m.customerID = customerID
	m.ops = ops
	return &domain.BatchResult{CustomerID: customerID, Jobs: []string{"customers/1/batchJobs/9"}, Results: m.results}, m.err
}

func (m *mockBatchRunner) Await(_ context.Context, jobID string) ([]domain.OperationResult, error) {
	m.awaited = jobID
	return m.results, m.err
}

type mockLabels struct {
	labels   []domain.Label
	customer string
	ensured  string
	err      error
}

func (m *mockLabels) List(_ context.Context, customerID string) ([]domain.Label, error) {
	m.customer = customerID
	return m.labels, m.err
}

func (m *mockLabels) Ensure(_ context.Context, customerID, name string) (domain.Label, error) {
	m.customer = customerID
	m.ensured = name
	if m.err != nil {
		return domain.Label{}, m.err
	}
	return domain.Label{ResourceName: "customers/" + customerID + "/labels/77", ID: "77", Name: name}, nil
}

type mockSettings struct {
	settings domain.AppSettings
	values   map[string]any
	sched    domain.SchedulerConfig
}

func (m *mockSettings) Environment() domain.Environment { return domain.EnvironmentDevelopment }

func (m *mockSettings) Settings() domain.AppSettings { return m.settings }

func (m *mockSettings) SchedulerConfig() (domain.SchedulerConfig, error) { return m.sched, nil }

func (m *mockSettings) Value(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *mockSettings) SetValue(key, raw string) error {
	if key == "bogus" {
		return fmt.Errorf("config key %q: %w", key, domain.ErrInvalidInput)
	}
	if m.values == nil {
		m.values = make(map[string]any)
	}
	m.values[key] = raw
	return nil
}

// withServices swaps the package services for the duration of a test.
func withServices(t *testing.T, s Services) {
	t.Helper()
	old := Services{
		Reports:      reportRunner,
		History:      runHistory,
		Batch:        batchRunner,
		Labels:       labelManager,
		Scheduler:    scheduler,
		Settings:     settingsService,
		API:          apiHandler,
		ConfigPath:   configPath,
		ReloadConfig: reloadConfig,
	}
	SetServices(s)
	t.Cleanup(func() { SetServices(old) })
}

// execute runs the root command with fresh flag values.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	runCustomers, runShareWith, runOptions = nil, nil, nil
	runSheet, runWarehouseTable, runDriveFolder = "", "", ""
	runsLimit = 20
	batchCustomer, batchFile = "", ""
	labelsCustomer = ""
	authDir = ""

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}
