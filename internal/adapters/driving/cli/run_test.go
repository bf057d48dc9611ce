package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/adreports/internal/core/domain"
)

func TestRunCmd_Use(t *testing.T) {
	assert.Equal(t, "run <report>", runCmd.Use)
}

func TestRunCmd_NotConfigured(t *testing.T) {
	withServices(t, Services{})

	_, err := execute(t, "run", "shopping", "--customer", "1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "report service not configured")
}

func TestRunCmd_RequiresCustomer(t *testing.T) {
	withServices(t, Services{Reports: &mockReportRunner{}})

	_, err := execute(t, "run", "shopping")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "--customer")
}

func TestRunCmd_Executes(t *testing.T) {
	runner := &mockReportRunner{}
	settings := &mockSettings{settings: domain.AppSettings{
		SpreadsheetURL: "https://docs.google.com/spreadsheets/d/default/edit",
		DriveFolderID:  "folder",
	}}
	withServices(t, Services{Reports: runner, Settings: settings})

	out, err := execute(t, "run", "shopping",
		"-c", "123-456:Acme", "-c", "789,555:Other",
		"-o", "date_range=LAST_7_DAYS")

	require.NoError(t, err)
	assert.Contains(t, out, "Running shopping for 3 customers")
	assert.Contains(t, out, "Run run-1: succeeded (9 rows)")
	assert.Contains(t, out, "Acme")
	assert.Equal(t, "https://docs.google.com/spreadsheets/d/default/edit", runner.def.SpreadsheetURL)
	assert.Equal(t, "folder", runner.def.DriveFolderID)
	assert.Equal(t, map[string]string{"date_range": "LAST_7_DAYS"}, runner.def.Options)
	assert.Equal(t, []domain.Customer{{ID: "123-456", Name: "Acme"}, {ID: "789"}, {ID: "555", Name: "Other"}}, runner.customers)
}

func TestRunCmd_SheetFlagWins(t *testing.T) {
	runner := &mockReportRunner{}
	settings := &mockSettings{settings: domain.AppSettings{SpreadsheetURL: "default"}}
	withServices(t, Services{Reports: runner, Settings: settings})

	_, err := execute(t, "run", "shopping", "-c", "1", "--sheet", "explicit")

	require.NoError(t, err)
	assert.Equal(t, "explicit", runner.def.SpreadsheetURL)
}

func TestRunCmd_AllFailed(t *testing.T) {
	runner := &mockReportRunner{summary: &domain.RunSummary{
		ID:     "run-2",
		Status: domain.RunFailed,
		Results: []domain.CustomerResult{
			{Customer: domain.Customer{ID: "1"}, Status: domain.CustomerFailed, Error: "permission denied"},
		},
	}}
	withServices(t, Services{Reports: runner})

	out, err := execute(t, "run", "shopping", "-c", "1")

	require.Error(t, err)
	assert.Contains(t, out, "FAILED  permission denied")
}

func TestRunCmd_RunError(t *testing.T) {
	withServices(t, Services{Reports: &mockReportRunner{err: errors.New("report \"x\": not found")}})

	_, err := execute(t, "run", "x", "-c", "1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "run failed")
}

func TestParseOptions(t *testing.T) {
	opts, err := parseOptions([]string{"a=1", " b = two "})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "b": "two"}, opts)

	_, err = parseOptions([]string{"novalue"})
	assert.Error(t, err)

	opts, err = parseOptions(nil)
	require.NoError(t, err)
	assert.Nil(t, opts)
}
