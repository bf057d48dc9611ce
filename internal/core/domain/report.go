package domain

import (
	"strings"
	"time"
)

// SourceType identifies a report source.
type SourceType string

// Known report sources.
const (
	SourceGoogleAds SourceType = "google_ads"
	SourceFacebook  SourceType = "facebook"
	SourceAnalytics SourceType = "analytics"
	SourceMerchant  SourceType = "merchant"
)

// Customer is one account a report is produced for.
type Customer struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// ParseCustomer parses "id" or "id:name".
func ParseCustomer(s string) Customer {
	id, name, _ := strings.Cut(strings.TrimSpace(s), ":")
	return Customer{ID: strings.TrimSpace(id), Name: strings.TrimSpace(name)}
}

// Label returns the name when set, otherwise the ID.
func (c Customer) Label() string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}

// ReportDefinition names a report and its output targets.
type ReportDefinition struct {
	// Name is the registered report name.
	Name string

	// SpreadsheetURL receives the report tables, if set.
	SpreadsheetURL string

	// WarehouseTable prefixes the warehouse table names, if set.
	WarehouseTable string

	// DriveFolderID receives CSV exports, if set.
	DriveFolderID string

	// ShareWith lists emails given access to exported files.
	ShareWith []string

	// Options holds report specific settings.
	Options map[string]string
}

// NamedTable is a table destined for one sheet or warehouse table.
type NamedTable struct {
	Name  string
	Table *Table
}

// ReportOutput is what a report produces for one customer.
type ReportOutput struct {
	Tables []NamedTable
}

// Rows returns the total row count across tables.
func (o *ReportOutput) Rows() int {
	if o == nil {
		return 0
	}
	n := 0
	for _, t := range o.Tables {
		if t.Table != nil {
			n += t.Table.Len()
		}
	}
	return n
}

// CustomerStatus is the outcome of one customer's report.
type CustomerStatus string

// Customer statuses.
const (
	CustomerSucceeded CustomerStatus = "succeeded"
	CustomerFailed    CustomerStatus = "failed"
)

// CustomerResult is sent by each worker when it finishes.
type CustomerResult struct {
	RunID      string         `json:"run_id"`
	Customer   Customer       `json:"customer"`
	Status     CustomerStatus `json:"status"`
	Rows       int            `json:"rows"`
	Error      string         `json:"error,omitempty"`
	// Stack is the goroutine stack of a recovered panic. Returned errors leave it empty.
	Stack      string         `json:"stack,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

// RunStatus is the state of a report run.
type RunStatus string

// Run statuses.
const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunPartial   RunStatus = "partial"
	RunFailed    RunStatus = "failed"
)

// RunSummary is the end-of-run record for a report.
type RunSummary struct {
	ID         string           `json:"id"`
	Report     string           `json:"report"`
	Status     RunStatus        `json:"status"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at,omitempty"`
	Results    []CustomerResult `json:"results,omitempty"`
}

// Failures returns the failed customer results.
func (s *RunSummary) Failures() []CustomerResult {
	var out []CustomerResult
	for _, r := range s.Results {
		if r.Status == CustomerFailed {
			out = append(out, r)
		}
	}
	return out
}

// TotalRows sums rows across customers.
func (s *RunSummary) TotalRows() int {
	n := 0
	for _, r := range s.Results {
		n += r.Rows
	}
	return n
}

// Settle derives the run status from the customer results.
func (s *RunSummary) Settle() {
	failed := len(s.Failures())
	switch {
	case failed == 0:
		s.Status = RunSucceeded
	case failed == len(s.Results):
		s.Status = RunFailed
	default:
		s.Status = RunPartial
	}
}

// Attachment is a file sent with an email.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Email is a message for the Mailer.
type Email struct {
	To          []string
	Cc          []string
	Bcc         []string
	Subject     string
	Body        string
	HTML        bool
	Attachments []Attachment
}

// Notification is a message for the Notifier.
type Notification struct {
	// Channel is a channel name or user email.
	Channel string
	Text    string
	// Fields are rendered as attachment fields.
	Fields []NotificationField
	// Color is an attachment colour such as "danger" or "good".
	Color string
}

// NotificationField is a title/value pair shown in a notification.
type NotificationField struct {
	Title string
	Value string
	Short bool
}

// ReportQuery describes what a ReportSource should fetch.
type ReportQuery struct {
	// CustomerID is the account, ad account or property the query runs against.
	CustomerID string

	// Query is a source specific query, such as GAQL for Google Ads.
	Query string

	// Fields lists the requested fields when the source takes a field list.
	Fields []string

	// Params holds source specific parameters (date_preset, level, ...).
	Params map[string]string
}

// Param returns the named parameter or def.
func (q ReportQuery) Param(name, def string) string {
	if v, ok := q.Params[name]; ok && v != "" {
		return v
	}
	return def
}
