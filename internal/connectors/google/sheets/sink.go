package sheets

import (
	"context"
	"sync"

	"google.golang.org/api/sheets/v4"

	"github.com/custodia-labs/adreports/internal/core/domain"
	"github.com/custodia-labs/adreports/internal/core/ports/driven"
)

var _ driven.SpreadsheetSink = (*Sink)(nil)

// Sink writes report tables to spreadsheets by URL. Spreadsheets are
// opened once and share their rate limiter across customers.
type Sink struct {
	svc *sheets.Service

	mu     sync.Mutex
	opened map[string]*Spreadsheet
}

// NewSink creates a Sink.
func NewSink(svc *sheets.Service) *Sink {
	return &Sink{svc: svc, opened: make(map[string]*Spreadsheet)}
}

// WriteTable writes table to the sheet tab of the spreadsheet at url.
func (s *Sink) WriteTable(ctx context.Context, url, sheet string, table *domain.Table) error {
	return s.spreadsheet(url).WriteTable(ctx, sheet, table)
}

func (s *Sink) spreadsheet(url string) *Spreadsheet {
	id := IDFromURL(url)
	s.mu.Lock()
	defer s.mu.Unlock()
	if sp, ok := s.opened[id]; ok {
		return sp
	}
	sp := Open(s.svc, url)
	s.opened[id] = sp
	return sp
}
