// Package sheets reads and writes Google Sheets spreadsheets and writes
// report tables to sheet tabs.
package sheets

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/sheets/v4"

	"github.com/custodia-labs/adreports/internal/connectors/google"
	"github.com/custodia-labs/adreports/internal/core/domain"
)

// Value input options.
const (
	InputRaw         = "RAW"
	InputUserEntered = "USER_ENTERED"
)

// IDFromURL returns the path element after "/d/" in a spreadsheet URL.
// A bare ID is returned unchanged.
func IDFromURL(url string) string {
	parts := strings.Split(url, "/")
	for i, p := range parts {
		if p == "d" && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return url
}

// Spreadsheet is one spreadsheet document.
type Spreadsheet struct {
	svc        *sheets.Service
	limiter    *google.RateLimiter
	id         string
	url        string
	inputValue string
}

// Open returns the spreadsheet at url. No request is made.
func Open(svc *sheets.Service, url string) *Spreadsheet {
	return &Spreadsheet{
		svc:        svc,
		limiter:    google.NewRateLimiter(google.ServiceSheets),
		id:         IDFromURL(url),
		url:        url,
		inputValue: InputRaw,
	}
}

// Create makes a new spreadsheet titled title with one tab called sheet.
func Create(ctx context.Context, svc *sheets.Service, title, sheet string) (*Spreadsheet, error) {
	body := &sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{Title: title},
		Sheets:     []*sheets.Sheet{{Properties: &sheets.SheetProperties{Title: sheet}}},
	}
	resp, err := svc.Spreadsheets.Create(body).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("create spreadsheet %q: %w", title, google.WrapError(err))
	}
	return Open(svc, resp.SpreadsheetUrl), nil
}

// ID returns the spreadsheet ID.
func (s *Spreadsheet) ID() string { return s.id }

// URL returns the spreadsheet URL.
func (s *Spreadsheet) URL() string { return s.url }

// SetValueInputOption switches between RAW and USER_ENTERED writes.
func (s *Spreadsheet) SetValueInputOption(opt string) { s.inputValue = opt }

// Write writes every range in data in one batch. Keys are A1 ranges such
// as "Merchant Data!A1".
func (s *Spreadsheet) Write(ctx context.Context, data map[string][][]any) error {
	req := &sheets.BatchUpdateValuesRequest{ValueInputOption: s.inputValue}
	for rng, values := range data {
		req.Data = append(req.Data, &sheets.ValueRange{Range: rng, Values: values})
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	if _, err := s.svc.Spreadsheets.Values.BatchUpdate(s.id, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("write values: %w", google.WrapError(err))
	}
	return nil
}

// Append adds rows after the last row of rng.
func (s *Spreadsheet) Append(ctx context.Context, rng string, rows [][]any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	body := &sheets.ValueRange{MajorDimension: "ROWS", Values: rows}
	_, err := s.svc.Spreadsheets.Values.Append(s.id, rng, body).
		ValueInputOption(s.inputValue).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append %s: %w", rng, google.WrapError(err))
	}
	return nil
}

// Read returns the values of each A1 range, keyed by range.
func (s *Spreadsheet) Read(ctx context.Context, ranges ...string) (map[string][][]any, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := s.svc.Spreadsheets.Values.BatchGet(s.id).Ranges(ranges...).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read values: %w", google.WrapError(err))
	}
	out := make(map[string][][]any, len(ranges))
	for i, vr := range resp.ValueRanges {
		if i < len(ranges) {
			out[ranges[i]] = vr.Values
		}
	}
	return out, nil
}

// SheetIDs returns the tab titles mapped to their sheet IDs.
func (s *Spreadsheet) SheetIDs(ctx context.Context) (map[string]int64, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	meta, err := s.svc.Spreadsheets.Get(s.id).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get spreadsheet: %w", google.WrapError(err))
	}
	out := make(map[string]int64, len(meta.Sheets))
	for _, sh := range meta.Sheets {
		if sh.Properties != nil {
			out[sh.Properties.Title] = sh.Properties.SheetId
		}
	}
	return out, nil
}

// AddSheet adds a tab and returns its sheet ID.
func (s *Spreadsheet) AddSheet(ctx context.Context, title string) (int64, error) {
	resp, err := s.batchUpdate(ctx, &sheets.Request{
		AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: title}},
	})
	if err != nil {
		return 0, fmt.Errorf("add sheet %q: %w", title, err)
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil {
		return 0, fmt.Errorf("add sheet %q: empty reply", title)
	}
	return resp.Replies[0].AddSheet.Properties.SheetId, nil
}

// DeleteSheet removes a tab.
func (s *Spreadsheet) DeleteSheet(ctx context.Context, sheetID int64) error {
	_, err := s.batchUpdate(ctx, &sheets.Request{
		DeleteSheet: &sheets.DeleteSheetRequest{SheetId: sheetID},
	})
	if err != nil {
		return fmt.Errorf("delete sheet %d: %w", sheetID, err)
	}
	return nil
}

// RenameSheet changes a tab title.
func (s *Spreadsheet) RenameSheet(ctx context.Context, sheetID int64, title string) error {
	_, err := s.batchUpdate(ctx, &sheets.Request{
		UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
			Properties: &sheets.SheetProperties{SheetId: sheetID, Title: title},
			Fields:     "title",
		},
	})
	if err != nil {
		return fmt.Errorf("rename sheet %d: %w", sheetID, err)
	}
	return nil
}

// ClearSheet clears rng, e.g. "Merchant Data!A:Z".
func (s *Spreadsheet) ClearSheet(ctx context.Context, rng string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := s.svc.Spreadsheets.Values.Clear(s.id, rng, &sheets.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear %s: %w", rng, google.WrapError(err))
	}
	return nil
}

// Format applies raw batchUpdate requests such as conditional formatting.
func (s *Spreadsheet) Format(ctx context.Context, requests ...*sheets.Request) error {
	_, err := s.batchUpdate(ctx, requests...)
	return err
}

func (s *Spreadsheet) batchUpdate(ctx context.Context, requests ...*sheets.Request) (*sheets.BatchUpdateSpreadsheetResponse, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := s.svc.Spreadsheets.BatchUpdate(s.id, &sheets.BatchUpdateSpreadsheetRequest{Requests: requests}).
		Context(ctx).
		Do()
	if err != nil {
		return nil, google.WrapError(err)
	}
	return resp, nil
}

// WriteTable replaces the contents of sheet with table: header at A1 and
// values from A2. The tab is created when missing.
func (s *Spreadsheet) WriteTable(ctx context.Context, sheet string, table *domain.Table) error {
	ids, err := s.SheetIDs(ctx)
	if err != nil {
		return err
	}
	if _, ok := ids[sheet]; !ok {
		if _, err := s.AddSheet(ctx, sheet); err != nil {
			return err
		}
	} else if err := s.ClearSheet(ctx, quoteSheet(sheet)); err != nil {
		return err
	}

	data := map[string][][]any{
		quoteSheet(sheet) + "!A1": {table.Header()},
	}
	if table.Len() > 0 {
		data[quoteSheet(sheet)+"!A2"] = table.Values()
	}
	return s.Write(ctx, data)
}

// quoteSheet quotes a tab title for A1 notation.
func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}
