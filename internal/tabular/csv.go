package tabular

import (
	"bytes"
	"encoding/csv"
	"io"

	"github.com/custodia-labs/adreports/internal/core/domain"
)

// WriteCSV writes the header and every row of t as CSV.
func WriteCSV(w io.Writer, t *domain.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, v := range row {
			record[i] = v.Text()
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// CSV returns t encoded as CSV.
func CSV(t *domain.Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
