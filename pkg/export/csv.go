package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// CSVRenderer writes a header line followed by one line per row.
type CSVRenderer struct{}

// NewCSVRenderer builds a CSV renderer.
func NewCSVRenderer() *CSVRenderer {
	return &CSVRenderer{}
}

// Extension implements Renderer.
func (r *CSVRenderer) Extension() string { return "csv" }

// ContentType implements Renderer.
func (r *CSVRenderer) ContentType() string { return "text/csv" }

// Render implements Renderer.
func (r *CSVRenderer) Render(t Table) ([]byte, error) {
	if len(t.Columns) == 0 {
		return nil, ErrNoColumns
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(t.headers()); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, row := range t.Rows {
		if err := writer.Write(t.record(row)); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
