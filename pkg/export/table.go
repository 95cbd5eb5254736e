// Package export renders tabular registers into downloadable documents.
package export

import (
	"errors"
	"fmt"
)

// ErrNoColumns is returned when a table without columns is rendered.
var ErrNoColumns = errors.New("export requires at least one column")

// Column describes one field of a register. Width is a relative weight used
// by the PDF renderer; zero means 1.
type Column struct {
	Key    string
	Header string
	Width  float64
}

// Table is the renderer neutral register content.
type Table struct {
	Title   string
	Columns []Column
	Rows    []map[string]string
}

// Renderer turns a Table into file bytes.
type Renderer interface {
	Render(Table) ([]byte, error)
	Extension() string
	ContentType() string
}

// ForFormat returns the renderer registered for format ("csv" or "pdf").
func ForFormat(format string) (Renderer, error) {
	switch format {
	case "csv":
		return NewCSVRenderer(), nil
	case "pdf":
		return NewPDFRenderer(), nil
	}
	return nil, fmt.Errorf("unsupported export format %q", format)
}

func (t Table) headers() []string {
	out := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		out[i] = col.Header
		if out[i] == "" {
			out[i] = col.Key
		}
	}
	return out
}

func (t Table) record(row map[string]string) []string {
	out := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		out[i] = row[col.Key]
	}
	return out
}
