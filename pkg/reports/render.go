package reports

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
)

// render writes rows as CSV, or the items themselves as a JSON array.
func render[T any](format ReportFormat, headers []string, items []T, row func(T) []string) (io.Reader, error) {
	buf := &bytes.Buffer{}

	switch format {
	case "", ReportFormatCSV:
		writer := csv.NewWriter(buf)
		if err := writer.Write(headers); err != nil {
			return nil, fmt.Errorf("failed to write headers: %w", err)
		}
		for _, item := range items {
			if err := writer.Write(row(item)); err != nil {
				return nil, fmt.Errorf("failed to write row: %w", err)
			}
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			return nil, fmt.Errorf("failed to flush writer: %w", err)
		}
	case ReportFormatJSON:
		enc := json.NewEncoder(buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(items); err != nil {
			return nil, fmt.Errorf("failed to encode report: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown report format: %s", format)
	}

	return buf, nil
}
