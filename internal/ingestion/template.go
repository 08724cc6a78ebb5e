package ingestion

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/rpattn/flowlib/internal/domain"
)

// Template renders a CSV with the full header for kind and one example row.
func (s *Service) Template(kind domain.Kind) ([]byte, error) {
	entry, err := s.registry.Lookup(kind)
	if err != nil {
		return nil, err
	}

	example := []string{string(domain.ActionUpsert), "example-" + string(kind)}
	for _, column := range entry.Columns {
		example = append(example, column.Example)
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(entry.Headers()); err != nil {
		return nil, fmt.Errorf("failed to write template header: %w", err)
	}
	if err := writer.Write(example); err != nil {
		return nil, fmt.Errorf("failed to write template row: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to render template: %w", err)
	}
	return buf.Bytes(), nil
}
