// Package export streams stored catalog records back out as CSV in the same
// column layout the importer reads, so an export can be edited and
// re-uploaded.
package export

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rpattn/flowlib/internal/catalog"
	"github.com/rpattn/flowlib/internal/domain"
)

const defaultPageSize = 500

// Service exports catalog kinds.
type Service struct {
	registry *catalog.Registry
	pageSize int
}

// Option customizes a Service.
type Option func(*Service)

// WithPageSize sets how many records are read from the store per query.
func WithPageSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.pageSize = size
		}
	}
}

// NewService creates an exporter over registry.
func NewService(registry *catalog.Registry, opts ...Option) *Service {
	service := &Service{registry: registry, pageSize: defaultPageSize}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// WriteCSV writes every record of kind to w and returns the number of rows
// written, excluding the header.
func (s *Service) WriteCSV(ctx context.Context, kind domain.Kind, w io.Writer) (int, error) {
	entry, err := s.registry.Lookup(kind)
	if err != nil {
		return 0, err
	}

	buffered := bufio.NewWriter(w)
	csvWriter := csv.NewWriter(buffered)
	if err := csvWriter.Write(entry.Headers()); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	row := make([]string, 0, len(entry.Columns)+2)
	exported := 0
	for offset := 0; ; offset += s.pageSize {
		if err := ctx.Err(); err != nil {
			return exported, err
		}
		records, err := entry.Store.List(ctx, s.pageSize, offset)
		if err != nil {
			return exported, fmt.Errorf("list %s: %w", kind, err)
		}
		for _, record := range records {
			row = append(row[:0], string(domain.ActionUpsert), record.Identifier)
			for _, column := range entry.Columns {
				row = append(row, formatValue(record.Fields[column.Name]))
			}
			if err := csvWriter.Write(row); err != nil {
				return exported, fmt.Errorf("write %s %q: %w", kind, record.Identifier, err)
			}
			exported++
		}
		if len(records) < s.pageSize {
			break
		}
	}

	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return exported, fmt.Errorf("flush csv: %w", err)
	}
	if err := buffered.Flush(); err != nil {
		return exported, fmt.Errorf("flush export: %w", err)
	}
	return exported, nil
}

// FileName is the download name for an export of kind taken at now.
func FileName(kind domain.Kind, now time.Time) string {
	return fmt.Sprintf("%s_%s.csv", kind, now.UTC().Format("20060102T150405Z"))
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		return strings.Join(v, domain.ListSeparator)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
