package ingestion

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rpattn/flowlib/internal/catalog"
	"github.com/rpattn/flowlib/internal/domain"
	"github.com/rpattn/flowlib/internal/logger"
	"github.com/rpattn/flowlib/internal/repository"
)

// apply classifies every row against the pre-commit snapshot and then
// mutates the store in file order. A failing row is reported and skipped;
// it never stops the rows after it.
func (s *Service) apply(ctx context.Context, entry catalog.Entry, fileName string, rows []domain.ImportRow) domain.ImportReport {
	plans := make([]plan, len(rows))
	for i, row := range rows {
		plans[i] = s.classifier.plan(ctx, entry, row)
	}

	report := domain.ImportReport{Errors: []string{}}
	insertedAt := make(map[string]int)

	for _, p := range plans {
		var err error
		switch p.outcome.Status {
		case domain.RowStatusError:
			err = errors.New(p.outcome.Message)

		case domain.RowStatusInsert:
			if line, seen := insertedAt[p.row.Identifier]; seen {
				err = fmt.Errorf("duplicate identifier %q: already inserted at line %d", p.row.Identifier, line)
				break
			}
			record := domain.NewRecord(entry.Kind, p.row.Identifier, entry.WithDefaults(p.fields))
			if _, err = entry.Store.Insert(ctx, record); err == nil {
				insertedAt[p.row.Identifier] = p.row.LineNumber
				report.Inserted++
			}

		case domain.RowStatusUpdate:
			if _, err = entry.Store.Update(ctx, p.row.Identifier, p.fields); err == nil {
				report.Updated++
			}

		case domain.RowStatusDelete:
			if err = entry.Store.Delete(ctx, p.row.Identifier); err == nil {
				report.Deleted++
			}
		}

		if err != nil {
			s.recordFailure(ctx, entry.Kind, fileName, p, describeStoreError(p, err), &report)
		}
	}

	return report
}

func describeStoreError(p plan, err error) string {
	switch {
	case errors.Is(err, repository.ErrAlreadyExists):
		return fmt.Sprintf("duplicate identifier %q: already exists", p.row.Identifier)
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Sprintf("cannot %s: not found", p.outcome.Status)
	default:
		return err.Error()
	}
}

func (s *Service) recordFailure(ctx context.Context, kind domain.Kind, fileName string, p plan, message string, report *domain.ImportReport) {
	report.Errors = append(report.Errors, formatRowError(p.row, message))

	log := logger.FromContext(ctx, s.logger)
	log.Debug("import row failed",
		zap.String("kind", kind.String()),
		zap.Int("line", p.row.LineNumber),
		zap.String("identifier", p.row.Identifier),
		zap.String("error", message),
	)

	if s.logRepo == nil {
		return
	}
	line := p.row.LineNumber
	entry := domain.ImportLogEntry{
		Kind:         kind,
		FileName:     fileName,
		LineNumber:   &line,
		Identifier:   p.row.Identifier,
		ErrorMessage: message,
	}
	if err := s.logRepo.Record(ctx, entry); err != nil {
		log.Warn("failed to record import log entry", zap.Error(err))
	}
}

func formatRowError(row domain.ImportRow, message string) string {
	if row.Identifier == "" {
		return fmt.Sprintf("line %d: %s", row.LineNumber, message)
	}
	return fmt.Sprintf("line %d (%s): %s", row.LineNumber, row.Identifier, message)
}
