package ingestion

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rpattn/flowlib/internal/auth"
	"github.com/rpattn/flowlib/internal/catalog"
	"github.com/rpattn/flowlib/internal/domain"
	"github.com/rpattn/flowlib/internal/logger"
	"github.com/rpattn/flowlib/internal/repository"
)

// sheetFileName stands in for the file name of a downloaded sheet export.
const sheetFileName = "sheet.csv"

// Service previews and commits catalog imports.
type Service struct {
	registry   *catalog.Registry
	classifier *Classifier
	logRepo    repository.ImportLogRepository
	sheets     *SheetFetcher
	logger     *zap.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithImportLog records commit errors in repo.
func WithImportLog(repo repository.ImportLogRepository) Option {
	return func(s *Service) {
		s.logRepo = repo
	}
}

// WithSheetFetcher sets the downloader used for sheet URL previews.
func WithSheetFetcher(fetcher *SheetFetcher) Option {
	return func(s *Service) {
		if fetcher != nil {
			s.sheets = fetcher
		}
	}
}

// WithLogger sets the fallback logger used when a request carries none.
func WithLogger(log *zap.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// NewService creates a new import service over registry.
func NewService(registry *catalog.Registry, opts ...Option) *Service {
	service := &Service{
		registry:   registry,
		classifier: NewClassifier(registry),
		sheets:     NewSheetFetcher(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Request describes one uploaded file, or a sheet link for previews.
type Request struct {
	Kind     domain.Kind
	FileName string
	Data     io.Reader
	SheetURL string
}

// Preview classifies every row without touching the store.
func (s *Service) Preview(ctx context.Context, req Request) (domain.PreviewResult, error) {
	start := time.Now()
	entry, fileName, rows, err := s.load(ctx, req, true)
	if err != nil {
		return domain.PreviewResult{}, err
	}

	outcomes := make([]domain.RowOutcome, len(rows))
	for i, row := range rows {
		outcomes[i] = s.classifier.Classify(ctx, entry, row)
	}
	result := domain.NewPreviewResult(outcomes)

	logger.FromContext(ctx, s.logger).Info("import preview",
		zap.String("kind", entry.Kind.String()),
		zap.String("file", fileName),
		zap.Int("total_rows", result.TotalRows),
		zap.Int("insert", result.InsertCount),
		zap.Int("update", result.UpdateCount),
		zap.Int("delete", result.DeleteCount),
		zap.Int("error", result.ErrorCount),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

// Commit re-classifies every row and applies the resulting plan.
func (s *Service) Commit(ctx context.Context, req Request) (domain.ImportReport, error) {
	start := time.Now()
	entry, fileName, rows, err := s.load(ctx, req, false)
	if err != nil {
		return domain.ImportReport{}, err
	}

	report := s.apply(ctx, entry, fileName, rows)

	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		actor = auth.ActorAnonymous
	}
	logger.FromContext(ctx, s.logger).Info("import commit",
		zap.String("actor", actor),
		zap.String("kind", entry.Kind.String()),
		zap.String("file", fileName),
		zap.Int("total_rows", len(rows)),
		zap.Int("inserted", report.Inserted),
		zap.Int("updated", report.Updated),
		zap.Int("deleted", report.Deleted),
		zap.Int("errors", len(report.Errors)),
		zap.Duration("duration", time.Since(start)),
	)
	return report, nil
}

// Records lists stored records of kind.
func (s *Service) Records(ctx context.Context, kind domain.Kind, limit, offset int) ([]domain.Record, error) {
	entry, err := s.registry.Lookup(kind)
	if err != nil {
		return nil, err
	}
	return entry.Store.List(ctx, limit, offset)
}

// Logs lists recent commit errors for kind.
func (s *Service) Logs(ctx context.Context, kind domain.Kind, limit, offset int) ([]domain.ImportLogEntry, error) {
	if _, err := s.registry.Lookup(kind); err != nil {
		return nil, err
	}
	if s.logRepo == nil {
		return []domain.ImportLogEntry{}, nil
	}
	return s.logRepo.List(ctx, kind, limit, offset)
}

func (s *Service) load(ctx context.Context, req Request, allowSheet bool) (catalog.Entry, string, []domain.ImportRow, error) {
	entry, err := s.registry.Lookup(req.Kind)
	if err != nil {
		return catalog.Entry{}, "", nil, err
	}

	fileName := req.FileName
	var payload []byte
	sheetURL := strings.TrimSpace(req.SheetURL)

	switch {
	case req.Data != nil:
		payload, err = io.ReadAll(req.Data)
		if err != nil {
			return catalog.Entry{}, "", nil, fmt.Errorf("failed to read upload: %w", err)
		}
	case sheetURL != "" && !allowSheet:
		return catalog.Entry{}, "", nil, ErrSheetCommitUnsupported
	case sheetURL != "":
		payload, err = s.sheets.Fetch(ctx, sheetURL)
		if err != nil {
			return catalog.Entry{}, "", nil, err
		}
		fileName = sheetFileName
	default:
		return catalog.Entry{}, "", nil, ErrMissingInput
	}

	rows, err := ParseRows(fileName, payload, entry.IdentifierColumn)
	if err != nil {
		return catalog.Entry{}, "", nil, err
	}
	return entry, fileName, rows, nil
}
