package ingestion

import (
	"context"
	"fmt"
	"regexp"

	"github.com/rpattn/flowlib/internal/catalog"
	"github.com/rpattn/flowlib/internal/domain"
)

var identifierPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// Classifier decides the status of a single row against the kind's store.
// A row is judged on its own: other rows in the same file never affect it.
type Classifier struct {
	registry *catalog.Registry
}

// NewClassifier creates a classifier that validates fields through registry.
func NewClassifier(registry *catalog.Registry) *Classifier {
	return &Classifier{registry: registry}
}

// plan is a classified row plus the storage values an insert or update writes.
type plan struct {
	row     domain.ImportRow
	outcome domain.RowOutcome
	fields  map[string]any
}

// Classify returns the outcome for row.
func (c *Classifier) Classify(ctx context.Context, entry catalog.Entry, row domain.ImportRow) domain.RowOutcome {
	return c.plan(ctx, entry, row).outcome
}

func (c *Classifier) plan(ctx context.Context, entry catalog.Entry, row domain.ImportRow) plan {
	p := plan{
		row: row,
		outcome: domain.RowOutcome{
			LineNumber: row.LineNumber,
			Action:     row.Action,
			Identifier: row.Identifier,
			Title:      row.Value(entry.TitleColumn),
		},
	}

	if row.ParseError != "" {
		return p.fail(row.ParseError)
	}
	if row.Identifier == "" || !identifierPattern.MatchString(row.Identifier) {
		return p.fail("invalid identifier")
	}

	switch row.Action {
	case domain.ActionDelete:
		exists, err := entry.Store.Exists(ctx, row.Identifier)
		if err != nil {
			return p.fail(fmt.Sprintf("lookup failed: %v", err))
		}
		if !exists {
			return p.fail("cannot delete: not found")
		}
		p.outcome.Status = domain.RowStatusDelete
		return p

	case domain.ActionUpsert:
		fields, err := c.registry.Fields(entry, row)
		if err != nil {
			return p.fail(err.Error())
		}
		exists, err := entry.Store.Exists(ctx, row.Identifier)
		if err != nil {
			return p.fail(fmt.Sprintf("lookup failed: %v", err))
		}
		p.fields = fields
		if exists {
			p.outcome.Status = domain.RowStatusUpdate
		} else {
			p.outcome.Status = domain.RowStatusInsert
		}
		return p

	default:
		return p.fail("invalid action")
	}
}

func (p plan) fail(message string) plan {
	p.outcome.Status = domain.RowStatusError
	p.outcome.Message = message
	p.fields = nil
	return p
}
