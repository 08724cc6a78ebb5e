package domain

import (
	"time"

	"github.com/google/uuid"
)

// Record is a catalog entity of any kind, keyed by its identifier.
//
// Fields only carries the columns the source upload provided, so an update
// leaves columns absent from the upload untouched. Values are string, int64,
// float64, []string or nil.
type Record struct {
	ID         uuid.UUID      `json:"id"`
	Kind       Kind           `json:"kind"`
	Identifier string         `json:"identifier"`
	Fields     map[string]any `json:"fields"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// NewRecord creates a record with a fresh id.
func NewRecord(kind Kind, identifier string, fields map[string]any) Record {
	now := time.Now().UTC()
	return Record{
		ID:         uuid.New(),
		Kind:       kind,
		Identifier: identifier,
		Fields:     copyFields(fields),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Merge returns a copy of r with the given fields overlaid.
func (r Record) Merge(fields map[string]any) Record {
	merged := copyFields(r.Fields)
	for key, value := range fields {
		merged[key] = copyValue(value)
	}
	r.Fields = merged
	r.UpdatedAt = time.Now().UTC()
	return r
}

func copyFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for key, value := range fields {
		out[key] = copyValue(value)
	}
	return out
}

func copyValue(value any) any {
	if list, ok := value.([]string); ok {
		return append([]string{}, list...)
	}
	return value
}
