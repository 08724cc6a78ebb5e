package domain

import "strings"

// Action is the intent declared on an import row.
type Action string

const (
	ActionUpsert Action = "upsert"
	ActionDelete Action = "delete"
)

// RowStatus is the classification of a row against the current store.
type RowStatus string

const (
	RowStatusInsert RowStatus = "insert"
	RowStatusUpdate RowStatus = "update"
	RowStatusDelete RowStatus = "delete"
	RowStatusError  RowStatus = "error"
)

// ImportRow is one parsed data line of an upload.
type ImportRow struct {
	LineNumber int
	Action     Action
	Identifier string
	// Values holds every header column, including action and identifier.
	Values map[string]string
	// ParseError is set when the line could not be decoded; Values is then empty.
	ParseError string
}

// Value returns the trimmed cell for column, or "" when the column is absent.
func (r ImportRow) Value(column string) string {
	if r.Values == nil {
		return ""
	}
	return r.Values[column]
}

// Has reports whether the upload header carried column.
func (r ImportRow) Has(column string) bool {
	if r.Values == nil {
		return false
	}
	_, ok := r.Values[column]
	return ok
}

// RowOutcome is the classification of a single ImportRow.
type RowOutcome struct {
	LineNumber int       `json:"line_number"`
	Status     RowStatus `json:"status"`
	Action     Action    `json:"action"`
	Identifier string    `json:"slug"`
	Title      string    `json:"title"`
	Message    string    `json:"message,omitempty"`
}

// PreviewResult aggregates the outcomes of one uploaded file.
type PreviewResult struct {
	TotalRows   int          `json:"total_rows"`
	InsertCount int          `json:"insert_count"`
	UpdateCount int          `json:"update_count"`
	DeleteCount int          `json:"delete_count"`
	ErrorCount  int          `json:"error_count"`
	Rows        []RowOutcome `json:"rows"`
}

// NewPreviewResult tallies outcomes while keeping their order.
func NewPreviewResult(outcomes []RowOutcome) PreviewResult {
	result := PreviewResult{Rows: make([]RowOutcome, 0, len(outcomes))}
	for _, outcome := range outcomes {
		switch outcome.Status {
		case RowStatusInsert:
			result.InsertCount++
		case RowStatusUpdate:
			result.UpdateCount++
		case RowStatusDelete:
			result.DeleteCount++
		default:
			result.ErrorCount++
		}
		result.Rows = append(result.Rows, outcome)
	}
	result.TotalRows = len(result.Rows)
	return result
}

// ImportReport summarizes a committed import.
type ImportReport struct {
	Inserted int      `json:"inserted"`
	Updated  int      `json:"updated"`
	Deleted  int      `json:"deleted"`
	Errors   []string `json:"errors"`
}

// ListSeparator splits list-valued columns such as categories and tools.
const ListSeparator = "|"

// SplitList turns "a| b ||c" into [a b c]. An all-empty value yields an empty list.
func SplitList(value string) []string {
	items := []string{}
	for _, part := range strings.Split(value, ListSeparator) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
