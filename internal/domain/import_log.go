package domain

import (
	"time"

	"github.com/google/uuid"
)

// ImportLogEntry captures a row level failure that occurred during a commit.
type ImportLogEntry struct {
	ID           uuid.UUID `json:"id"`
	Kind         Kind      `json:"kind"`
	FileName     string    `json:"file_name"`
	LineNumber   *int      `json:"line_number,omitempty"`
	Identifier   string    `json:"identifier,omitempty"`
	ErrorMessage string    `json:"error_message"`
	CreatedAt    time.Time `json:"created_at"`
}
