package core

import (
	"strings"

	"ndsphere/internal/errors"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// RunID identifies one convergence sweep
type RunID ID

func (id RunID) String() string { return ID(id).String() }

// NewRunID returns a fresh, time-ordered run identifier
func NewRunID() RunID {
	return RunID(NewID())
}

// ParseRunID parses a stored run identifier. Run IDs are UUIDs.
func ParseRunID(s string) (RunID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errors.InvalidInput("run ID cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return "", errors.Newf(errors.CodeInvalidInput, "run ID %q is not a UUID", s)
	}
	return RunID(id.String()), nil
}
