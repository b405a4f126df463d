package course

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNotFound is returned when an entity does not exist or is not owned by the requester.
var ErrNotFound = errors.New("not found")

// UnknownKindError is returned when a content kind is outside the closed set of Kinds.
type UnknownKindError struct {
	Kind string
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("unknown content kind %q", e.Kind)
}

// MalformedBulkInputError is returned when a bulk order payload cannot be parsed.
// No order is changed when it is returned.
type MalformedBulkInputError struct {
	Key    string
	Reason string
}

func (e *MalformedBulkInputError) Error() string {
	if e.Key == "" {
		return "malformed bulk order: " + e.Reason
	}
	return fmt.Sprintf("malformed bulk order: %q: %s", e.Key, e.Reason)
}

// InconsistentStateError is returned when a content slot references an item that does not exist.
type InconsistentStateError struct {
	ContentID int64
	Kind      Kind
	ItemID    int64
}

func (e *InconsistentStateError) Error() string {
	return fmt.Sprintf("content %d references missing %s item %d", e.ContentID, e.Kind, e.ItemID)
}

// IsNotFound reports whether the cause of err is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Cause(err) == ErrNotFound
}
