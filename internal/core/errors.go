package core

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Error taxonomy. Only ErrSourceFormat aborts a batch; the rest are
// contained at row or query level.
var (
	ErrValidation         = errors.New("validation failed")
	ErrUnknownField       = errors.New("unknown field")
	ErrInvalidFilter      = errors.New("invalid filter")
	ErrSourceFormat       = errors.New("invalid csv")
	ErrPersistence        = errors.New("persistence failure")
	ErrRecordNotFound     = errors.New("item not found")
	ErrArtifactWrite      = errors.New("failure report could not be written")
	ErrIncompatiblePlugin = errors.New("incompatible plugin")
)

// UnknownFieldError reports a field token with no canonical match.
type UnknownFieldError struct {
	Token string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("Unknown field: %q", e.Token)
}

// Is makes errors.Is(err, ErrUnknownField) match.
func (e *UnknownFieldError) Is(target error) bool {
	return target == ErrUnknownField
}

// SourceFormatError reports a structurally malformed row source.
type SourceFormatError struct {
	Line   int // 1-based physical record, 0 when not tied to a line
	Reason string
}

func (e *SourceFormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("invalid csv: line %d: %s", e.Line, e.Reason)
	}
	return "invalid csv: " + e.Reason
}

// Is makes errors.Is(err, ErrSourceFormat) match.
func (e *SourceFormatError) Is(target error) bool {
	return target == ErrSourceFormat
}

// newSourceFormatError builds a SourceFormatError with the expected header
// as a user hint.
func newSourceFormatError(line int, reason string) error {
	return errors.WithHintf(&SourceFormatError{Line: line, Reason: reason},
		"expected header: %s", strings.Join(Columns, ","))
}

// persistenceError wraps a store error so callers can match ErrPersistence
// while keeping the original cause.
func persistenceError(err error, op string) error {
	if errors.Is(err, ErrRecordNotFound) {
		return errors.Wrap(err, op)
	}
	return errors.Mark(errors.Wrap(err, op), ErrPersistence)
}

// errorTag returns the artifact category tag for a failed row.
func errorTag(violations []Violation, cause error) string {
	if len(violations) > 0 {
		if violations[0].Code != "" {
			return violations[0].Code
		}
		return "invalid_" + violations[0].Field
	}
	switch {
	case cause == nil:
		return ""
	case errors.Is(cause, ErrRecordNotFound):
		return "not_found:" + ColItemID
	case errors.Is(cause, errRepairDeclined):
		return "repair_declined"
	case errors.Is(cause, errMissingID):
		return "missing_field:" + ColItemID
	default:
		return "persistence_failure"
	}
}
