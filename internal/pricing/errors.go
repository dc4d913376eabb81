package pricing

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownOption is returned when a selection references an option that does not belong to the product.
	ErrUnknownOption = errors.New("unknown option")
	// ErrMultipleSelectionsInGroup is returned when more than one option is chosen from a single-choice group.
	ErrMultipleSelectionsInGroup = errors.New("multiple selections in group")
	// ErrMissingRequiredGroup is returned when a required option group has no selection.
	ErrMissingRequiredGroup = errors.New("missing required group")
)

// ValidationError describes why a selection was rejected. It unwraps to one of the
// sentinel errors above so callers can use errors.Is.
type ValidationError struct {
	Kind     error
	OptionID string
	Group    string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.OptionID != "" && e.Group != "":
		return fmt.Sprintf("pricing: %v: option %q in group %q", e.Kind, e.OptionID, e.Group)
	case e.OptionID != "":
		return fmt.Sprintf("pricing: %v: option %q", e.Kind, e.OptionID)
	case e.Group != "":
		return fmt.Sprintf("pricing: %v: group %q", e.Kind, e.Group)
	default:
		return fmt.Sprintf("pricing: %v", e.Kind)
	}
}

// Unwrap exposes the sentinel kind.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Kind
}
