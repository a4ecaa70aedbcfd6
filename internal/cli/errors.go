package cli

import (
	"errors"
	"fmt"

	"github.com/mark3labs/oasbuilder/internal/spec"
)

var ErrUsage = errors.New("cli usage error")

// ErrInvalid is returned after a validation report with violations has been
// printed.
var ErrInvalid = errors.New("validation failed")

type usageError struct {
	msg string
}

func newUsageError(msg string) error {
	return usageError{msg: msg}
}

func (e usageError) Error() string {
	return e.msg
}

func (e usageError) Is(target error) bool {
	return target == ErrUsage
}

// explain maps structured document errors into usage errors carrying the
// location and pointer lines. Other errors pass through.
func explain(err error) error {
	var se *spec.SpecError
	if !errors.As(err, &se) {
		return err
	}
	msg := fmt.Sprintf("%s: %v", se.Code, err)
	if se.Location != "" {
		msg = fmt.Sprintf("%s\nLocation: %s", msg, se.Location)
	}
	if se.Pointer != "" {
		msg = fmt.Sprintf("%s\nPointer: %s", msg, se.Pointer)
	}
	return newUsageError(msg)
}
