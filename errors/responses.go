package errors

import (
	"errors"
)

// As wraps the standard errors.As so callers need a single errors import.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Is wraps the standard errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// TypeOf returns the category of the first KotobaError in err's chain,
// or InternalError when there is none.
func TypeOf(err error) ErrorType {
	var kerr *KotobaError
	if As(err, &kerr) {
		return kerr.Type
	}
	return InternalError
}
