package vk

import (
	"errors"
	"fmt"
)

// UnavailableError reports that every endpoint mirror failed for a
// method. It is the only error a group fetch surfaces to the caller.
type UnavailableError struct {
	Method string
	Err    error // failure from the last mirror tried
}

func (e *UnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("vk: all endpoints failed for %s", e.Method)
	}
	return fmt.Sprintf("vk: all endpoints failed for %s: %v", e.Method, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// IsUnavailable reports whether err is an exhausted-mirrors failure.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}
