package rpio

import (
	"github.com/pkg/errors"
)

// ErrPeripheralUnavailable is matched by every error returned from Open.
// Usually it means the process lacks the privilege to open the memory device.
var ErrPeripheralUnavailable = errors.New("peripheral registers unavailable - are you root?")

// UnavailableError records the step of the mapping that failed.
type UnavailableError struct {
	Op   string
	Path string
	Err  error
}

func (e *UnavailableError) Error() string {
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *UnavailableError) Unwrap() error { return e.Err }

func (e *UnavailableError) Is(target error) bool {
	return target == ErrPeripheralUnavailable
}
