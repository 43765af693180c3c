package device

import (
	"errors"
	"fmt"
)

// ErrorCode classifies attach failures.
type ErrorCode string

// Error codes.
const (
	CodeResourceUnavailable ErrorCode = "RESOURCE_UNAVAILABLE"
	CodeRegistrationFailed  ErrorCode = "REGISTRATION_FAILED"
)

// Sentinels matched by errors.Is against an *Error of the same code.
var (
	ErrResourceUnavailable = errors.New("resource unavailable")
	ErrRegistrationFailed  = errors.New("registration failed")
)

// Attach steps, in attach order.
const (
	StepAcquireLines     = "acquire_lines"
	StepCreateState      = "create_state"
	StepRegisterNode     = "register_node"
	StepPublishAttribute = "publish_attribute"
)

// Error is returned by Attach. The device is fully unwound when it is returned.
type Error struct {
	Code   ErrorCode
	Device string
	Step   string
	Cause  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: device %s: %s: %v", e.Code, e.Device, e.Step, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel of e's code.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrResourceUnavailable:
		return e.Code == CodeResourceUnavailable
	case ErrRegistrationFailed:
		return e.Code == CodeRegistrationFailed
	}
	return false
}

// HasCode checks if the error matches a specific code.
func (e *Error) HasCode(code ErrorCode) bool {
	return e.Code == code
}
