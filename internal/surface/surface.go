// Package surface implements the two user-facing front ends of a display:
// a byte stream read and written like a character device, and a text
// attribute shown and stored like a sysfs file. Neither keeps a copy of the
// digit; every call goes to the Digit behind it.
package surface

import "github.com/smazurov/sevenseg/internal/display"

// ErrInvalidInput is returned for malformed or out of range input.
var ErrInvalidInput = display.ErrInvalidInput

// Digit is the state both surfaces operate on. *display.State implements it.
type Digit interface {
	Get() int
	Set(d int) error
}
