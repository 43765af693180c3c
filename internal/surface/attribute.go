package surface

import (
	"fmt"
	"strconv"
	"strings"
)

// Attribute is the text front end.
type Attribute struct {
	digit Digit
}

// NewAttribute returns an attribute over digit.
func NewAttribute(digit Digit) *Attribute {
	return &Attribute{digit: digit}
}

// Show returns the digit as "<d>\n".
func (a *Attribute) Show() string {
	return strconv.Itoa(a.digit.Get()) + "\n"
}

// Store parses buf as an unsigned integer and sets it. It returns len(buf)
// on success. Values above 9 fail with ErrInvalidInput.
func (a *Attribute) Store(buf string) (int, error) {
	v, err := ParseUint(buf)
	if err != nil {
		return 0, err
	}
	if v > 9 {
		return 0, fmt.Errorf("%w: %d exceeds 9", ErrInvalidInput, v)
	}
	if err := a.digit.Set(int(v)); err != nil {
		return 0, err
	}
	return len(buf), nil
}

// ParseUint follows the kernel's kstrtoul(s, 0) rules: one trailing newline
// is allowed, a leading '+' is allowed, "0x" selects hex and a leading "0"
// selects octal. Any other character, including whitespace, is rejected.
func ParseUint(s string) (uint64, error) {
	orig := s
	s = strings.TrimSuffix(s, "\n")
	s = strings.TrimPrefix(s, "+")

	base := 10
	switch {
	case len(s) > 2 && (s[:2] == "0x" || s[:2] == "0X"):
		base = 16
		s = s[2:]
	case len(s) > 1 && s[0] == '0':
		base = 8
		s = s[1:]
	}

	if s == "" || strings.ContainsAny(s, "_+-") {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidInput, orig)
	}
	v, err := strconv.ParseUint(s, base, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidInput, orig)
	}
	return v, nil
}
