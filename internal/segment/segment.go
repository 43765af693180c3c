// Package segment maps decimal digits onto the lines of a common-cathode
// 7-segment display.
package segment

import (
	"fmt"
	"strings"
)

// Segments is the number of lines per display: seven strokes plus the decimal point.
const Segments = 8

// Digit is a value a single display can show.
type Digit int

// Digit bounds.
const (
	MinDigit Digit = 0
	MaxDigit Digit = 9
)

// Valid reports whether d can be displayed.
func (d Digit) Valid() bool {
	return d >= MinDigit && d <= MaxDigit
}

// Pattern holds one bit per segment line. Bit i set means line i is driven active.
type Pattern uint8

// Names lists the segment wired to each line, line 0 first.
var Names = [Segments]string{"a", "b", "c", "d", "e", "f", "g", "dp"}

// table is fixed by the wiring documentation; it changes only with the wiring.
var table = [10]Pattern{
	0b00111111, // 0
	0b00000110, // 1
	0b01011011, // 2
	0b01001111, // 3
	0b01100110, // 4
	0b01101101, // 5
	0b01111101, // 6
	0b00000111, // 7
	0b01111111, // 8
	0b01101111, // 9
}

// Encode returns the line pattern for d.
// Callers validate d first; an invalid digit is a programming error and panics.
func Encode(d Digit) Pattern {
	if !d.Valid() {
		panic(fmt.Sprintf("segment: digit %d out of range", d))
	}
	return table[d]
}

// Bit reports whether line i is active in p.
func (p Pattern) Bit(i int) bool {
	return (p>>uint(i))&1 == 1
}

// Lit returns the names of the active segments in line order.
func (p Pattern) Lit() []string {
	lit := make([]string, 0, Segments)
	for i := range Segments {
		if p.Bit(i) {
			lit = append(lit, Names[i])
		}
	}
	return lit
}

// String renders p as an 8-digit binary literal, line 7 first.
func (p Pattern) String() string {
	return fmt.Sprintf("0b%08b", uint8(p))
}

// Describe renders p as a comma separated list of lit segments.
func (p Pattern) Describe() string {
	lit := p.Lit()
	if len(lit) == 0 {
		return "-"
	}
	return strings.Join(lit, ",")
}
