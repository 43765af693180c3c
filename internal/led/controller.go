// Package led drives a board status LED from the display lifecycle: solid
// while every display is attached and healthy, heartbeat after an attach
// failure or a line fault, off when nothing is attached.
package led

// Pattern is how a status LED is lit.
type Pattern string

// Patterns understood by every Controller.
const (
	Off   Pattern = "off"
	Solid Pattern = "solid"
	Blink Pattern = "blink"
)

// Controller sets board LEDs by board-specific name, such as "act" on a
// Raspberry Pi.
type Controller interface {
	Set(name string, p Pattern) error
	Available() []string
}
