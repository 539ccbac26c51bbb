// Package led drives a board LED as a tally light: lit while any RTSP
// client is playing, dark otherwise.
package led

// Pattern is what the LED shows.
type Pattern string

// Patterns.
const (
	PatternOff   Pattern = "off"
	PatternSolid Pattern = "solid"
	PatternBlink Pattern = "blink"
)

// Indicator is a single LED.
type Indicator interface {
	// Show switches the LED to p.
	Show(p Pattern) error
	// Restore hands the LED back to the trigger it had before the first Show.
	Restore() error
	// Name identifies the LED in logs.
	Name() string
}
