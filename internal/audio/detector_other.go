//go:build !linux

package audio

// unsupported stands in where there is no /proc/asound to read.
type unsupported struct{}

func newPlatformDetector() Detector { return unsupported{} }

func (unsupported) ListDevices() ([]Device, error) { return nil, ErrUnsupported }
