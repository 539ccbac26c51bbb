package led

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const sysfsLEDPath = "/sys/class/leds"

// sysfs drives an LED through /sys/class/leds/<name>.
type sysfs struct {
	dir  string
	name string

	mu       sync.Mutex
	original string // trigger active before the first Show
	saved    bool
}

func newSysfs(root, name string) *sysfs {
	return &sysfs{dir: filepath.Join(root, name), name: name}
}

func (s *sysfs) Name() string { return s.name }

func (s *sysfs) Show(p Pattern) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.saved {
		trigger, err := s.currentTrigger()
		if err != nil {
			return err
		}
		s.original, s.saved = trigger, true
	}

	switch p {
	case PatternBlink:
		return s.write("trigger", "heartbeat")
	case PatternSolid:
		if err := s.write("trigger", "none"); err != nil {
			return err
		}
		return s.write("brightness", "1")
	case PatternOff:
		if err := s.write("trigger", "none"); err != nil {
			return err
		}
		return s.write("brightness", "0")
	default:
		return fmt.Errorf("unknown LED pattern %q", p)
	}
}

func (s *sysfs) Restore() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.saved {
		return nil
	}
	return s.write("trigger", s.original)
}

// currentTrigger returns the bracketed entry of the trigger file,
// e.g. "mmc0" from "none [mmc0] heartbeat".
func (s *sysfs) currentTrigger() (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, "trigger"))
	if err != nil {
		return "", fmt.Errorf("LED %s unavailable: %w", s.name, err)
	}
	for _, field := range strings.Fields(string(data)) {
		if strings.HasPrefix(field, "[") && strings.HasSuffix(field, "]") {
			return strings.Trim(field, "[]"), nil
		}
	}
	return "none", nil
}

func (s *sysfs) write(file, value string) error {
	if err := os.WriteFile(filepath.Join(s.dir, file), []byte(value), 0o644); err != nil {
		return fmt.Errorf("failed to set LED %s %s: %w", s.name, file, err)
	}
	return nil
}
