package led

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const deviceTreeModelPath = "/proc/device-tree/model"

// boardLEDs lists candidate sysfs names per board, newest kernel naming first.
var boardLEDs = []struct {
	model string
	leds  []string
}{
	{"Raspberry Pi", []string{"ACT", "led0"}},
	{"NanoPC-T6", []string{"usr_led"}},
	{"Orange Pi", []string{"green_led"}},
}

// New returns the indicator for name, or the board's activity LED when name
// is empty. It falls back to a no-op indicator when no LED is present.
func New(name string, logger *slog.Logger) Indicator {
	return newIndicator(sysfsLEDPath, name, detectBoard(), logger)
}

func newIndicator(root, name, model string, logger *slog.Logger) Indicator {
	if name != "" {
		if exists(filepath.Join(root, name)) {
			return newSysfs(root, name)
		}
		logger.Warn("Configured LED not found, tally disabled", "led", name)
		return newNoop(logger)
	}

	for _, b := range boardLEDs {
		if !strings.Contains(model, b.model) {
			continue
		}
		for _, led := range b.leds {
			if exists(filepath.Join(root, led)) {
				logger.Info("Using board LED for tally", "board_model", model, "led", led)
				return newSysfs(root, led)
			}
		}
	}

	logger.Info("No LED support detected, using no-op indicator", "board_model", model)
	return newNoop(logger)
}

// detectBoard reads the device tree model to identify the board.
func detectBoard() string {
	data, err := os.ReadFile(deviceTreeModelPath)
	if err != nil {
		return "unknown"
	}
	// the model string is NUL terminated
	return strings.TrimRight(string(data), "\x00")
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
