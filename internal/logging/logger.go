package logging

import (
	"log/slog"
	"strings"
	"sync"
)

// historySize bounds the entries replayed to new log stream clients.
const historySize = 1000

var (
	mutex           sync.RWMutex
	globalConfig    Config
	isInitialized   bool
	moduleLoggers   = make(map[string]*slog.Logger)
	moduleLevelVars = make(map[string]*slog.LevelVar)
	rootLevel       = &slog.LevelVar{}
	history         *History
	logCallback     LogCallback
)

// Config holds the [logging] section plus the output.* overrides.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"modules"`

	// Quiet raises the global level to warn; Verbose lowers it to debug.
	// Verbose wins when both are set.
	Quiet   bool `toml:"quiet"`
	Verbose bool `toml:"verbose"`
}

// GlobalLevel returns the level name after applying Quiet and Verbose.
func (c Config) GlobalLevel() string {
	switch {
	case c.Verbose:
		return "debug"
	case c.Quiet:
		return "warn"
	default:
		return c.Level
	}
}

// Initialize applies config to every module logger, including ones handed
// out earlier, and installs the default slog logger.
func Initialize(config Config) {
	mutex.Lock()
	defer mutex.Unlock()

	globalConfig = config
	isInitialized = true
	history = NewHistory(historySize)
	rootLevel.Set(levelFor(""))

	for module, lv := range moduleLevelVars {
		lv.Set(levelFor(module))
		// the handler chain depends on format, so rebuild it
		moduleLoggers[module] = slog.New(newHandlerChain(config.Format, lv)).With("module", module)
	}

	slog.SetDefault(slog.New(newHandlerChain(config.Format, rootLevel)))
}

// GetBuffer returns the history replayed by the log stream endpoint, or
// nil before Initialize.
func GetBuffer() *History {
	mutex.RLock()
	defer mutex.RUnlock()
	return history
}

// SetLogCallback registers fn to receive every entry as it is logged.
// Pass nil to stop.
func SetLogCallback(fn LogCallback) {
	mutex.Lock()
	defer mutex.Unlock()
	logCallback = fn
}

// GetLogger returns the logger for module. Loggers are cached, and their
// level follows later calls to Initialize.
func GetLogger(module string) *slog.Logger {
	mutex.RLock()
	logger, ok := moduleLoggers[module]
	mutex.RUnlock()
	if ok {
		return logger
	}

	mutex.Lock()
	defer mutex.Unlock()
	if logger, ok := moduleLoggers[module]; ok {
		return logger
	}

	lv := &slog.LevelVar{}
	lv.Set(levelFor(module))

	format := "text"
	if isInitialized {
		format = globalConfig.Format
	}
	logger = slog.New(newHandlerChain(format, lv)).With("module", module)
	moduleLoggers[module] = logger
	moduleLevelVars[module] = lv
	return logger
}

// levelFor resolves the level of module from the module overrides, the
// global level and finally info. Callers hold mutex.
func levelFor(module string) slog.Level {
	if !isInitialized {
		return slog.LevelInfo
	}
	if name, ok := globalConfig.Modules[module]; ok && module != "" {
		if level, ok := parseLevel(name); ok {
			return level
		}
	}
	if level, ok := parseLevel(globalConfig.GlobalLevel()); ok {
		return level
	}
	return slog.LevelInfo
}

func parseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}
