package led

import (
	"log/slog"
	"sync"

	"github.com/smazurov/rpirtspd/internal/events"
	"github.com/smazurov/rpirtspd/internal/mounts"
)

// Sessions reports the attached clients of every mount.
type Sessions interface {
	Status() []mounts.Status
}

// Manager lights the indicator while at least one RTSP client is attached.
// Client events only trigger a recount; the mount table is the source of
// truth, so delivery order between event types does not matter.
type Manager struct {
	indicator Indicator
	sessions  Sessions
	eventBus  *events.Bus
	logger    *slog.Logger

	mu     sync.Mutex
	shown  Pattern
	unsubs []func()
}

// NewManager creates a manager for indicator.
func NewManager(indicator Indicator, sessions Sessions, eventBus *events.Bus, logger *slog.Logger) *Manager {
	return &Manager{
		indicator: indicator,
		sessions:  sessions,
		eventBus:  eventBus,
		logger:    logger,
	}
}

// Start shows the current state and follows client sessions.
func (m *Manager) Start() {
	m.Refresh()
	m.unsubs = []func(){
		m.eventBus.Subscribe(func(events.ClientConnectedEvent) { m.Refresh() }),
		m.eventBus.Subscribe(func(events.ClientDisconnectedEvent) { m.Refresh() }),
	}
	m.logger.Info("LED tally started", "led", m.indicator.Name())
}

// Stop unsubscribes and restores the LED's original trigger.
func (m *Manager) Stop() {
	for _, unsub := range m.unsubs {
		unsub()
	}
	m.unsubs = nil
	if err := m.indicator.Restore(); err != nil {
		m.logger.Warn("Failed to restore LED", "error", err)
	}
	m.logger.Info("LED tally stopped")
}

// Refresh recounts clients and updates the indicator if needed.
func (m *Manager) Refresh() {
	m.mu.Lock()
	defer m.mu.Unlock()

	clients := 0
	for _, st := range m.sessions.Status() {
		clients += st.Sessions
	}

	want := PatternOff
	if clients > 0 {
		want = PatternSolid
	}
	if want == m.shown {
		return
	}
	if err := m.indicator.Show(want); err != nil {
		m.logger.Warn("Failed to set LED", "pattern", want, "error", err)
		return
	}
	m.logger.Debug("LED updated", "pattern", want, "clients", clients)
	m.shown = want
}

// Shown returns the pattern currently displayed.
func (m *Manager) Shown() Pattern {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shown
}
