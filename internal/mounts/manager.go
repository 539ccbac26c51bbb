package mounts

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/rpirtspd/internal/events"
	"github.com/smazurov/rpirtspd/internal/logging"
	"github.com/smazurov/rpirtspd/internal/metrics"
	"github.com/smazurov/rpirtspd/internal/params"
	"github.com/smazurov/rpirtspd/internal/pipeline"
)

// ErrUnknownMount is returned for a path no mount is registered at.
var ErrUnknownMount = errors.New("unknown mount")

// InstanceHook is notified of every instance built for a configurable mount
// before the instance serves its first client.
type InstanceHook interface {
	OnInstanceCreated(stream string, inst params.Instance) int
}

// Status is a point-in-time view of a mount.
type Status struct {
	Mount
	URL      string `json:"url" example:"rtsp://127.0.0.1:8554/main" doc:"Client URL"`
	Live     bool   `json:"live" doc:"Whether a pipeline instance exists"`
	Sessions int    `json:"sessions" doc:"Attached client sessions"`
	Built    int    `json:"built" doc:"Instances constructed since startup"`
	Since    string `json:"since,omitempty" doc:"Construction time of the live instance"`
}

type mountState struct {
	mount    Mount
	inst     *pipeline.Instance
	sessions int
	built    int
}

// Manager owns the mount table and the shared instance of every mount.
// An instance is built on the first Acquire and reused by later sessions
// until Cleanup finds it without sessions.
type Manager struct {
	mu     sync.Mutex
	mounts map[string]*mountState
	order  []string

	addr     string
	hook     InstanceHook
	eventBus *events.Bus
	logger   *slog.Logger
}

// Options configures a Manager.
type Options struct {
	Mounts   []Mount
	Addr     string
	Hook     InstanceHook
	EventBus *events.Bus
}

// NewManager creates a manager for opts.Mounts. Names must be unique.
func NewManager(opts Options) (*Manager, error) {
	m := &Manager{
		mounts:   make(map[string]*mountState, len(opts.Mounts)),
		addr:     opts.Addr,
		hook:     opts.Hook,
		eventBus: opts.EventBus,
		logger:   logging.GetLogger("mounts"),
	}
	for _, mt := range opts.Mounts {
		if _, dup := m.mounts[mt.Name]; dup {
			return nil, fmt.Errorf("duplicate mount %q", mt.Name)
		}
		m.mounts[mt.Name] = &mountState{mount: mt}
		m.order = append(m.order, mt.Name)
	}
	return m, nil
}

// Announce logs every mount's URL, and its description at debug level.
func (m *Manager) Announce() {
	for _, name := range m.order {
		mt := m.mounts[name].mount
		m.logger.Debug("Pipeline", "stream", mt.Name, "description", mt.Description)
		m.logger.Info(fmt.Sprintf("[%s] %s", URL(m.addr, mt.Path), mt.Label))
	}
}

// Mounts returns the mount table in registration order.
func (m *Manager) Mounts() []Mount {
	out := make([]Mount, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.mounts[name].mount)
	}
	return out
}

// Mount returns a mount by stream name.
func (m *Manager) Mount(name string) (Mount, bool) {
	st, ok := m.mounts[name]
	if !ok {
		return Mount{}, false
	}
	return st.mount, true
}

// Acquire attaches a session to the mount, building its instance if none is
// live. Configurable mounts hand new instances to the hook first.
func (m *Manager) Acquire(name string) (*pipeline.Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.mounts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMount, name)
	}

	if st.inst == nil {
		inst, err := pipeline.Parse(st.mount.Description)
		if err != nil {
			m.logger.Error("Pipeline failure", "stream", name, "description", st.mount.Description, "error", err)
			return nil, fmt.Errorf("build %s: %w", name, err)
		}
		st.inst = inst
		st.built++
		metrics.InstanceCreated(name)

		replayed := 0
		if st.mount.Configurable && m.hook != nil {
			replayed = m.hook.OnInstanceCreated(name, inst)
		}
		m.logger.Info("Instance built", "stream", name, "replayed", replayed)
	}

	st.sessions++
	metrics.SetClients(name, st.sessions)
	return st.inst, nil
}

// Release detaches a session. The instance stays until Cleanup.
func (m *Manager) Release(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.mounts[name]
	if !ok || st.sessions == 0 {
		return
	}
	st.sessions--
	metrics.SetClients(name, st.sessions)
}

// Cleanup releases every instance that has no sessions left and returns
// the affected stream names. The next Acquire rebuilds them.
func (m *Manager) Cleanup() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var released []string
	for _, name := range m.order {
		st := m.mounts[name]
		if st.inst == nil || st.sessions > 0 {
			continue
		}
		m.releaseLocked(st, "idle")
		released = append(released, name)
	}
	return released
}

// Instance returns the live instance of a mount.
func (m *Manager) Instance(name string) (*pipeline.Instance, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.mounts[name]
	if !ok || st.inst == nil {
		return nil, false
	}
	return st.inst, true
}

// Status returns the state of every mount in registration order.
func (m *Manager) Status() []Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Status, 0, len(m.order))
	for _, name := range m.order {
		st := m.mounts[name]
		s := Status{
			Mount:    st.mount,
			URL:      URL(m.addr, st.mount.Path),
			Live:     st.inst != nil,
			Sessions: st.sessions,
			Built:    st.built,
		}
		if st.inst != nil {
			s.Since = st.inst.Created().Format(time.RFC3339)
		}
		out = append(out, s)
	}
	return out
}

// Close releases all instances.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, name := range m.order {
		st := m.mounts[name]
		if st.inst != nil {
			m.releaseLocked(st, "shutdown")
		}
		st.sessions = 0
	}
}

func (m *Manager) releaseLocked(st *mountState, reason string) {
	name := st.mount.Name
	st.inst.Close()
	st.inst = nil
	metrics.InstanceReleased(name)
	m.logger.Debug("Instance released", "stream", name, "reason", reason)
	if m.eventBus != nil {
		m.eventBus.Publish(events.InstanceReleasedEvent{
			Stream:    name,
			Reason:    reason,
			Timestamp: time.Now().Format(time.RFC3339),
		})
	}
}
