package led

import (
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/rpirtspd/internal/events"
	"github.com/smazurov/rpirtspd/internal/mounts"
)

type mockIndicator struct {
	mu       sync.Mutex
	shown    []Pattern
	restored bool
}

func (m *mockIndicator) Show(p Pattern) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shown = append(m.shown, p)
	return nil
}

func (m *mockIndicator) Restore() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restored = true
	return nil
}

func (m *mockIndicator) Name() string { return "mock" }

func (m *mockIndicator) calls() []Pattern {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Pattern(nil), m.shown...)
}

type fakeSessions struct {
	mu     sync.Mutex
	counts map[string]int
}

func (f *fakeSessions) set(stream string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[stream] = n
}

func (f *fakeSessions) Status() []mounts.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []mounts.Status
	for name, n := range f.counts {
		out = append(out, mounts.Status{Mount: mounts.Mount{Name: name}, Sessions: n})
	}
	return out
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func waitForPattern(t *testing.T, mgr *Manager, want Pattern) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if mgr.Shown() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("LED pattern = %q, want %q", mgr.Shown(), want)
}

func TestManagerFollowsClients(t *testing.T) {
	ind := &mockIndicator{}
	sessions := &fakeSessions{counts: map[string]int{"main": 0, "video": 0}}
	bus := events.New()

	mgr := NewManager(ind, sessions, bus, testLogger())
	mgr.Start()

	if got := ind.calls(); len(got) != 1 || got[0] != PatternOff {
		t.Fatalf("initial calls = %v, want [off]", got)
	}

	sessions.set("main", 1)
	bus.Publish(events.ClientConnectedEvent{Stream: "main"})
	waitForPattern(t, mgr, PatternSolid)

	sessions.set("video", 1)
	bus.Publish(events.ClientConnectedEvent{Stream: "video"})
	sessions.set("main", 0)
	bus.Publish(events.ClientDisconnectedEvent{Stream: "main"})
	time.Sleep(50 * time.Millisecond)
	if mgr.Shown() != PatternSolid {
		t.Errorf("one client left, pattern = %q", mgr.Shown())
	}

	sessions.set("video", 0)
	bus.Publish(events.ClientDisconnectedEvent{Stream: "video"})
	waitForPattern(t, mgr, PatternOff)

	mgr.Stop()
	if !ind.restored {
		t.Error("Stop should restore the LED")
	}

	// identical consecutive states are not re-applied
	want := []Pattern{PatternOff, PatternSolid, PatternOff}
	got := ind.calls()
	if len(got) != len(want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("calls = %v, want %v", got, want)
			break
		}
	}
}
