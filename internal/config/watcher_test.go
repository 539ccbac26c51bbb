package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func startWatcher(t *testing.T, w *Watcher[string]) {
	t.Helper()
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := w.Stop(); err != nil {
			t.Errorf("watcher.Stop failed: %v", err)
		}
	})
	// let the inotify watch settle
	time.Sleep(100 * time.Millisecond)
}

func TestWatcherReloadsControlFile(t *testing.T) {
	path := writeFile(t, "control.txt", "main bitrate=1\n")

	received := make(chan string, 1)
	w := NewConfigWatcher(path, ReadControlFile, newTestLogger(), WithDebounce[string](50*time.Millisecond))
	w.OnReload(func(cmd string) { received <- cmd })
	startWatcher(t, w)

	if err := os.WriteFile(path, []byte("# new\nvideo hflip=1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cmd := <-received:
		if cmd != "video hflip=1" {
			t.Errorf("got %q, want %q", cmd, "video hflip=1")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload")
	}
}

func TestWatcherLoadOnStart(t *testing.T) {
	path := writeFile(t, "control.txt", "main bitrate=1\n")

	received := make(chan string, 1)
	w := NewConfigWatcher(path, ReadControlFile, newTestLogger(), WithLoadOnStart[string]())
	w.OnReload(func(cmd string) { received <- cmd })
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	select {
	case cmd := <-received:
		if cmd != "main bitrate=1" {
			t.Errorf("got %q", cmd)
		}
	default:
		t.Fatal("Start should notify synchronously with WithLoadOnStart")
	}
}

func TestWatcherFileCreatedLater(t *testing.T) {
	path := filepath.Join(t.TempDir(), "control.txt")

	received := make(chan string, 1)
	w := NewConfigWatcher(path, ReadControlFile, newTestLogger(),
		WithDebounce[string](50*time.Millisecond), WithLoadOnStart[string]())
	w.OnReload(func(cmd string) { received <- cmd })
	startWatcher(t, w)

	if err := os.WriteFile(path, []byte("reset\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cmd := <-received:
		if cmd != "reset" {
			t.Errorf("got %q, want reset", cmd)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for created file")
	}
}

func TestWatcherFollowsRenameSave(t *testing.T) {
	path := writeFile(t, "control.txt", "main bitrate=1\n")

	received := make(chan string, 1)
	w := NewConfigWatcher(path, ReadControlFile, newTestLogger(), WithDebounce[string](50*time.Millisecond))
	w.OnReload(func(cmd string) { received <- cmd })
	startWatcher(t, w)

	tmp := path + ".swp"
	if err := os.WriteFile(tmp, []byte("main bitrate=2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}

	select {
	case cmd := <-received:
		if cmd != "main bitrate=2" {
			t.Errorf("got %q, want main bitrate=2", cmd)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for rename save")
	}
}

func TestWatcherIgnoresSiblingFiles(t *testing.T) {
	path := writeFile(t, "control.txt", "main\n")

	var count atomic.Int32
	w := NewConfigWatcher(path, ReadControlFile, newTestLogger(), WithDebounce[string](50*time.Millisecond))
	w.OnReload(func(string) { count.Add(1) })
	startWatcher(t, w)

	if err := os.WriteFile(filepath.Join(filepath.Dir(path), "other.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)

	if got := count.Load(); got != 0 {
		t.Errorf("sibling write triggered %d reloads", got)
	}
}

func TestWatcherMultipleHandlersAndUnsubscribe(t *testing.T) {
	path := writeFile(t, "control.txt", "main\n")

	first := make(chan string, 4)
	var second atomic.Int32
	w := NewConfigWatcher(path, ReadControlFile, newTestLogger(), WithDebounce[string](50*time.Millisecond))
	unsub := w.OnReload(func(string) { second.Add(1) })
	w.OnReload(func(cmd string) { first <- cmd })
	startWatcher(t, w)

	if err := os.WriteFile(path, []byte("a=1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	<-first
	if got := second.Load(); got != 1 {
		t.Fatalf("second handler called %d times, want 1", got)
	}

	unsub()
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("a=2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case cmd := <-first:
		if cmd != "a=2" {
			t.Errorf("got %q, want a=2", cmd)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for second reload")
	}
	if got := second.Load(); got != 1 {
		t.Errorf("unsubscribed handler called again, count %d", got)
	}
}

func TestWatcherErrorHandler(t *testing.T) {
	path := writeFile(t, "control.txt", "main\n")

	loader := func(p string) (string, error) {
		cmd, err := ReadControlFile(p)
		if err != nil {
			return "", err
		}
		if strings.Contains(cmd, "bad") {
			return "", errors.New("bad command file")
		}
		return cmd, nil
	}

	errs := make(chan error, 1)
	received := make(chan string, 1)
	w := NewConfigWatcher(path, loader, newTestLogger(),
		WithDebounce[string](50*time.Millisecond),
		WithErrorHandler[string](func(err error) { errs <- err }),
	)
	w.OnReload(func(cmd string) { received <- cmd })
	startWatcher(t, w)

	if err := os.WriteFile(path, []byte("bad\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-errs:
	case <-received:
		t.Fatal("handler should not run when loading fails")
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for error handler")
	}
}

func TestWatcherDebounce(t *testing.T) {
	path := writeFile(t, "control.txt", "bitrate=0\n")

	var count atomic.Int32
	var last atomic.Value
	w := NewConfigWatcher(path, ReadControlFile, newTestLogger(), WithDebounce[string](200*time.Millisecond))
	w.OnReload(func(cmd string) {
		count.Add(1)
		last.Store(cmd)
	})
	startWatcher(t, w)

	for i := 1; i <= 5; i++ {
		if err := os.WriteFile(path, fmt.Appendf(nil, "bitrate=%d\n", i), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(50 * time.Millisecond)
	}
	time.Sleep(500 * time.Millisecond)

	if got := count.Load(); got != 1 {
		t.Errorf("expected 1 debounced reload, got %d", got)
	}
	if got, _ := last.Load().(string); got != "bitrate=5" {
		t.Errorf("last command = %q, want bitrate=5", got)
	}
}

func TestWatcherConcurrentSubscribe(t *testing.T) {
	path := writeFile(t, "control.txt", "main\n")

	w := NewConfigWatcher(path, ReadControlFile, newTestLogger(), WithDebounce[string](10*time.Millisecond))
	startWatcher(t, w)

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unsub := w.OnReload(func(string) {})
			time.Sleep(time.Millisecond)
			unsub()
		}()
	}

	for i := range 10 {
		if err := os.WriteFile(path, fmt.Appendf(nil, "bitrate=%d\n", i), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	wg.Wait()
}

func TestWatcherStop(t *testing.T) {
	path := writeFile(t, "control.txt", "main\n")

	var count atomic.Int32
	w := NewConfigWatcher(path, ReadControlFile, newTestLogger(), WithDebounce[string](50*time.Millisecond))
	w.OnReload(func(string) { count.Add(1) })

	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	if err := w.Stop(); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("bitrate=99\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)

	if got := count.Load(); got != 0 {
		t.Errorf("expected 0 reloads after stop, got %d", got)
	}
}
