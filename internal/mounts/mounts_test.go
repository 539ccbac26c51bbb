package mounts

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/rpirtspd/internal/events"
	"github.com/smazurov/rpirtspd/internal/params"
	"github.com/smazurov/rpirtspd/internal/pipeline"
)

type recordingHook struct {
	mu      sync.Mutex
	streams []string
}

func (h *recordingHook) OnInstanceCreated(stream string, inst params.Instance) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.streams = append(h.streams, stream)
	if _, ok := inst.FindStage(params.VideoCapture); ok {
		return 1
	}
	return 0
}

func (h *recordingHook) calls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.streams...)
}

func TestVideoBranch(t *testing.T) {
	got := VideoBranch(DefaultSettings())
	want := "rpicamsrc name=videosrc1 bitrate=1000000 !" +
		" capsfilter caps=video/x-h264,width=1280,height=720,framerate=30/1,profile=baseline name=videocaps1 !" +
		" queue leaky=downstream max-size-time=0 max-size-buffers=2 !" +
		" h264parse ! rtph264pay config-interval=1 pt=96 name=pay0"
	if got != want {
		t.Errorf("VideoBranch() =\n%s\nwant\n%s", got, want)
	}
}

func TestAudioBranch(t *testing.T) {
	s := DefaultSettings()

	tests := []struct {
		name     string
		settings func(Settings) Settings
		device   string
		useArgs  bool
		pay      int
		contains []string
		empty    bool
	}{
		{
			name:     "device with alaw",
			device:   "1,0",
			pay:      0,
			contains: []string{"alsasrc name=audiosrc1 device=plughw:1,0 !", "alawenc ! rtppcmapay name=pay0 pt=97", "min-threshold-time=0 !"},
		},
		{
			name:     "compressed with delay",
			settings: func(s Settings) Settings { s.AudioCompress = true; s.AudioDelayMs = 250; return s },
			device:   "1",
			pay:      1,
			contains: []string{"voaacenc bitrate=64000 ! rtpmp4apay name=pay1 pt=97", "min-threshold-time=250000000 !"},
		},
		{
			name:     "args replace device on main",
			settings: func(s Settings) Settings { s.AudioArgs = "device=hw:2"; return s },
			device:   "1",
			useArgs:  true,
			pay:      1,
			contains: []string{"alsasrc name=audiosrc1 device=hw:2 !"},
		},
		{
			name:     "args ignored on per-device mounts",
			settings: func(s Settings) Settings { s.AudioArgs = "device=hw:2"; return s },
			device:   "1",
			contains: []string{"device=plughw:1 !"},
		},
		{
			name:  "nothing to capture",
			empty: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := s
			if tt.settings != nil {
				cfg = tt.settings(cfg)
			}
			got := AudioBranch(cfg, tt.device, tt.useArgs, tt.pay)
			if tt.empty {
				if got != "" {
					t.Fatalf("AudioBranch() = %q, want empty", got)
				}
				return
			}
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("AudioBranch() = %q, missing %q", got, want)
				}
			}
		})
	}
}

func TestBuildMounts(t *testing.T) {
	s := DefaultSettings()
	s.AudioDevices = []string{"1,0", "2,0"}

	mounts := Build(s)
	var names []string
	for _, m := range mounts {
		names = append(names, m.Name)
	}
	if got := strings.Join(names, " "); got != "test main video audio1 audio2" {
		t.Fatalf("mount order = %q", got)
	}

	byName := make(map[string]Mount)
	for _, m := range mounts {
		byName[m.Name] = m
	}
	if byName["test"].Configurable {
		t.Error("test mount should not take control commands")
	}
	if byName["audio2"].Label != "Audio stream [alsa hw:2,0]" {
		t.Errorf("audio2 label = %q", byName["audio2"].Label)
	}
	if !strings.Contains(byName["main"].Description, "device=plughw:1,0") ||
		!strings.Contains(byName["main"].Description, "name=pay1") {
		t.Errorf("main should carry the first device on pay1: %s", byName["main"].Description)
	}
	if strings.HasPrefix(byName["audio1"].Description, "(") {
		t.Errorf("audio mounts are not wrapped in a bin: %s", byName["audio1"].Description)
	}

	for _, m := range mounts {
		inst, err := pipeline.Parse(m.Description)
		if err != nil {
			t.Errorf("%s description does not parse: %v", m.Name, err)
			continue
		}
		if len(inst.Payloaders()) == 0 {
			t.Errorf("%s has no payloader", m.Name)
		}
	}
}

func TestBuildWithoutAudio(t *testing.T) {
	mounts := Build(DefaultSettings())
	if len(mounts) != 3 {
		t.Fatalf("got %d mounts, want test, main and video", len(mounts))
	}
	inst, err := pipeline.Parse(mounts[1].Description)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := inst.FindStage(params.AudioQueue); ok {
		t.Error("main without audio devices should have no audio queue")
	}
}

func TestURL(t *testing.T) {
	tests := map[string]string{
		":8554":        "rtsp://127.0.0.1:8554/main",
		"0.0.0.0:9000": "rtsp://127.0.0.1:9000/main",
		"10.0.0.5:554": "rtsp://10.0.0.5:554/main",
		"camera.local": "rtsp://camera.local:8554/main",
		"[::1]:8554":   "rtsp://[::1]:8554/main",
	}
	for addr, want := range tests {
		if got := URL(addr, "/main"); got != want {
			t.Errorf("URL(%q) = %q, want %q", addr, got, want)
		}
	}
}

func TestParseDevices(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"1", []string{"1"}},
		{"1,0 2,0", []string{"1,0", "2,0"}},
		{" 1,0;;2,0\t3 ", []string{"1,0", "2,0", "3"}},
	}
	for _, tt := range tests {
		got := ParseDevices(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("ParseDevices(%q) = %q, want %q", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("ParseDevices(%q) = %q, want %q", tt.in, got, tt.want)
				break
			}
		}
	}
}

func TestProbe(t *testing.T) {
	s := DefaultSettings()
	if err := Probe(s, Build(s)); err != nil {
		t.Fatalf("Probe() = %v", err)
	}

	s.VideoSource = "v4l2src"
	err := Probe(s, Build(s))
	if !errors.Is(err, ErrProbeFailed) {
		t.Fatalf("Probe() with unknown source = %v, want ErrProbeFailed", err)
	}

	s = DefaultSettings()
	bad := []Mount{{Name: "broken", Description: "( rpicamsrc ! )"}}
	if err := Probe(s, bad); !errors.Is(err, ErrProbeFailed) {
		t.Errorf("Probe() with broken description = %v", err)
	}
}

func newTestManager(t *testing.T, hook InstanceHook, bus *events.Bus) *Manager {
	t.Helper()
	s := DefaultSettings()
	s.AudioDevices = []string{"1,0"}
	m, err := NewManager(Options{Mounts: Build(s), Addr: ":8554", Hook: hook, EventBus: bus})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestManagerSharesInstance(t *testing.T) {
	hook := &recordingHook{}
	m := newTestManager(t, hook, nil)

	a, err := m.Acquire("main")
	if err != nil {
		t.Fatal(err)
	}
	b, err := m.Acquire("main")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("second session should reuse the live instance")
	}
	if calls := hook.calls(); len(calls) != 1 || calls[0] != "main" {
		t.Errorf("hook calls = %v, want [main]", calls)
	}

	st := m.Status()[1]
	if st.Name != "main" || !st.Live || st.Sessions != 2 || st.Built != 1 {
		t.Errorf("status = %+v", st)
	}
	if st.URL != "rtsp://127.0.0.1:8554/main" {
		t.Errorf("status URL = %q", st.URL)
	}
}

func TestManagerTestMountSkipsHook(t *testing.T) {
	hook := &recordingHook{}
	m := newTestManager(t, hook, nil)

	if _, err := m.Acquire("test"); err != nil {
		t.Fatal(err)
	}
	if calls := hook.calls(); len(calls) != 0 {
		t.Errorf("test mount reached the hook: %v", calls)
	}
}

func TestManagerUnknownMount(t *testing.T) {
	m := newTestManager(t, nil, nil)
	if _, err := m.Acquire("nope"); !errors.Is(err, ErrUnknownMount) {
		t.Errorf("Acquire(nope) = %v, want ErrUnknownMount", err)
	}
	m.Release("nope")
}

func TestManagerCleanupRebuilds(t *testing.T) {
	bus := events.New()
	released := make(chan events.InstanceReleasedEvent, 4)
	bus.Subscribe(func(e events.InstanceReleasedEvent) { released <- e })

	hook := &recordingHook{}
	m := newTestManager(t, hook, bus)

	first, err := m.Acquire("video")
	if err != nil {
		t.Fatal(err)
	}
	if got := m.Cleanup(); len(got) != 0 {
		t.Fatalf("Cleanup() released %v while a session is attached", got)
	}

	m.Release("video")
	m.Release("video")
	if got := m.Cleanup(); len(got) != 1 || got[0] != "video" {
		t.Fatalf("Cleanup() = %v, want [video]", got)
	}
	if !first.Closed() {
		t.Error("released instance should be closed")
	}
	if _, ok := m.Instance("video"); ok {
		t.Error("no instance should be live after cleanup")
	}

	select {
	case e := <-released:
		if e.Stream != "video" || e.Reason != "idle" {
			t.Errorf("event = %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("no InstanceReleasedEvent")
	}

	second, err := m.Acquire("video")
	if err != nil {
		t.Fatal(err)
	}
	if second == first {
		t.Error("Acquire after cleanup should build a fresh instance")
	}
	if calls := hook.calls(); len(calls) != 2 {
		t.Errorf("hook calls = %v, want one per build", calls)
	}
}

func TestManagerClose(t *testing.T) {
	m := newTestManager(t, nil, nil)
	inst, err := m.Acquire("audio1")
	if err != nil {
		t.Fatal(err)
	}
	m.Close()
	if !inst.Closed() {
		t.Error("Close should close live instances")
	}
	for _, st := range m.Status() {
		if st.Live || st.Sessions != 0 {
			t.Errorf("%s still live after Close: %+v", st.Name, st)
		}
	}
}

func TestNewManagerRejectsDuplicates(t *testing.T) {
	_, err := NewManager(Options{Mounts: []Mount{{Name: "main"}, {Name: "main"}}})
	if err == nil {
		t.Fatal("duplicate mount names should be rejected")
	}
}
