package nats

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/smazurov/rpirtspd/internal/control"
	"github.com/smazurov/rpirtspd/internal/events"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func startServer(t *testing.T, port int) *Server {
	t.Helper()
	server := NewServer(ServerOptions{
		Port:   port,
		Name:   "test-server",
		Logger: testLogger(),
	})
	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	t.Cleanup(server.Stop)
	return server
}

type recordingApplier struct {
	mu       sync.Mutex
	commands []string
	ctl      *control.Controller
}

func (a *recordingApplier) Apply(command string) []control.Result {
	a.mu.Lock()
	a.commands = append(a.commands, command)
	a.mu.Unlock()
	return a.ctl.Apply(command)
}

func (a *recordingApplier) received() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.commands...)
}

func TestServerStartStop(t *testing.T) {
	server := NewServer(ServerOptions{
		Port:   14222,
		Name:   "test-server",
		Logger: testLogger(),
	})

	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}

	if !server.IsRunning() {
		t.Error("Server should be running after Start()")
	}
	if server.ClientURL() == "" {
		t.Error("ClientURL should not be empty")
	}

	server.Stop()

	if server.IsRunning() {
		t.Error("Server should not be running after Stop()")
	}
}

func TestServerRandomPort(t *testing.T) {
	server := startServer(t, -1)
	if url := server.ClientURL(); url == "nats://127.0.0.1:-1" {
		t.Errorf("ClientURL() = %q, want the bound port", url)
	}

	nc, err := nats.Connect(server.ClientURL())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer nc.Close()

	deadline := time.Now().Add(time.Second)
	for server.NumClients() != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if n := server.NumClients(); n != 1 {
		t.Errorf("NumClients() = %d, want 1", n)
	}
}

func TestControlClientUnavailable(t *testing.T) {
	if _, err := NewControlClient("nats://127.0.0.1:59999", testLogger()); err == nil {
		t.Error("NewControlClient should fail without a server")
	}
}

func TestBridgeRequestReply(t *testing.T) {
	server := startServer(t, 14223)

	applier := &recordingApplier{ctl: control.NewController(control.Options{})}
	bridge := NewBridge(server.ClientURL(), applier, nil, testLogger())
	if err := bridge.Start(); err != nil {
		t.Fatalf("Failed to start bridge: %v", err)
	}
	defer bridge.Stop()

	if !bridge.IsConnected() {
		t.Fatal("bridge should be connected")
	}

	client, err := NewControlClient(server.ClientURL(), testLogger())
	if err != nil {
		t.Fatalf("Failed to create control client: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	reply, err := client.Send(ctx, "main bitrate=500000 nosuchkey=1")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if got := applier.received(); len(got) != 1 || got[0] != "main bitrate=500000 nosuchkey=1" {
		t.Errorf("applied commands = %v", got)
	}

	want := []struct {
		kind, outcome string
	}{
		{"select", "select"},
		{"set", "no_active_instance"},
		{"set", "unknown_parameter"},
	}
	if len(reply.Results) != len(want) {
		t.Fatalf("got %d results, want %d: %+v", len(reply.Results), len(want), reply.Results)
	}
	for i, w := range want {
		r := reply.Results[i]
		if r.Kind != w.kind || r.Outcome != w.outcome {
			t.Errorf("result %d = %s/%s, want %s/%s", i, r.Kind, r.Outcome, w.kind, w.outcome)
		}
	}
	if reply.Results[1].Role != "video-capture" || reply.Results[1].Stream != "main" {
		t.Errorf("bitrate result = %+v", reply.Results[1])
	}
}

func TestBridgeFireAndForget(t *testing.T) {
	server := startServer(t, 14224)

	applier := &recordingApplier{ctl: control.NewController(control.Options{})}
	bridge := NewBridge(server.ClientURL(), applier, nil, testLogger())
	if err := bridge.Start(); err != nil {
		t.Fatalf("Failed to start bridge: %v", err)
	}
	defer bridge.Stop()

	client, err := NewControlClient(server.ClientURL(), testLogger())
	if err != nil {
		t.Fatalf("Failed to create control client: %v", err)
	}
	defer client.Close()

	if err := client.Publish("reset"); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(applier.received()) == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("published command was not applied")
}

func TestBridgeRejectsInvalidMessage(t *testing.T) {
	server := startServer(t, 14225)

	applier := &recordingApplier{ctl: control.NewController(control.Options{})}
	bridge := NewBridge(server.ClientURL(), applier, nil, testLogger())
	if err := bridge.Start(); err != nil {
		t.Fatalf("Failed to start bridge: %v", err)
	}
	defer bridge.Stop()

	nc, err := nats.Connect(server.ClientURL())
	if err != nil {
		t.Fatal(err)
	}
	defer nc.Close()

	msg, err := nc.Request(SubjectControl, []byte("not json"), 2*time.Second)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	reply, err := UnmarshalReply(msg.Data)
	if err != nil {
		t.Fatal(err)
	}
	if reply.Error == "" {
		t.Error("reply should carry an error")
	}
	if len(applier.received()) != 0 {
		t.Error("invalid message should not reach the controller")
	}
}

func TestBridgeForwardsEvents(t *testing.T) {
	server := startServer(t, 14226)

	bus := events.New()
	ctl := control.NewController(control.Options{EventBus: bus})
	bridge := NewBridge(server.ClientURL(), &recordingApplier{ctl: ctl}, bus, testLogger())
	if err := bridge.Start(); err != nil {
		t.Fatalf("Failed to start bridge: %v", err)
	}
	defer bridge.Stop()

	nc, err := nats.Connect(server.ClientURL())
	if err != nil {
		t.Fatal(err)
	}
	defer nc.Close()

	sub, err := nc.SubscribeSync(SubjectEvent(EventDirectiveRejected))
	if err != nil {
		t.Fatal(err)
	}
	if err := nc.Flush(); err != nil {
		t.Fatal(err)
	}

	ctl.Apply("nosuchkey=1")

	msg, err := sub.NextMsg(2 * time.Second)
	if err != nil {
		t.Fatalf("no forwarded event: %v", err)
	}
	var ev events.DirectiveRejectedEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Token != "nosuchkey=1" || ev.Reason != "unknown_parameter" {
		t.Errorf("forwarded event = %+v", ev)
	}
}

func TestSubjectEvent(t *testing.T) {
	tests := map[string]string{
		EventInstanceCreated:   "rpirtspd.events.instance_created",
		EventParameterApplied:  "rpirtspd.events.parameter_applied",
		EventDirectiveRejected: "rpirtspd.events.directive_rejected",
	}
	for kind, want := range tests {
		if got := SubjectEvent(kind); got != want {
			t.Errorf("SubjectEvent(%q) = %q, want %q", kind, got, want)
		}
	}
}
