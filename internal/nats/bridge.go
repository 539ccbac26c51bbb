package nats

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/smazurov/rpirtspd/internal/control"
	"github.com/smazurov/rpirtspd/internal/events"
	"github.com/smazurov/rpirtspd/internal/metrics"
)

// Applier executes configuration commands.
type Applier interface {
	Apply(command string) []control.Result
}

// Bridge serves the control subject and forwards control-plane events from
// the event bus to NATS.
type Bridge struct {
	url      string
	applier  Applier
	eventBus *events.Bus
	conn     *nats.Conn
	subs     []*nats.Subscription
	unsubs   []func()
	logger   *slog.Logger
	mu       sync.Mutex
}

// NewBridge creates a bridge. A nil eventBus disables event forwarding.
func NewBridge(url string, applier Applier, eventBus *events.Bus, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}

	return &Bridge{
		url:      url,
		applier:  applier,
		eventBus: eventBus,
		logger:   logger.With("component", "nats-bridge"),
	}
}

// Start connects to NATS, subscribes to the control subject and starts
// forwarding events.
func (b *Bridge) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	conn, err := nats.Connect(b.url,
		nats.Name("rpirtspd-bridge"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				b.logger.Warn("NATS bridge disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			b.logger.Info("NATS bridge reconnected")
		}),
	)
	if err != nil {
		return err
	}
	b.conn = conn

	sub, err := conn.Subscribe(SubjectControl, b.handleControl)
	if err != nil {
		b.cleanup()
		return err
	}
	b.subs = append(b.subs, sub)

	if b.eventBus != nil {
		b.unsubs = append(b.unsubs,
			b.eventBus.Subscribe(func(e events.InstanceCreatedEvent) { b.forward(EventInstanceCreated, e) }),
			b.eventBus.Subscribe(func(e events.InstanceReleasedEvent) { b.forward(EventInstanceReleased, e) }),
			b.eventBus.Subscribe(func(e events.ParameterAppliedEvent) { b.forward(EventParameterApplied, e) }),
			b.eventBus.Subscribe(func(e events.DirectiveRejectedEvent) { b.forward(EventDirectiveRejected, e) }),
			b.eventBus.Subscribe(func(e events.OptionsResetEvent) { b.forward(EventOptionsReset, e) }),
		)
	}

	b.logger.Info("NATS bridge connected", "url", b.url, "subject", SubjectControl)
	return nil
}

// handleControl applies one command and replies when asked to.
func (b *Bridge) handleControl(msg *nats.Msg) {
	var reply ControlReply

	m, err := UnmarshalControl(msg.Data)
	if err != nil {
		b.logger.Warn("Failed to unmarshal control message", "error", err, "subject", msg.Subject)
		reply.Error = "invalid control message: " + err.Error()
	} else {
		metrics.IncCommand("nats")
		b.logger.Info("Received control command", "command", m.Command, "sender", m.Sender)
		reply.Results = control.Outcomes(b.applier.Apply(m.Command))
	}

	if msg.Reply == "" {
		return
	}
	data, err := reply.Marshal()
	if err != nil {
		b.logger.Warn("Failed to marshal reply", "error", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		b.logger.Warn("Failed to send reply", "error", err)
	}
}

func (b *Bridge) forward(kind string, ev any) {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()

	if conn == nil || !conn.IsConnected() {
		return
	}

	data, err := json.Marshal(ev)
	if err != nil {
		b.logger.Warn("Failed to marshal event", "kind", kind, "error", err)
		return
	}
	if err := conn.Publish(SubjectEvent(kind), data); err != nil {
		b.logger.Debug("Failed to forward event", "kind", kind, "error", err)
	}
}

// cleanup unsubscribes and closes the connection. Callers hold mu.
func (b *Bridge) cleanup() {
	for _, sub := range b.subs {
		_ = sub.Unsubscribe()
	}
	b.subs = nil

	if b.conn != nil {
		b.conn.Close()
		b.conn = nil
	}
}

// Stop closes the bridge connection.
func (b *Bridge) Stop() {
	// bus handlers take mu in forward
	b.mu.Lock()
	unsubs := b.unsubs
	b.unsubs = nil
	b.mu.Unlock()
	for _, unsub := range unsubs {
		unsub()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.cleanup()
	b.logger.Info("NATS bridge stopped")
}

// IsConnected reports whether the bridge is connected to NATS.
func (b *Bridge) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil && b.conn.IsConnected()
}
