package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultRequestTimeout bounds a control request without a context deadline.
const DefaultRequestTimeout = 5 * time.Second

// ControlClient sends configuration commands to a running server.
type ControlClient struct {
	conn   *nats.Conn
	logger *slog.Logger
}

// NewControlClient connects to the NATS server at url.
func NewControlClient(url string, logger *slog.Logger) (*ControlClient, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(url,
		nats.Name("rpirtspd-control"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(5),
	)
	if err != nil {
		return nil, err
	}

	return &ControlClient{
		conn:   conn,
		logger: logger.With("component", "nats-control"),
	}, nil
}

// Send publishes command and waits for the per-directive results.
func (c *ControlClient) Send(ctx context.Context, command string) (ControlReply, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultRequestTimeout)
		defer cancel()
	}

	data, err := c.message(command).Marshal()
	if err != nil {
		return ControlReply{}, err
	}

	msg, err := c.conn.RequestWithContext(ctx, SubjectControl, data)
	if err != nil {
		if errors.Is(err, nats.ErrNoResponders) {
			return ControlReply{}, fmt.Errorf("no rpirtspd instance is listening on %s", SubjectControl)
		}
		return ControlReply{}, err
	}

	reply, err := UnmarshalReply(msg.Data)
	if err != nil {
		return ControlReply{}, fmt.Errorf("invalid reply: %w", err)
	}
	if reply.Error != "" {
		return reply, errors.New(reply.Error)
	}

	c.logger.Debug("Command acknowledged", "directives", len(reply.Results))
	return reply, nil
}

// Publish sends command without waiting for a reply.
func (c *ControlClient) Publish(command string) error {
	data, err := c.message(command).Marshal()
	if err != nil {
		return err
	}
	if err := c.conn.Publish(SubjectControl, data); err != nil {
		return err
	}
	return c.conn.Flush()
}

// Close closes the connection.
func (c *ControlClient) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}

func (c *ControlClient) message(command string) ControlMessage {
	sender, _ := os.Hostname()
	return ControlMessage{
		Command:   command,
		Timestamp: time.Now().Format(time.RFC3339),
		Sender:    sender,
	}
}
