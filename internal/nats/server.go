package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// ServerOptions configures the embedded NATS server. Zero fields take the
// values of DefaultServerOptions; Port -1 picks a free port.
type ServerOptions struct {
	Host         string
	Port         int
	Name         string
	ReadyTimeout time.Duration
	Logger       *slog.Logger
}

// DefaultServerOptions serves loopback clients on the standard port.
func DefaultServerOptions() ServerOptions {
	return ServerOptions{
		Host:         "127.0.0.1",
		Port:         4222,
		Name:         "rpirtspd",
		ReadyTimeout: 5 * time.Second,
	}
}

// Server is a NATS server running inside the daemon so that control
// clients work without a separate broker.
type Server struct {
	ns     *server.Server
	opts   ServerOptions
	logger *slog.Logger
}

// NewServer prepares an embedded server; call Start to run it.
func NewServer(opts ServerOptions) *Server {
	def := DefaultServerOptions()
	if opts.Host == "" {
		opts.Host = def.Host
	}
	if opts.Port == 0 {
		opts.Port = def.Port
	}
	if opts.Name == "" {
		opts.Name = def.Name
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = def.ReadyTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{opts: opts, logger: logger.With("component", "nats-server")}
}

// Start runs the server and returns once it accepts connections.
func (s *Server) Start() error {
	ns, err := server.NewServer(&server.Options{
		Host:           s.opts.Host,
		Port:           s.opts.Port,
		ServerName:     s.opts.Name,
		NoSigs:         true,
		MaxControlLine: 4096,
		MaxPayload:     64 * 1024, // control commands are a single line
	})
	if err != nil {
		return fmt.Errorf("create NATS server: %w", err)
	}
	debug := s.logger.Enabled(context.Background(), slog.LevelDebug)
	ns.SetLogger(serverLog{s.logger}, debug, false)

	go ns.Start()
	if !ns.ReadyForConnections(s.opts.ReadyTimeout) {
		ns.Shutdown()
		return errors.New("NATS server not ready after " + s.opts.ReadyTimeout.String())
	}

	s.ns = ns
	s.logger.Info("NATS server started", "url", s.ClientURL())
	return nil
}

// Stop shuts the server down and waits for it to exit.
func (s *Server) Stop() {
	if s.ns == nil {
		return
	}
	s.logger.Info("Stopping NATS server")
	s.ns.Shutdown()
	s.ns.WaitForShutdown()
	s.ns = nil
}

// ClientURL returns the URL control clients should dial.
func (s *Server) ClientURL() string {
	if s.ns == nil {
		return fmt.Sprintf("nats://%s:%d", s.opts.Host, s.opts.Port)
	}
	return s.ns.ClientURL()
}

// IsRunning reports whether the server accepts connections.
func (s *Server) IsRunning() bool {
	return s.ns != nil && s.ns.Running()
}

// NumClients returns the number of connected clients.
func (s *Server) NumClients() int {
	if s.ns == nil {
		return 0
	}
	return s.ns.NumClients()
}

// serverLog forwards the server's printf-style log calls to slog.
type serverLog struct{ l *slog.Logger }

func (s serverLog) Noticef(format string, v ...any) { s.l.Info(fmt.Sprintf(format, v...)) }
func (s serverLog) Warnf(format string, v ...any)   { s.l.Warn(fmt.Sprintf(format, v...)) }
func (s serverLog) Errorf(format string, v ...any)  { s.l.Error(fmt.Sprintf(format, v...)) }
func (s serverLog) Fatalf(format string, v ...any)  { s.l.Error(fmt.Sprintf(format, v...)) }
func (s serverLog) Debugf(format string, v ...any)  { s.l.Debug(fmt.Sprintf(format, v...)) }
func (s serverLog) Tracef(format string, v ...any)  { s.l.Debug(fmt.Sprintf(format, v...)) }
