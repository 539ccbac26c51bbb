// Package streaming is the RTSP transport: clients DESCRIBE mount paths,
// encoders ANNOUNCE media onto them.
package streaming

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/AlexxIT/go2rtc/pkg/rtsp"
	"github.com/smazurov/rpirtspd/internal/events"
	"github.com/smazurov/rpirtspd/internal/pipeline"
)

// DefaultCleanupInterval is how often idle instances are released.
const DefaultCleanupInterval = 2 * time.Second

// Sessions builds and releases the pipeline instance behind a mount.
type Sessions interface {
	Acquire(mount string) (*pipeline.Instance, error)
	Release(mount string)
	Cleanup() []string
}

// Options configures a Server.
type Options struct {
	Hub             *Hub
	Sessions        Sessions
	EventBus        *events.Bus
	CleanupInterval time.Duration
	Logger          *slog.Logger
}

// Server accepts RTSP connections from clients and encoders.
type Server struct {
	hub             *Hub
	sessions        Sessions
	eventBus        *events.Bus
	cleanupInterval time.Duration
	logger          *slog.Logger

	listener net.Listener
	conns    map[net.Conn]struct{}
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	closed   bool
	mu       sync.Mutex
}

// NewServer creates a server. A nil Hub gets a fresh one.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	hub := opts.Hub
	if hub == nil {
		hub = NewHub(logger)
	}
	interval := opts.CleanupInterval
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	return &Server{
		hub:             hub,
		sessions:        opts.Sessions,
		eventBus:        opts.EventBus,
		cleanupInterval: interval,
		logger:          logger,
		conns:           make(map[net.Conn]struct{}),
	}
}

// Start listens on addr and starts session housekeeping.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	s.listener = ln
	s.cancel = cancel
	s.closed = false
	s.mu.Unlock()

	s.logger.Info("Server streams ready for clients", "addr", ln.Addr().String())

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.acceptLoop(ln)
	}()
	go func() {
		defer s.wg.Done()
		s.housekeeping(ctx)
	}()

	return nil
}

// Addr returns the bound listener address.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()

			if closed {
				return
			}
			s.logger.Error("Failed to accept connection", "error", err)
			continue
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.wg.Add(1)
		s.mu.Unlock()

		go func() {
			defer s.wg.Done()
			defer s.forget(conn)
			s.handleConn(conn)
		}()
	}
}

// housekeeping releases instances whose sessions have all gone away.
func (s *Server) housekeeping(ctx context.Context) {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.sessions == nil {
				continue
			}
			if released := s.sessions.Cleanup(); len(released) > 0 {
				s.logger.Debug("Released idle instances", "streams", released)
			}
		}
	}
}

func (s *Server) handleConn(conn net.Conn) {
	rtspConn := rtsp.NewServer(conn)
	remote := conn.RemoteAddr().String()

	var producer, consumer string
	defer func() {
		if producer != "" {
			s.hub.RemoveProducer(producer, rtspConn)
			s.logger.Info("RTSP producer disconnected", "stream", producer, "remote", remote)
		}
		if consumer != "" {
			s.sessions.Release(consumer)
			s.logger.Info("RTSP client disconnected", "stream", consumer, "remote", remote)
			s.publish(events.ClientDisconnectedEvent{Stream: consumer, Remote: remote, Timestamp: now()})
		}
	}()

	rtspConn.Listen(func(msg any) {
		switch msg {
		case rtsp.MethodAnnounce:
			name := mountName(rtspConn.URL)
			if name == "" {
				return
			}
			producer = name
			s.hub.AddProducer(name, rtspConn)
			s.logger.Info("RTSP producer connected", "stream", name, "remote", remote)

		case rtsp.MethodDescribe:
			name := mountName(rtspConn.URL)
			if name == "" || consumer != "" || s.sessions == nil {
				return
			}
			inst, err := s.sessions.Acquire(name)
			if err != nil {
				s.logger.Warn("Failed to construct media", "stream", name, "error", err)
				return
			}
			consumer = name
			s.logger.Info("RTSP client connected", "stream", name, "remote", remote, "payloaders", len(inst.Payloaders()))
			s.publish(events.ClientConnectedEvent{Stream: name, Remote: remote, Timestamp: now()})

			if err := s.hub.WireConsumer(name, rtspConn); err != nil {
				s.logger.Debug("No media to wire", "stream", name, "error", err)
			}
		}
	})

	// OPTIONS, ANNOUNCE/DESCRIBE, SETUP, PLAY/RECORD
	if err := rtspConn.Accept(); err != nil {
		if !errors.Is(err, net.ErrClosed) {
			s.logger.Debug("RTSP accept error", "remote", remote, "error", err)
		}
		_ = rtspConn.Stop()
		return
	}

	// blocks until the connection closes
	if err := rtspConn.Handle(); err != nil {
		if !errors.Is(err, net.ErrClosed) {
			s.logger.Debug("RTSP handle error", "remote", remote, "error", err)
		}
	}
}

// Stop closes the listener, waits for connections and stops the hub.
func (s *Server) Stop() error {
	s.mu.Lock()
	s.closed = true
	ln := s.listener
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	var err error
	if ln != nil {
		err = ln.Close()
	}

	s.mu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()

	s.hub.Stop()
	s.wg.Wait()

	s.logger.Info("RTSP server stopped")
	return err
}

func (s *Server) forget(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	_ = conn.Close()
}

// Hub returns the server's hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) publish(ev events.Event) {
	if s.eventBus != nil {
		s.eventBus.Publish(ev)
	}
}

// mountName returns the first path segment, which names the mount.
// SETUP requests append per-track segments.
func mountName(u *url.URL) string {
	if u == nil {
		return ""
	}
	name, _, _ := strings.Cut(strings.Trim(u.Path, "/"), "/")
	return name
}

func now() string {
	return time.Now().Format(time.RFC3339)
}
