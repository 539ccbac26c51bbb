package streaming

import (
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/AlexxIT/go2rtc/pkg/core"
	"github.com/AlexxIT/go2rtc/pkg/rtsp"
)

// ErrNoProducer is returned when no encoder publishes media for a mount.
var ErrNoProducer = errors.New("no producer for mount")

// Hub routes media from encoders that ANNOUNCE on a mount path to the
// clients that DESCRIBE it.
type Hub struct {
	producers map[string]*rtsp.Conn
	mu        sync.RWMutex
	logger    *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		producers: make(map[string]*rtsp.Conn),
		logger:    logger,
	}
}

// AddProducer registers the publisher for a mount, replacing any previous one.
func (h *Hub) AddProducer(mount string, conn *rtsp.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, ok := h.producers[mount]; ok && existing != conn {
		h.logger.Info("Replacing existing producer", "stream", mount)
		_ = existing.Stop()
	}
	h.producers[mount] = conn
	h.logger.Info("Producer added", "stream", mount)
}

// RemoveProducer drops the publisher of a mount if it is still conn.
func (h *Hub) RemoveProducer(mount string, conn *rtsp.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.producers[mount]; ok && current == conn {
		_ = current.Stop()
		delete(h.producers, mount)
		h.logger.Info("Producer removed", "stream", mount)
	}
}

// HasProducer reports whether a mount has a publisher.
func (h *Hub) HasProducer(mount string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.producers[mount]
	return ok
}

// WireConsumer adds every producer track of mount to cons.
func (h *Hub) WireConsumer(mount string, cons core.Consumer) error {
	h.mu.RLock()
	prod := h.producers[mount]
	h.mu.RUnlock()

	if prod == nil {
		return ErrNoProducer
	}

	for _, receiver := range prod.Receivers {
		media := &core.Media{
			Kind:      core.GetKind(receiver.Codec.Name),
			Direction: core.DirectionRecvonly,
			Codecs:    []*core.Codec{receiver.Codec},
		}
		if err := cons.AddTrack(media, receiver.Codec, receiver); err != nil {
			h.logger.Warn("Failed to add track", "stream", mount, "codec", receiver.Codec.Name, "error", err)
		}
	}
	return nil
}

// Producers returns the mounts that currently have a publisher, sorted.
func (h *Hub) Producers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]string, 0, len(h.producers))
	for id := range h.producers {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Stop closes all producers.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, conn := range h.producers {
		_ = conn.Stop()
		delete(h.producers, id)
	}
	h.logger.Info("Hub stopped")
}
