package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/rpirtspd/internal/api/models"
	"github.com/smazurov/rpirtspd/internal/events"
)

// registerSSERoutes registers the control-plane event stream.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time stream of instance construction, parameter changes, rejected directives and client sessions",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"connected":           models.ConnectedEvent{},
		"instance-created":    events.InstanceCreatedEvent{},
		"instance-released":   events.InstanceReleasedEvent{},
		"parameter-applied":   events.ParameterAppliedEvent{},
		"directive-rejected":  events.DirectiveRejectedEvent{},
		"options-reset":       events.OptionsResetEvent{},
		"client-connected":    events.ClientConnectedEvent{},
		"client-disconnected": events.ClientDisconnectedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		feed := events.NewFeed(32)
		events.Watch[events.InstanceCreatedEvent](s.eventBus, feed)
		events.Watch[events.InstanceReleasedEvent](s.eventBus, feed)
		events.Watch[events.ParameterAppliedEvent](s.eventBus, feed)
		events.Watch[events.DirectiveRejectedEvent](s.eventBus, feed)
		events.Watch[events.OptionsResetEvent](s.eventBus, feed)
		events.Watch[events.ClientConnectedEvent](s.eventBus, feed)
		events.Watch[events.ClientDisconnectedEvent](s.eventBus, feed)
		defer s.closeFeed(feed, "events")

		if err := send.Data(models.ConnectedEvent{
			Message:   "SSE connection established",
			Timestamp: time.Now().Format(time.RFC3339),
		}); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-feed.C():
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}

// closeFeed detaches feed from the bus and reports anything the client missed.
func (s *Server) closeFeed(feed *events.Feed, stream string) {
	feed.Close()
	if n := feed.Dropped(); n > 0 {
		s.logger.Warn("SSE client fell behind", "stream", stream, "dropped", n)
	}
}
