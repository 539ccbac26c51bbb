package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/rpirtspd/internal/events"
	"github.com/smazurov/rpirtspd/internal/logging"
)

// LogStreamInput selects how much history is replayed on connect.
type LogStreamInput struct {
	Tail int `query:"tail" minimum:"0" default:"0" doc:"Replay only the newest N buffered entries; 0 replays the whole buffer"`
}

// registerLogRoutes registers the log streaming SSE endpoint.
func (s *Server) registerLogRoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "logs-stream",
		Method:      http.MethodGet,
		Path:        "/api/logs/stream",
		Summary:     "Log Stream",
		Description: "Real-time log streaming via Server-Sent Events. Sends buffered history first, then new entries.",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"message": events.LogEntryEvent{},
	}, func(ctx context.Context, input *LogStreamInput, send sse.Sender) {
		// subscribe before replaying history so nothing falls in between
		feed := events.NewFeed(100)
		events.Watch[events.LogEntryEvent](s.eventBus, feed)
		defer s.closeFeed(feed, "logs")

		var lastSeq uint64
		if history := logging.GetBuffer(); history != nil {
			for _, entry := range history.Tail(input.Tail) {
				if err := send.Data(LogEvent(entry)); err != nil {
					return
				}
				lastSeq = entry.Seq
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-feed.C():
				// entries logged during the replay arrive on both paths
				if e, ok := event.(events.LogEntryEvent); ok && e.Seq != 0 && e.Seq <= lastSeq {
					continue
				}
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}

// LogEvent converts a buffered log entry to its event form.
func LogEvent(entry logging.LogEntry) events.LogEntryEvent {
	return events.LogEntryEvent{
		Seq:        entry.Seq,
		Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
		Level:      entry.Level,
		Module:     entry.Module,
		Message:    entry.Message,
		Attributes: entry.Attributes,
	}
}
