package events

// Event type constants for kelindar/event.
const (
	TypeInstanceCreated uint32 = iota + 1
	TypeInstanceReleased
	TypeParameterApplied
	TypeDirectiveRejected
	TypeOptionsReset
	TypeClientConnected
	TypeClientDisconnected
	TypeLogEntry
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// InstanceCreatedEvent is published after a pipeline instance was registered
// and stored options were replayed onto it.
type InstanceCreatedEvent struct {
	Stream    string   `json:"stream" example:"main" doc:"Mount point name"`
	Roles     []string `json:"roles" example:"[\"video-capture\",\"audio-queue\"]" doc:"Configurable stage roles present in the instance"`
	Replayed  int      `json:"replayed" example:"3" doc:"Stored options re-applied to the instance"`
	Timestamp string   `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for InstanceCreatedEvent.
func (e InstanceCreatedEvent) Type() uint32 { return TypeInstanceCreated }

// InstanceReleasedEvent is published when the transport tears down an
// instance that no longer has clients.
type InstanceReleasedEvent struct {
	Stream    string `json:"stream" example:"main" doc:"Mount point name"`
	Reason    string `json:"reason" example:"idle" doc:"Why the instance was released"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for InstanceReleasedEvent.
func (e InstanceReleasedEvent) Type() uint32 { return TypeInstanceReleased }

// ParameterAppliedEvent is published for every successful stage mutation.
type ParameterAppliedEvent struct {
	Stream    string `json:"stream" example:"main" doc:"Mount point name"`
	Role      string `json:"role" example:"video-capture" doc:"Stage role"`
	Key       string `json:"key" example:"bitrate" doc:"Parameter name"`
	Value     string `json:"value" example:"500000" doc:"Raw value as given by the operator"`
	Replay    bool   `json:"replay" doc:"True when applied from stored options"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ParameterAppliedEvent.
func (e ParameterAppliedEvent) Type() uint32 { return TypeParameterApplied }

// DirectiveRejectedEvent is published when a directive is skipped.
type DirectiveRejectedEvent struct {
	Stream    string `json:"stream,omitempty" example:"audio1" doc:"Selected mount point, if any"`
	Token     string `json:"token" example:"leaky=downstream" doc:"Directive as written"`
	Reason    string `json:"reason" example:"stage_not_found" doc:"Failure class"`
	Error     string `json:"error" doc:"Detailed error description"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DirectiveRejectedEvent.
func (e DirectiveRejectedEvent) Type() uint32 { return TypeDirectiveRejected }

// OptionsResetEvent is published when a reset directive clears stored options.
type OptionsResetEvent struct {
	Cleared   int    `json:"cleared" example:"4" doc:"Number of stored options removed"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for OptionsResetEvent.
func (e OptionsResetEvent) Type() uint32 { return TypeOptionsReset }

// ClientConnectedEvent is published when an RTSP client starts playing a mount.
type ClientConnectedEvent struct {
	Stream    string `json:"stream" example:"main" doc:"Mount point name"`
	Remote    string `json:"remote" example:"192.168.1.20:51234" doc:"Client address"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ClientConnectedEvent.
func (e ClientConnectedEvent) Type() uint32 { return TypeClientConnected }

// ClientDisconnectedEvent is published when an RTSP client session ends.
type ClientDisconnectedEvent struct {
	Stream    string `json:"stream" example:"main" doc:"Mount point name"`
	Remote    string `json:"remote" example:"192.168.1.20:51234" doc:"Client address"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ClientDisconnectedEvent.
func (e ClientDisconnectedEvent) Type() uint32 { return TypeClientDisconnected }

// LogEntryEvent represents a log entry for SSE streaming.
type LogEntryEvent struct {
	Seq        uint64         `json:"seq" example:"42" doc:"Position in the server log history"`
	Timestamp  string         `json:"timestamp" example:"2025-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"control" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
