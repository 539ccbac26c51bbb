package nats

import (
	"encoding/json"
	"fmt"

	"github.com/smazurov/rpirtspd/internal/control"
)

// Subjects.
const (
	SubjectControl      = "rpirtspd.control"
	SubjectEventsPrefix = "rpirtspd.events"
)

// Event kinds forwarded from the bus.
const (
	EventInstanceCreated   = "instance_created"
	EventInstanceReleased  = "instance_released"
	EventParameterApplied  = "parameter_applied"
	EventDirectiveRejected = "directive_rejected"
	EventOptionsReset      = "options_reset"
)

// SubjectEvent returns the subject a bus event of kind is forwarded to.
func SubjectEvent(kind string) string {
	return fmt.Sprintf("%s.%s", SubjectEventsPrefix, kind)
}

// ControlMessage carries one configuration command.
type ControlMessage struct {
	Command   string `json:"command"`
	Timestamp string `json:"timestamp,omitempty"`
	Sender    string `json:"sender,omitempty"`
}

// Marshal serializes the message to JSON.
func (m ControlMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// ControlReply is sent back when a ControlMessage arrives with a reply subject.
type ControlReply struct {
	Results []control.Outcome `json:"results"`
	Error   string            `json:"error,omitempty"` // set when the request itself was unreadable
}

// Marshal serializes the reply to JSON.
func (m ControlReply) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// UnmarshalControl deserializes a ControlMessage from JSON.
func UnmarshalControl(data []byte) (ControlMessage, error) {
	var m ControlMessage
	err := json.Unmarshal(data, &m)
	return m, err
}

// UnmarshalReply deserializes a ControlReply from JSON.
func UnmarshalReply(data []byte) (ControlReply, error) {
	var m ControlReply
	err := json.Unmarshal(data, &m)
	return m, err
}
