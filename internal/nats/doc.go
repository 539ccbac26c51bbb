// Package nats exposes the control plane over NATS.
//
// # Architecture
//
//   - Server: optional embedded NATS server (nats.embed = true)
//   - Bridge: serves the control subject and forwards control-plane events
//     from the event bus
//   - ControlClient: used by `rpirtspd control --nats` to send commands
//
// # Subjects
//
//	rpirtspd.control                        # ControlMessage, request/reply
//	rpirtspd.events.instance_created        # InstanceCreatedEvent
//	rpirtspd.events.instance_released       # InstanceReleasedEvent
//	rpirtspd.events.parameter_applied       # ParameterAppliedEvent
//	rpirtspd.events.directive_rejected      # DirectiveRejectedEvent
//	rpirtspd.events.options_reset           # OptionsResetEvent
//
// Commands published without a reply subject are applied and their results
// only logged. Core NATS only, no JetStream.
//
// # Debugging with nats CLI
//
// Watch everything the server forwards:
//
//	nats sub "rpirtspd.events.>"
//
// Send a command and print the per-directive results:
//
//	nats req rpirtspd.control '{"command":"main bitrate=500000"}'
//
// # Message Formats
//
// ControlMessage:
//
//	{
//	  "command": "main bitrate=500000 audio1 max-size-time=100000000",
//	  "timestamp": "2025-01-27T10:30:00Z",
//	  "sender": "laptop"
//	}
//
// ControlReply:
//
//	{
//	  "results": [
//	    {"kind": "select", "token": "main", "stream": "main", "applied": true, "recorded": false, "outcome": "select"},
//	    {"kind": "set", "token": "bitrate=500000", "stream": "main", "role": "video-capture",
//	     "key": "bitrate", "value": "500000", "applied": true, "recorded": true, "outcome": "applied"}
//	  ]
//	}
package nats
