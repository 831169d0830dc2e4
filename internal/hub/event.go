package hub

import "encoding/json"

// EventKind classifies what the transport observed on the connection.
type EventKind int

const (
	// EventOpen fires when the transport establishes the connection.
	EventOpen EventKind = iota
	// EventAuthenticated fires when the remote side confirms our identity.
	EventAuthenticated
	// EventMessage carries a typed payload on a named channel.
	EventMessage
	// EventError is a generic error event from the remote side.
	EventError
	// EventConnectError is a transport-level connection failure.
	EventConnectError
	// EventDisconnect fires when the connection drops without an error.
	EventDisconnect
)

func (k EventKind) String() string {
	switch k {
	case EventOpen:
		return "open"
	case EventAuthenticated:
		return "authenticated"
	case EventMessage:
		return "message"
	case EventError:
		return "error"
	case EventConnectError:
		return "connect_error"
	case EventDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// Event is one occurrence on the hub connection, delivered by the
// transport in arrival order.
type Event struct {
	Kind    EventKind
	Channel string
	Data    json.RawMessage
	Err     error
}
