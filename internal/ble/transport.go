// Package ble provides the BLE peripheral side of the Progressor emulator:
// GATT service registration, advertising, connection events and data
// notifications.
package ble

// Progressor BLE UUIDs
const (
	ServiceUUID     = "7e4e1701-1ea6-40c9-9dcc-13d34ffead57"
	DataCharUUID    = "7e4e1702-1ea6-40c9-9dcc-13d34ffead57"
	ControlCharUUID = "7e4e1703-1ea6-40c9-9dcc-13d34ffead57"
)

// Handle identifies a connected central. It is opaque to callers.
type Handle string

// EventType distinguishes the events a Transport delivers.
type EventType int

const (
	// EventConnect signals that a central opened a link.
	EventConnect EventType = iota
	// EventDisconnect signals that a link was closed.
	EventDisconnect
	// EventWrite carries a write to the control characteristic.
	EventWrite
)

func (t EventType) String() string {
	switch t {
	case EventConnect:
		return "connect"
	case EventDisconnect:
		return "disconnect"
	case EventWrite:
		return "write"
	default:
		return "unknown"
	}
}

// Event is delivered by a Transport from its radio callbacks.
type Event struct {
	Type EventType
	Conn Handle
	Data []byte // control-point payload for EventWrite
}

// Transport abstracts the BLE stack for testing.
type Transport interface {
	// Enable powers on the radio and routes events to handler. The handler
	// runs on the stack's callback context and must not block for long.
	Enable(handler func(Event)) error
	// Serve registers the Progressor service and starts advertising name.
	Serve(name string) error
	// StartAdvertising resumes advertising. It is a no-op when already advertising.
	StartAdvertising() error
	// StopAdvertising suspends advertising. It is a no-op when not advertising.
	StopAdvertising() error
	// Notify pushes data to conn on the data characteristic.
	Notify(conn Handle, data []byte) error
	// Disconnect terminates the link to conn.
	Disconnect(conn Handle) error
}
