package progressor

import (
	"errors"
	"sync"

	"github.com/chaz8081/progressor-emu/internal/ble"
)

type notification struct {
	conn ble.Handle
	data []byte
}

// mockTransport records everything the device asks of the radio.
type mockTransport struct {
	mu            sync.Mutex
	handler       func(ble.Event)
	name          string
	advertising   bool
	advStarts     int
	advStops      int
	notifications []notification
	disconnected  []ble.Handle
	notifyErr     error
}

func newMockTransport() *mockTransport {
	return &mockTransport{}
}

func (m *mockTransport) Enable(handler func(ble.Event)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = handler
	return nil
}

func (m *mockTransport) Serve(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handler == nil {
		return errors.New("mock: not enabled")
	}
	m.name = name
	m.advertising = true
	m.advStarts++
	return nil
}

func (m *mockTransport) StartAdvertising() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.advertising {
		m.advertising = true
		m.advStarts++
	}
	return nil
}

func (m *mockTransport) StopAdvertising() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.advertising {
		m.advertising = false
		m.advStops++
	}
	return nil
}

func (m *mockTransport) Notify(conn ble.Handle, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.notifyErr != nil {
		return m.notifyErr
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.notifications = append(m.notifications, notification{conn: conn, data: cp})
	return nil
}

func (m *mockTransport) Disconnect(conn ble.Handle) error {
	m.mu.Lock()
	m.disconnected = append(m.disconnected, conn)
	m.mu.Unlock()
	return nil
}

// Simulate delivers an event the way the radio callback would.
func (m *mockTransport) Simulate(ev ble.Event) {
	m.mu.Lock()
	h := m.handler
	m.mu.Unlock()
	if h != nil {
		h(ev)
	}
}

func (m *mockTransport) sent() []notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notification(nil), m.notifications...)
}

func (m *mockTransport) isAdvertising() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.advertising
}

func (m *mockTransport) rejected() []ble.Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ble.Handle(nil), m.disconnected...)
}

var _ ble.Transport = (*mockTransport)(nil)
