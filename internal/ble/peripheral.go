package ble

import (
	"fmt"
	"log/slog"
	"sync"

	"tinygo.org/x/bluetooth"
)

// Peripheral implements Transport on top of tinygo-org/bluetooth. On Linux
// it talks to BlueZ; on microcontrollers it uses the vendor soft device.
type Peripheral struct {
	adapter *bluetooth.Adapter

	dataChar    bluetooth.Characteristic
	controlChar bluetooth.Characteristic

	// mu protects the fields below.
	mu          sync.Mutex
	handler     func(Event)
	adv         *bluetooth.Advertisement
	advertising bool
	devices     map[Handle]bluetooth.Device
	latest      Handle // most recently connected central, used to attribute writes
}

// NewPeripheral creates a Peripheral on the default adapter.
func NewPeripheral() *Peripheral {
	return &Peripheral{
		adapter: bluetooth.DefaultAdapter,
		devices: make(map[Handle]bluetooth.Device),
	}
}

func (p *Peripheral) Enable(handler func(Event)) error {
	p.mu.Lock()
	p.handler = handler
	p.mu.Unlock()

	// The connect handler has to be installed before the stack starts
	// accepting links.
	p.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		h := Handle(device.Address.String())
		p.mu.Lock()
		if connected {
			p.devices[h] = device
			p.latest = h
		} else {
			delete(p.devices, h)
			if p.latest == h {
				p.latest = ""
			}
		}
		p.mu.Unlock()

		if connected {
			p.emit(Event{Type: EventConnect, Conn: h})
		} else {
			p.emit(Event{Type: EventDisconnect, Conn: h})
		}
	})

	if err := p.adapter.Enable(); err != nil {
		return fmt.Errorf("ble: enable adapter: %w", err)
	}
	return nil
}

func (p *Peripheral) Serve(name string) error {
	svcUUID, err := bluetooth.ParseUUID(ServiceUUID)
	if err != nil {
		return fmt.Errorf("ble: parse service UUID: %w", err)
	}
	dataUUID, err := bluetooth.ParseUUID(DataCharUUID)
	if err != nil {
		return fmt.Errorf("ble: parse data UUID: %w", err)
	}
	controlUUID, err := bluetooth.ParseUUID(ControlCharUUID)
	if err != nil {
		return fmt.Errorf("ble: parse control UUID: %w", err)
	}

	// Add the service before advertising it.
	err = p.adapter.AddService(&bluetooth.Service{
		UUID: svcUUID,
		Characteristics: []bluetooth.CharacteristicConfig{
			{
				Handle: &p.dataChar,
				UUID:   dataUUID,
				Value:  []byte{},
				Flags:  bluetooth.CharacteristicReadPermission | bluetooth.CharacteristicNotifyPermission,
			},
			{
				Handle: &p.controlChar,
				UUID:   controlUUID,
				Flags:  bluetooth.CharacteristicWritePermission | bluetooth.CharacteristicWriteWithoutResponsePermission,
				WriteEvent: func(client bluetooth.Connection, offset int, value []byte) {
					// The stack may reuse value after we return.
					data := make([]byte, len(value))
					copy(data, value)
					p.mu.Lock()
					h := p.latest
					p.mu.Unlock()
					p.emit(Event{Type: EventWrite, Conn: h, Data: data})
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ble: add service: %w", err)
	}

	adv := p.adapter.DefaultAdvertisement()
	err = adv.Configure(bluetooth.AdvertisementOptions{
		LocalName:    name,
		ServiceUUIDs: []bluetooth.UUID{svcUUID},
	})
	if err != nil {
		return fmt.Errorf("ble: configure advertisement: %w", err)
	}

	p.mu.Lock()
	p.adv = adv
	p.mu.Unlock()

	return p.StartAdvertising()
}

func (p *Peripheral) StartAdvertising() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.adv == nil {
		return fmt.Errorf("ble: advertisement not configured")
	}
	if p.advertising {
		return nil
	}
	if err := p.adv.Start(); err != nil {
		return fmt.Errorf("ble: start advertising: %w", err)
	}
	p.advertising = true
	slog.Info("[BLE] advertising")
	return nil
}

func (p *Peripheral) StopAdvertising() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.adv == nil || !p.advertising {
		return nil
	}
	if err := p.adv.Stop(); err != nil {
		return fmt.Errorf("ble: stop advertising: %w", err)
	}
	p.advertising = false
	slog.Debug("[BLE] advertising stopped")
	return nil
}

// Notify writes data to the data characteristic, which the stack delivers
// as a notification to the subscribed central. Only one central is ever
// bound, so conn only guards against notifying a stale link.
func (p *Peripheral) Notify(conn Handle, data []byte) error {
	p.mu.Lock()
	_, ok := p.devices[conn]
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("ble: notify %s: not connected", conn)
	}
	if _, err := p.dataChar.Write(data); err != nil {
		return fmt.Errorf("ble: notify %s: %w", conn, err)
	}
	return nil
}

func (p *Peripheral) Disconnect(conn Handle) error {
	p.mu.Lock()
	device, ok := p.devices[conn]
	p.mu.Unlock()
	if !ok {
		return nil
	}
	if err := device.Disconnect(); err != nil {
		return fmt.Errorf("ble: disconnect %s: %w", conn, err)
	}
	return nil
}

func (p *Peripheral) emit(ev Event) {
	p.mu.Lock()
	handler := p.handler
	p.mu.Unlock()
	if handler != nil {
		handler(ev)
	}
}

// Compile-time check that Peripheral implements Transport.
var _ Transport = (*Peripheral)(nil)
