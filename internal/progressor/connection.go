package progressor

import (
	"log/slog"

	"github.com/chaz8081/progressor-emu/internal/ble"
)

// onConnect fills the connection slot, or terminates the new link if a
// central is already attached.
func (d *Device) onConnect(h ble.Handle) {
	if d.connected {
		if h == d.conn {
			return
		}
		slog.Info("[BLE] already connected, rejecting central", "conn", h, "current", d.conn)
		if err := d.transport.Disconnect(h); err != nil {
			slog.Warn("[BLE] reject failed", "conn", h, "error", err)
		}
		return
	}

	d.conn = h
	d.connected = true
	slog.Info("[BLE] central connected", "conn", h)
	if err := d.transport.StopAdvertising(); err != nil {
		slog.Warn("[BLE] stop advertising failed", "error", err)
	}
}

// onDisconnect clears the slot when the tracked central goes away. Links
// we never accepted are ignored.
func (d *Device) onDisconnect(h ble.Handle) {
	if !d.connected || h != d.conn {
		slog.Debug("[BLE] disconnect of untracked central", "conn", h)
		return
	}

	d.conn = ""
	d.connected = false
	d.stream.stop()
	if d.tareRequested {
		slog.Debug("[BLE] dropping pending tare", "conn", h)
		d.tareRequested = false
	}
	slog.Info("[BLE] central disconnected", "conn", h)

	if err := d.transport.StartAdvertising(); err != nil {
		slog.Error("[BLE] restart advertising failed", "error", err)
	}
}
