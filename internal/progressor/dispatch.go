package progressor

import (
	"log/slog"

	"github.com/chaz8081/progressor-emu/internal/ble/protocol"
)

// dispatch executes one control-point write. Every byte value is handled:
// anything outside the supported set is ignored without a reply.
func (d *Device) dispatch(data []byte) {
	cmd, ok := protocol.ParseCommand(data)
	if !ok {
		slog.Debug("[BLE] empty control write")
		return
	}
	slog.Debug("[BLE] command", "cmd", cmd, "known", cmd.Known())

	id := d.opts.Identity
	switch cmd {
	case protocol.CmdTare:
		d.tareRequested = true
	case protocol.CmdStartWeight:
		d.stream.start(d.opts.Clock.Micros())
	case protocol.CmdStopWeight:
		d.stream.stop()
	case protocol.CmdGetAppVersion:
		d.replyString(cmd, id.Version)
	case protocol.CmdGetErrorInfo:
		d.replyString(cmd, id.ErrorInfo)
	case protocol.CmdGetBatteryVoltage:
		d.reply(cmd, protocol.EncodeUint(uint64(id.BatteryMillivolts), protocol.BatteryWidth))
	case protocol.CmdGetDeviceID:
		d.reply(cmd, protocol.EncodeUint(id.DeviceID, protocol.DeviceIDWidth))
	case protocol.CmdStartPeakRFD,
		protocol.CmdStartPeakRFDSeries,
		protocol.CmdAddCalibrationPoint,
		protocol.CmdSaveCalibration,
		protocol.CmdClearErrorInfo,
		protocol.CmdEnterSleep:
		slog.Debug("[BLE] unsupported command ignored", "cmd", cmd)
	default:
		slog.Debug("[BLE] unknown command ignored", "cmd", cmd)
	}
}

func (d *Device) replyString(cmd protocol.Command, s string) {
	frame, err := protocol.EncodeString(s)
	if err != nil {
		slog.Warn("[BLE] reply not sent", "cmd", cmd, "error", err)
		return
	}
	d.reply(cmd, frame)
}

func (d *Device) reply(cmd protocol.Command, frame []byte) {
	if !d.connected {
		slog.Debug("[BLE] no central, reply skipped", "cmd", cmd)
		return
	}
	d.notify(frame)
}
