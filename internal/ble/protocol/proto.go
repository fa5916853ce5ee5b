// Package protocol implements the Progressor wire format: single-byte
// commands written to the control point, and [type, length, payload]
// frames notified on the data characteristic.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Command is a control-point command code. Only the first byte of a write
// is significant; trailing bytes are reserved for future arguments.
type Command uint8

const (
	CmdTare                Command = 100
	CmdStartWeight         Command = 101
	CmdStopWeight          Command = 102
	CmdStartPeakRFD        Command = 103
	CmdStartPeakRFDSeries  Command = 104
	CmdAddCalibrationPoint Command = 105
	CmdSaveCalibration     Command = 106
	CmdGetAppVersion       Command = 107
	CmdGetErrorInfo        Command = 108
	CmdClearErrorInfo      Command = 109
	CmdEnterSleep          Command = 110
	CmdGetBatteryVoltage   Command = 111
	CmdGetDeviceID         Command = 112
)

var commandNames = map[Command]string{
	CmdTare:                "TARE",
	CmdStartWeight:         "START_WEIGHT",
	CmdStopWeight:          "STOP_WEIGHT",
	CmdStartPeakRFD:        "START_PEAK_RFD",
	CmdStartPeakRFDSeries:  "START_PEAK_RFD_SERIES",
	CmdAddCalibrationPoint: "ADD_CALIBRATION_POINT",
	CmdSaveCalibration:     "SAVE_CALIBRATION",
	CmdGetAppVersion:       "GET_APP_VERSION",
	CmdGetErrorInfo:        "GET_ERROR_INFO",
	CmdClearErrorInfo:      "CLEAR_ERROR_INFO",
	CmdEnterSleep:          "ENTER_SLEEP",
	CmdGetBatteryVoltage:   "GET_BATTERY_MV",
	CmdGetDeviceID:         "GET_DEVICE_ID",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint8(c))
}

// Known reports whether c is part of the Progressor command set.
func (c Command) Known() bool {
	_, ok := commandNames[c]
	return ok
}

// ParseCommand extracts the command code from a control-point write.
// It returns false for an empty write.
func ParseCommand(data []byte) (Command, bool) {
	if len(data) == 0 {
		return 0, false
	}
	return Command(data[0]), true
}

// ResponseType is the first byte of every frame on the data characteristic.
type ResponseType uint8

const (
	ResponseCommand         ResponseType = 0
	ResponseWeight          ResponseType = 1
	ResponseRFDPeak         ResponseType = 2
	ResponseRFDPeakSeries   ResponseType = 3
	ResponseLowPowerWarning ResponseType = 4
)

const (
	// MaxPayloadBytes is the largest payload a one-byte length can describe.
	MaxPayloadBytes = 255

	// SamplePayloadBytes is the size of a weight sample: float32 weight
	// followed by uint32 elapsed microseconds.
	SamplePayloadBytes = 8

	// BatteryWidth and DeviceIDWidth are the minimum widths of the numeric replies.
	BatteryWidth  = 4
	DeviceIDWidth = 8
)

// ErrPayloadTooLong is returned when a payload does not fit the length byte.
var ErrPayloadTooLong = errors.New("protocol: payload exceeds 255 bytes")

// Frame builds [type, len(payload), payload...].
func Frame(t ResponseType, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadBytes {
		return nil, ErrPayloadTooLong
	}
	buf := make([]byte, 0, 2+len(payload))
	buf = append(buf, byte(t), byte(len(payload)))
	buf = append(buf, payload...)
	return buf, nil
}

// EncodeString builds a command reply carrying raw ASCII bytes.
func EncodeString(s string) ([]byte, error) {
	return Frame(ResponseCommand, []byte(s))
}

// EncodeUint builds a command reply carrying v as a little-endian unsigned
// integer, zero-padded to at least minWidth bytes.
func EncodeUint(v uint64, minWidth int) []byte {
	width := ByteLength(v)
	if width < minWidth {
		width = minWidth
	}
	if width > 8 {
		width = 8
	}
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	// width is at most 8, so Frame cannot fail.
	frame, _ := Frame(ResponseCommand, tmp[:width])
	return frame
}

// ByteLength returns the number of bytes needed to represent v. Zero still
// needs one byte.
func ByteLength(v uint64) int {
	if v == 0 {
		return 1
	}
	n := 0
	for v != 0 {
		v >>= 8
		n++
	}
	return n
}

// EncodeSample builds a weight frame: IEEE-754 float32 little-endian weight
// followed by the little-endian elapsed microseconds.
func EncodeSample(weight float32, elapsedMicros uint32) []byte {
	buf := make([]byte, 2+SamplePayloadBytes)
	buf[0] = byte(ResponseWeight)
	buf[1] = SamplePayloadBytes
	binary.LittleEndian.PutUint32(buf[2:6], math.Float32bits(weight))
	binary.LittleEndian.PutUint32(buf[6:10], elapsedMicros)
	return buf
}

// DecodeFrame splits a notification into its type and payload. The payload
// aliases data.
func DecodeFrame(data []byte) (ResponseType, []byte, error) {
	if len(data) < 2 {
		return 0, nil, fmt.Errorf("protocol: frame too short (%d bytes)", len(data))
	}
	n := int(data[1])
	if len(data)-2 != n {
		return 0, nil, fmt.Errorf("protocol: frame length %d does not match payload of %d bytes", n, len(data)-2)
	}
	return ResponseType(data[0]), data[2:], nil
}

// DecodeSample parses a weight frame produced by EncodeSample.
func DecodeSample(data []byte) (weight float32, elapsedMicros uint32, err error) {
	t, payload, err := DecodeFrame(data)
	if err != nil {
		return 0, 0, err
	}
	if t != ResponseWeight {
		return 0, 0, fmt.Errorf("protocol: frame type %d is not a weight sample", t)
	}
	if len(payload) != SamplePayloadBytes {
		return 0, 0, fmt.Errorf("protocol: weight payload is %d bytes, want %d", len(payload), SamplePayloadBytes)
	}
	weight = math.Float32frombits(binary.LittleEndian.Uint32(payload[0:4]))
	elapsedMicros = binary.LittleEndian.Uint32(payload[4:8])
	return weight, elapsedMicros, nil
}

// decodeUint reads a little-endian unsigned integer of up to 8 bytes.
func decodeUint(payload []byte) (uint64, error) {
	if len(payload) == 0 || len(payload) > 8 {
		return 0, fmt.Errorf("protocol: cannot decode %d-byte integer", len(payload))
	}
	var tmp [8]byte
	copy(tmp[:], payload)
	return binary.LittleEndian.Uint64(tmp[:]), nil
}
