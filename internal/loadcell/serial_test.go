//go:build !tinygo

package loadcell

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/grid-x/serial"
)

type fakePort struct {
	io.Reader
	closed bool
}

func (p *fakePort) Write(b []byte) (int, error) { return len(b), nil }
func (p *fakePort) Close() error                { p.closed = true; return nil }

func newTestBridge(input string) (*SerialBridge, *fakePort) {
	port := &fakePort{Reader: strings.NewReader(input)}
	b := NewSerialBridge("/dev/null", 115200, time.Second)
	b.open = func(*serial.Config) (io.ReadWriteCloser, error) { return port, nil }
	return b, port
}

func TestSerialBridgeReadsNewestLine(t *testing.T) {
	b, _ := newTestBridge("100\r\n200\n-300\n")
	got, err := b.ReadRaw()
	if err != nil {
		t.Fatalf("ReadRaw() error = %v", err)
	}
	if got != -300 {
		t.Errorf("ReadRaw() = %d, want -300 (newest line)", got)
	}
}

func TestSerialBridgeBadLine(t *testing.T) {
	b, _ := newTestBridge("hello\n")
	if _, err := b.ReadRaw(); err == nil {
		t.Error("ReadRaw() should fail on a non-numeric line")
	}
}

func TestSerialBridgeEOFClosesPort(t *testing.T) {
	b, port := newTestBridge("")
	_, err := b.ReadRaw()
	if !errors.Is(err, ErrNotReady) {
		t.Errorf("ReadRaw() error = %v, want %v", err, ErrNotReady)
	}
	if !port.closed {
		t.Error("port should be closed after a read error")
	}
}

func TestSerialBridgeOpenError(t *testing.T) {
	b := NewSerialBridge("/dev/missing", 9600, time.Second)
	b.open = func(*serial.Config) (io.ReadWriteCloser, error) { return nil, errors.New("no such device") }
	if _, err := b.ReadRaw(); err == nil {
		t.Error("ReadRaw() should fail when the port cannot open")
	}
}

func TestSerialBridgeConfig(t *testing.T) {
	b := NewSerialBridge("/dev/ttyUSB0", 57600, 250*time.Millisecond)
	if b.cfg.Address != "/dev/ttyUSB0" || b.cfg.BaudRate != 57600 || b.cfg.Timeout != 250*time.Millisecond {
		t.Errorf("cfg = %+v", b.cfg)
	}
	if b.cfg.Parity != "N" || b.cfg.DataBits != 8 || b.cfg.StopBits != 1 {
		t.Errorf("cfg framing = %s%d%d, want N81", b.cfg.Parity, b.cfg.DataBits, b.cfg.StopBits)
	}
}
