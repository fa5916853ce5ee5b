//go:build !tinygo

package loadcell

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/grid-x/serial"
)

// SerialBridge reads raw counts from a helper board that clocks the HX711
// itself and prints one signed decimal count per line over USB serial.
type SerialBridge struct {
	cfg serial.Config

	mu     sync.Mutex
	port   io.ReadWriteCloser
	reader *bufio.Reader
	open   func(*serial.Config) (io.ReadWriteCloser, error)
}

// NewSerialBridge creates a bridge reader. The port is opened lazily on
// the first read and reopened after an I/O error.
func NewSerialBridge(address string, baudRate int, timeout time.Duration) *SerialBridge {
	return &SerialBridge{
		cfg: serial.Config{
			Address:  address,
			BaudRate: baudRate,
			DataBits: 8,
			StopBits: 1,
			Parity:   "N",
			Timeout:  timeout,
		},
		open: func(c *serial.Config) (io.ReadWriteCloser, error) {
			return serial.Open(c)
		},
	}
}

// connect opens the port if needed. Caller must hold mu.
func (b *SerialBridge) connect() error {
	if b.port != nil {
		return nil
	}
	port, err := b.open(&b.cfg)
	if err != nil {
		return fmt.Errorf("loadcell: open %s: %w", b.cfg.Address, err)
	}
	b.port = port
	b.reader = bufio.NewReader(port)
	slog.Info("[SENSOR] serial bridge connected", "address", b.cfg.Address, "baud", b.cfg.BaudRate)
	return nil
}

// ReadRaw returns the newest complete count the bridge has sent. Older
// buffered lines are skipped so readings never lag behind the sensor.
func (b *SerialBridge) ReadRaw() (int32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.connect(); err != nil {
		return 0, err
	}

	line, err := b.reader.ReadString('\n')
	if err != nil {
		b.close()
		return 0, fmt.Errorf("%w: %v", ErrNotReady, err)
	}
	for b.reader.Buffered() > 0 {
		buffered, _ := b.reader.Peek(b.reader.Buffered())
		if bytes.IndexByte(buffered, '\n') < 0 {
			break
		}
		line, _ = b.reader.ReadString('\n')
	}
	return parseCount(line)
}

func parseCount(line string) (int32, error) {
	s := strings.TrimSpace(line)
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("loadcell: bad count %q: %w", s, err)
	}
	return int32(v), nil
}

// Close closes the serial port.
func (b *SerialBridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.close()
}

// close closes the port if open. Caller must hold mu.
func (b *SerialBridge) close() error {
	if b.port == nil {
		return nil
	}
	err := b.port.Close()
	b.port = nil
	b.reader = nil
	return err
}
