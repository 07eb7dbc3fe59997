package conn

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"go.bug.st/serial"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/gpio"
)

// Serial bridge frame kinds. Every frame is the kind byte, a big endian
// uint16 payload length and the payload.
const (
	FrameCommand byte = 0x01
	FrameData    byte = 0x02
	FrameReset   byte = 0x03
)

const frameHeaderSize = 3

// SerialConfig describes a display attached through a USB serial bridge.
type SerialConfig struct {
	// Name is matched against the available ports, "ttyACM0" matches
	// "/dev/ttyACM0".
	Name string

	BaudRate int

	// MaxFrame is the largest data payload per frame.
	MaxFrame int
}

// DefaultSerialConfig are the default configuration values.
var DefaultSerialConfig = SerialConfig{
	Name:     "ttyACM0",
	BaudRate: 921600,
	MaxFrame: 4096,
}

// Serial is a Bus that forwards controller traffic to a serial bridge.
type Serial struct {
	name     string
	port     io.WriteCloser
	logger   *zap.Logger
	maxFrame int
	closed   bool
	burst
}

// OpenSerial finds and opens the configured serial port.
func OpenSerial(config *SerialConfig, logger *zap.Logger) (*Serial, error) {
	if config == nil {
		config = new(SerialConfig)
		*config = DefaultSerialConfig
	}

	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, errors.Wrap(err, "conn: list serial ports")
	}

	var matched string
	for _, name := range ports {
		if strings.Contains(name, config.Name) {
			matched = name
			break
		}
	}
	if matched == "" {
		return nil, errors.Errorf("conn: serial port %q not found", config.Name)
	}

	baud := config.BaudRate
	if baud == 0 {
		baud = DefaultSerialConfig.BaudRate
	}
	port, err := serial.Open(matched, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, errors.Wrapf(err, "conn: open serial port %s", matched)
	}

	return NewSerial(matched, port, config.MaxFrame, logger), nil
}

// NewSerial wraps an open port.
func NewSerial(name string, port io.WriteCloser, maxFrame int, logger *zap.Logger) *Serial {
	if maxFrame <= 0 || maxFrame > 0xffff {
		maxFrame = DefaultSerialConfig.MaxFrame
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Serial{
		name:     name,
		port:     port,
		logger:   logger.Named("serial"),
		maxFrame: maxFrame,
	}
}

func (s *Serial) String() string {
	return fmt.Sprintf("serial bridge %s", s.name)
}

func (s *Serial) Close() error {
	if s.closed {
		return nil
	}
	err := s.wait()
	s.closed = true
	if cerr := s.port.Close(); err == nil {
		err = cerr
	}
	return err
}

func (s *Serial) MaxTxSize() int {
	return s.maxFrame
}

func (s *Serial) Reset(level gpio.Level) error {
	var v byte
	if level {
		v = 1
	}
	return s.send(FrameReset, []byte{v})
}

func (s *Serial) Command(cmd byte, args ...byte) error {
	return s.send(FrameCommand, append([]byte{cmd}, args...))
}

func (s *Serial) Start(p []byte) error {
	if s.closed {
		return ErrClosed
	}
	if s.busy() {
		return ErrBusy
	}
	if len(p) == 0 {
		return nil
	}
	return s.start(func() error {
		return chunked(p, s.maxFrame, func(b []byte) error {
			return s.frame(FrameData, b)
		})
	})
}

func (s *Serial) Wait() error {
	return s.wait()
}

func (s *Serial) send(kind byte, payload []byte) error {
	if s.closed {
		return ErrClosed
	}
	if s.busy() {
		return ErrBusy
	}
	if len(payload) > s.maxFrame {
		return ErrTooLarge
	}
	return s.frame(kind, payload)
}

func (s *Serial) frame(kind byte, payload []byte) error {
	buf := make([]byte, frameHeaderSize+len(payload))
	buf[0] = kind
	binary.BigEndian.PutUint16(buf[1:], uint16(len(payload)))
	copy(buf[frameHeaderSize:], payload)

	if _, err := s.port.Write(buf); err != nil {
		return errors.Wrapf(err, "conn: write frame %#02x", kind)
	}

	s.logger.With(
		zap.Uint8("kind", kind),
		zap.Int("size", len(payload)),
	).Debug("frame")
	return nil
}
