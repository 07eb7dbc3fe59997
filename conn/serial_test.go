package conn

import (
	"bytes"
	"errors"
	"testing"

	"periph.io/x/conn/v3/gpio"
)

type testPort struct {
	bytes.Buffer
	closed bool
}

func (p *testPort) Close() error {
	p.closed = true
	return nil
}

func TestSerialFrames(t *testing.T) {
	port := new(testPort)
	bus := NewSerial("test", port, 4, nil)

	if err := bus.Reset(gpio.Low); err != nil {
		t.Fatal(err)
	}
	if err := bus.Command(0x36, 0xC8); err != nil {
		t.Fatal(err)
	}
	if err := bus.Start([]byte{1, 2, 3, 4, 5, 6}); err != nil {
		t.Fatal(err)
	}
	if err := bus.Wait(); err != nil {
		t.Fatal(err)
	}

	want := []byte{
		FrameReset, 0x00, 0x01, 0x00,
		FrameCommand, 0x00, 0x02, 0x36, 0xC8,
		FrameData, 0x00, 0x04, 1, 2, 3, 4,
		FrameData, 0x00, 0x02, 5, 6,
	}
	if got := port.Bytes(); !bytes.Equal(got, want) {
		t.Errorf("expected frames\n%x\ngot\n%x", want, got)
	}
}

func TestSerialLimits(t *testing.T) {
	port := new(testPort)
	bus := NewSerial("test", port, 0, nil)
	if v := bus.MaxTxSize(); v != DefaultSerialConfig.MaxFrame {
		t.Errorf("expected default frame size %d, got %d", DefaultSerialConfig.MaxFrame, v)
	}

	bus = NewSerial("test", port, 2, nil)
	if err := bus.Command(0x2A, 0, 0, 0, 79); !errors.Is(err, ErrTooLarge) {
		t.Errorf("expected ErrTooLarge, got %v", err)
	}
	if err := bus.Start([]byte{1}); err != nil {
		t.Fatal(err)
	}
	if err := bus.Command(0x2C); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy, got %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
	if !port.closed {
		t.Error("expected port to be closed")
	}
}
