// Package conn implements the buses used to talk to display controllers.
//
// A Bus carries short command sequences synchronously and pixel data as
// asynchronous bursts: Start hands a burst to the transport and Wait blocks
// until that burst has left the host. Only one burst may be outstanding.
package conn

import (
	"errors"

	"periph.io/x/conn/v3/gpio"
)

// Bus errors.
var (
	ErrBusy     = errors.New("conn: a burst is already outstanding")
	ErrClosed   = errors.New("conn: bus is closed")
	ErrTooLarge = errors.New("conn: burst exceeds the transport limit")
	ErrResetPin = errors.New("conn: reset GPIO pin is invalid")
	ErrDCPin    = errors.New("conn: data/command (DC) GPIO pin is invalid")
)

// Bus is the connection to a display controller.
type Bus interface {
	String() string

	// Close the bus. An outstanding burst is waited for first.
	Close() error

	// Reset drives the controller reset line to the provided level.
	Reset(gpio.Level) error

	// Command sends a command byte with optional arguments and returns when
	// all bytes have been sent.
	Command(cmd byte, args ...byte) error

	// Start begins sending p as data. The caller must not modify p until
	// Wait returns.
	Start(p []byte) error

	// Wait blocks until the outstanding burst has completed and returns its
	// error. Wait without an outstanding burst returns nil.
	Wait() error

	// MaxTxSize is the largest burst the transport accepts.
	MaxTxSize() int
}

// burst tracks the single outstanding data transfer of a bus.
type burst struct {
	done chan error
}

// start runs send in the background. It fails with ErrBusy when a previous
// burst has not been waited for.
func (b *burst) start(send func() error) error {
	if b.done != nil {
		return ErrBusy
	}
	done := make(chan error, 1)
	b.done = done
	go func() {
		done <- send()
	}()
	return nil
}

func (b *burst) wait() error {
	if b.done == nil {
		return nil
	}
	err := <-b.done
	b.done = nil
	return err
}

func (b *burst) busy() bool {
	return b.done != nil
}

// chunked calls write for consecutive slices of data no larger than size.
func chunked(data []byte, size int, write func([]byte) error) error {
	if size <= 0 || len(data) <= size {
		return write(data)
	}
	for len(data) > 0 {
		n := min(len(data), size)
		if err := write(data[:n]); err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}
