// Package button debounces the M5StickC push buttons.
//
// Each button keeps the last eight samples of its input. A press is reported
// once two high samples are followed by three low ones; a release once three
// high samples follow a press. The three samples in between are ignored, which
// filters contact bounce without a timer per button.
package button

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/gpio"
)

const (
	historyMask     = 0b11000111
	historyPressed  = 0b11000000
	historyReleased = 0b00000111
)

// Kind of button event.
type Kind uint8

const (
	None Kind = iota
	Pressed
	Released
)

func (k Kind) String() string {
	switch k {
	case Pressed:
		return "pressed"
	case Released:
		return "released"
	default:
		return "none"
	}
}

// Debouncer is the sample history of one active low input.
type Debouncer uint8

// NewDebouncer returns the history of a released button.
func NewDebouncer() Debouncer {
	return 0xFF
}

// Update shifts in a sample and reports a completed transition.
func (d *Debouncer) Update(level gpio.Level) Kind {
	h := *d << 1
	if level {
		h |= 1
	}
	switch h & historyMask {
	case historyPressed:
		*d = 0x00
		return Pressed
	case historyReleased:
		*d = 0xFF
		return Released
	}
	*d = h
	return None
}

// Up reports if all recent samples were high.
func (d Debouncer) Up() bool { return d == 0xFF }

// Down reports if all recent samples were low.
func (d Debouncer) Down() bool { return d == 0x00 }

// Button is a named push button on an input pin.
type Button struct {
	Name    string
	Pin     gpio.PinIn
	history Debouncer
}

// New returns a released button.
func New(name string, pin gpio.PinIn) *Button {
	return &Button{Name: name, Pin: pin, history: NewDebouncer()}
}

// Event is a debounced button transition.
type Event struct {
	Button string
	Kind   Kind
	Time   time.Time
}

// Poller samples buttons at a fixed interval.
type Poller struct {
	buttons  []*Button
	interval time.Duration
	logger   *zap.Logger
	events   chan Event
}

// NewPoller returns a poller for buttons.
func NewPoller(interval time.Duration, logger *zap.Logger, buttons ...*Button) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		buttons:  buttons,
		interval: interval,
		logger:   logger.Named("button"),
		events:   make(chan Event, 8),
	}
}

// Init configures the pins as inputs. The buttons have external pull-ups.
func (p *Poller) Init() error {
	for _, b := range p.buttons {
		if err := b.Pin.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
			return errors.Wrapf(err, "button: configure %s on %s", b.Name, b.Pin)
		}
	}
	return nil
}

// Events delivers debounced transitions.
func (p *Poller) Events() <-chan Event {
	return p.events
}

// Tick samples every button once.
func (p *Poller) Tick(now time.Time) {
	for _, b := range p.buttons {
		kind := b.history.Update(b.Pin.Read())
		if kind == None {
			continue
		}
		e := Event{Button: b.Name, Kind: kind, Time: now}
		select {
		case p.events <- e:
			p.logger.With(zap.String("button", b.Name), zap.Stringer("kind", kind)).Debug("event")
		default:
			p.logger.With(zap.String("button", b.Name), zap.Stringer("kind", kind)).Warn("event dropped")
		}
	}
}

// Run samples until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			p.Tick(now)
		}
	}
}
