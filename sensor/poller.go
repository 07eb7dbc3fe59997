package sensor

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Poller reads all sources at a fixed interval. Only the latest reading is
// kept when the consumer falls behind.
type Poller struct {
	sources  Sources
	interval time.Duration
	logger   *zap.Logger
	readings chan Reading
	now      func() time.Time
}

// Sources are the polled sensors. Missing ones are nil.
type Sources struct {
	Env   EnvironmentSensor
	Air   AtmosphereSensor
	Power PowerSensor
}

// NewPoller returns a poller for the sources.
func NewPoller(sources Sources, interval time.Duration, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		sources:  sources,
		interval: interval,
		logger:   logger.Named("sensor"),
		readings: make(chan Reading, 1),
		now:      time.Now,
	}
}

// Readings delivers the polled readings.
func (p *Poller) Readings() <-chan Reading {
	return p.readings
}

// Poll reads every source once. A failing source is logged and its error is
// kept in the reading.
func (p *Poller) Poll() Reading {
	var (
		s = p.sources
		r = Reading{Time: p.now(), EnvErr: ErrAbsent, AirErr: ErrAbsent, PowerErr: ErrAbsent}
	)
	if s.Env != nil {
		if r.Env, r.EnvErr = s.Env.Environment(); r.EnvErr != nil {
			p.logger.With(zap.Stringer("sensor", s.Env), zap.Error(r.EnvErr)).Warn("read failed")
		}
	}
	if s.Air != nil {
		if r.Air, r.AirErr = s.Air.Atmosphere(); r.AirErr != nil {
			p.logger.With(zap.Stringer("sensor", s.Air), zap.Error(r.AirErr)).Warn("read failed")
		}
	}
	if s.Power != nil {
		if r.Power, r.PowerErr = s.Power.Power(); r.PowerErr != nil {
			p.logger.With(zap.Stringer("sensor", s.Power), zap.Error(r.PowerErr)).Warn("read failed")
		}
	}
	return r
}

// Run polls until ctx is done. The first poll happens immediately.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.publish(p.Poll())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *Poller) publish(r Reading) {
	for {
		select {
		case p.readings <- r:
			return
		default:
		}
		// drop the stale reading
		select {
		case <-p.readings:
		default:
		}
	}
}
