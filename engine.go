package display

import (
	"fmt"
	"image"

	"go.uber.org/zap"
)

// WriteError is returned by Flush when a burst could not be sent. The
// chunks after Chunk were not sent.
type WriteError struct {
	Chunk  int
	Chunks int
	Err    error
}

func (err *WriteError) Error() string {
	return fmt.Sprintf("display: write failed at chunk %d of %d: %v", err.Chunk+1, err.Chunks, err.Err)
}

func (err *WriteError) Is(target error) bool {
	return target == ErrWrite
}

func (err *WriteError) Unwrap() error {
	return err.Err
}

// Stats are the running transfer counters of an Engine.
type Stats struct {
	Flushes uint64
	Failed  uint64
	Chunks  uint64
	Bytes   uint64
}

// Engine sends framebuffer regions to a display controller.
//
// An Engine has a single caller: Flush must not be called concurrently.
type Engine struct {
	config        Config
	logger        *zap.Logger
	linesPerChunk int
	ctrl          Controller
	buf           []byte
	ready         func(Rect)
	stats         Stats
}

// New validates the configuration and returns an uninitialized engine.
func New(config *Config, logger *zap.Logger) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		config:        *config,
		logger:        logger.Named("engine"),
		linesPerChunk: config.LinesPerChunk(),
	}, nil
}

// Initialize opens the transport, brings up the controller and allocates the
// transfer buffer.
func (e *Engine) Initialize(open Opener) error {
	if e.ctrl != nil {
		if err := e.Close(); err != nil {
			e.logger.With(zap.Error(err)).Warn("closing previous controller failed")
		}
	}

	ctrl, err := open()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransportOpen, err)
	}

	if err = ctrl.Bringup(); err != nil {
		_ = ctrl.Close()
		return fmt.Errorf("%w: %s: %w", ErrBringup, ctrl, err)
	}

	if l, ok := ctrl.(interface{ MaxTxSize() int }); ok {
		if limit := l.MaxTxSize(); limit > 0 && limit < e.config.TransferBudget {
			_ = ctrl.Close()
			return &ConfigError{"transfer budget", fmt.Sprintf("%d bytes exceeds the %d byte limit of %s", e.config.TransferBudget, limit, ctrl)}
		}
	}

	e.ctrl = ctrl
	e.buf = make([]byte, e.config.TransferBudget)

	e.logger.With(
		zap.Stringer("controller", ctrl),
		zap.Int("width", e.config.Width),
		zap.Int("height", e.config.Height),
		zap.Stringer("rotation", e.config.Rotation),
		zap.Int("budget", e.config.TransferBudget),
		zap.Int("lines", e.linesPerChunk),
	).Info("initialized")
	return nil
}

// OnReady registers the function called after a region has been sent.
func (e *Engine) OnReady(fn func(Rect)) {
	e.ready = fn
}

// Bounds is the logical display area.
func (e *Engine) Bounds() image.Rectangle {
	return image.Rect(0, 0, e.config.Width, e.config.Height)
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.config
}

// Stats returns the transfer counters.
func (e *Engine) Stats() Stats {
	return e.stats
}

// Plan returns the chunking of the logical region r.
func (e *Engine) Plan(r Rect) Plan {
	lines := e.linesPerChunk
	if r.Dx() != e.config.Width {
		lines = e.config.TransferBudget / (r.Dx() * e.config.BytesPerPixel)
	}
	return NewPlan(Physical(r, e.config.Offset, e.config.Rotation), e.config.BytesPerPixel, lines)
}

// Flush sends the pixels of the logical region r, row major, and calls the
// ready function once every chunk has been written.
//
// A failed chunk aborts the flush with a *WriteError, the ready function is
// not called and the region should be flushed again.
func (e *Engine) Flush(r Rect, pix []byte) error {
	if e.ctrl == nil {
		return ErrNotInitialized
	}
	if !r.In(e.config.Width, e.config.Height) {
		return fmt.Errorf("%w: %s", ErrBounds, r)
	}

	plan := e.Plan(r)
	if len(pix) != plan.Total {
		return fmt.Errorf("%w: got %d bytes, expected %d", ErrBufferSize, len(pix), plan.Total)
	}

	e.stats.Flushes++
	for c := range plan.Chunks() {
		if err := e.send(plan.Window, c, pix); err != nil {
			e.stats.Failed++
			e.logger.With(
				zap.Stringer("rect", r),
				zap.Int("chunk", c.Index),
				zap.Error(err),
			).Warn("flush aborted")
			return &WriteError{Chunk: c.Index, Chunks: plan.Len(), Err: err}
		}
		e.stats.Chunks++
		e.stats.Bytes += uint64(c.Len)
	}

	if e.ready != nil {
		e.ready(r)
	}
	return nil
}

func (e *Engine) send(window Rect, c Chunk, pix []byte) error {
	if err := e.ctrl.SetWindow(window.X1, c.StartRow, window.X2, c.EndRow); err != nil {
		return err
	}

	n := copy(e.buf, pix[c.Offset:c.Offset+c.Len])
	if err := e.ctrl.Write(e.buf[:n]); err != nil {
		return err
	}
	if err := e.ctrl.Wait(); err != nil {
		return err
	}

	if ce := e.logger.Check(zap.DebugLevel, "chunk"); ce != nil {
		ce.Write(
			zap.Int("index", c.Index),
			zap.Int("start", c.StartRow),
			zap.Int("end", c.EndRow),
			zap.Int("size", n),
			zap.Bool("remainder", c.Remainder),
		)
	}
	return nil
}

// Close releases the controller and the transfer buffer.
func (e *Engine) Close() error {
	if e.ctrl == nil {
		return nil
	}
	err := e.ctrl.Close()
	e.ctrl = nil
	e.buf = nil
	return err
}
