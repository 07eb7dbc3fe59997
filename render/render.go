// Package render keeps the dashboard framebuffer and sends its damaged areas
// to the display engine.
package render

import (
	"image"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/BeatGlow/display/v2"
	"github.com/BeatGlow/display/v2/pixel"
)

// maxDamage is the number of separate damaged areas kept before they are
// merged into their bounding box.
const maxDamage = 8

// ErrPending is returned by Refresh when the previous region was not
// confirmed by the engine.
var ErrPending = errors.New("render: previous region is still in flight")

// Flusher sends regions to the display.
type Flusher interface {
	Flush(r display.Rect, pix []byte) error
	OnReady(func(display.Rect))
	Bounds() image.Rectangle
}

// Renderer owns the framebuffer. Drawing and Refresh must happen on one
// goroutine; the engine is only ever called with the lock held.
type Renderer struct {
	*pixel.CRGB16Image

	mu       sync.Mutex
	flusher  Flusher
	logger   *zap.Logger
	damage   []image.Rectangle
	scratch  []byte
	inflight bool
	shown    uint64
}

// New returns a renderer with a framebuffer covering the flusher bounds.
func New(flusher Flusher, logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	size := flusher.Bounds().Size()
	r := &Renderer{
		CRGB16Image: pixel.NewCRGB16Image(size.X, size.Y),
		flusher:     flusher,
		logger:      logger.Named("render"),
		scratch:     make([]byte, 0, size.X*size.Y*2),
	}
	flusher.OnReady(r.ready)
	return r
}

// ready is called by the engine once a region is on the panel.
func (r *Renderer) ready(rect display.Rect) {
	r.inflight = false
	r.shown++
	r.scratch = r.scratch[:0]
	r.logger.With(zap.Stringer("rect", rect)).Debug("visible")
}

// Invalidate marks an area of the framebuffer as changed.
func (r *Renderer) Invalidate(area image.Rectangle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidate(area)
}

func (r *Renderer) invalidate(area image.Rectangle) {
	area = area.Intersect(r.Bounds())
	if area.Empty() {
		return
	}

	// merge with every area it touches, repeat until stable
	for merged := true; merged; {
		merged = false
		for i, d := range r.damage {
			if d.Overlaps(area) || adjacent(d, area) {
				area = area.Union(d)
				r.damage = append(r.damage[:i], r.damage[i+1:]...)
				merged = true
				break
			}
		}
	}
	r.damage = append(r.damage, area)

	if len(r.damage) > maxDamage {
		var all image.Rectangle
		for _, d := range r.damage {
			all = all.Union(d)
		}
		r.damage = append(r.damage[:0], all)
	}
}

func adjacent(a, b image.Rectangle) bool {
	return a.Inset(-1).Overlaps(b)
}

// InvalidateAll marks the whole framebuffer as changed.
func (r *Renderer) InvalidateAll() {
	r.Invalidate(r.Bounds())
}

// Damage returns the areas waiting for a refresh.
func (r *Renderer) Damage() []image.Rectangle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]image.Rectangle(nil), r.damage...)
}

// Refresh flushes every damaged area. An area that fails stays damaged and
// is flushed again by the next Refresh.
func (r *Renderer) Refresh() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.damage) == 0 {
		return nil
	}
	if r.inflight {
		return ErrPending
	}

	log := r.logger.With(
		zap.Int("areas", len(r.damage)),
		zap.Int("pixels", lo.SumBy(r.damage, func(d image.Rectangle) int { return d.Dx() * d.Dy() })),
	)

	for len(r.damage) > 0 {
		area := r.damage[0]
		r.scratch = r.Pixels(area, r.scratch)
		r.inflight = true
		if err := r.flusher.Flush(display.RectOf(area), r.scratch); err != nil {
			r.inflight = false
			log.With(zap.Stringer("area", area), zap.Error(err)).Warn("refresh failed")
			return errors.Wrapf(err, "render: flush %s", area)
		}
		if r.inflight {
			// the flusher returned without confirming the region
			return ErrPending
		}
		r.damage = r.damage[1:]
	}
	log.Debug("refreshed")
	return nil
}

// Shown is the number of regions confirmed by the engine.
func (r *Renderer) Shown() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shown
}
