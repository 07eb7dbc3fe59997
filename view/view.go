// Package view draws the dashboard screens into the framebuffer.
package view

import (
	"image"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/BeatGlow/display/v2/draw"
	"github.com/BeatGlow/display/v2/pixel"
)

// Layout
const (
	TitleHeight = 20
	ValueSize   = 20 // points
	lineHeight  = 14
	margin      = 3
)

// Colors
var (
	TitleBackground   = pixel.Navy
	ContentBackground = pixel.Blue
	Foreground        = pixel.White
)

// Canvas is a framebuffer that tracks changed areas.
type Canvas interface {
	draw.Image
	Invalidate(image.Rectangle)
}

// Controller shows one screen at a time and switches between them.
type Controller struct {
	canvas   Canvas
	screens  []Screen
	current  int
	title    draw.Face
	small    draw.Face
	value    draw.Face
	snapshot Snapshot
	shown    Content
	logger   *zap.Logger
}

// New returns a controller showing the first screen. Without screens the
// default dashboard is used.
func New(canvas Canvas, logger *zap.Logger, screens ...Screen) (*Controller, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(screens) == 0 {
		screens = Screens()
	}
	value, err := draw.RegularFace(ValueSize)
	if err != nil {
		return nil, errors.Wrap(err, "view: load value face")
	}
	c := &Controller{
		canvas:  canvas,
		screens: screens,
		title:   draw.SmallFace,
		small:   draw.SmallFace,
		value:   value,
		logger:  logger.Named("view"),
	}
	c.logger.With(zap.Strings("screens", lo.Map(screens, func(s Screen, _ int) string {
		return s.Title
	}))).Debug("screens")
	return c, nil
}

// Current is the visible screen.
func (c *Controller) Current() Screen {
	return c.screens[c.current]
}

// Next shows the following screen, the last wraps to the first.
func (c *Controller) Next() {
	c.show((c.current + 1) % len(c.screens))
}

// Prev shows the previous screen, the first wraps to the last.
func (c *Controller) Prev() {
	c.show((c.current + len(c.screens) - 1) % len(c.screens))
}

func (c *Controller) show(i int) {
	c.current = i
	c.logger.With(zap.String("screen", c.screens[i].Title)).Debug("show")
	c.Redraw()
}

// Redraw draws the title and content of the current screen.
func (c *Controller) Redraw() {
	titlePane, _ := c.panes()
	draw.Box(c.canvas, titlePane, TitleBackground)
	draw.TextCentered(c.canvas, c.title, titlePane, c.Current().Title, Foreground)
	c.canvas.Invalidate(titlePane)
	c.drawContent(c.Current().Content(c.snapshot))
}

// Update stores the latest measurements and redraws the content pane when
// its text changed. It reports if anything was drawn.
func (c *Controller) Update(s Snapshot) bool {
	c.snapshot = s
	content := c.Current().Content(s)
	if content.equal(c.shown) {
		return false
	}
	c.drawContent(content)
	return true
}

func (c *Controller) panes() (title, content image.Rectangle) {
	b := c.canvas.Bounds()
	title = image.Rect(b.Min.X, b.Min.Y, b.Max.X, b.Min.Y+TitleHeight)
	content = image.Rect(b.Min.X, title.Max.Y, b.Max.X, b.Max.Y)
	return
}

func (c *Controller) drawContent(content Content) {
	_, pane := c.panes()
	draw.Box(c.canvas, pane, ContentBackground)

	y := pane.Min.Y + margin
	if content.Value != "" {
		h := (c.value.Metrics().Height).Ceil() + 2*margin
		draw.TextCentered(c.canvas, c.value, image.Rect(pane.Min.X, y, pane.Max.X, y+h), content.Value, Foreground)
		y += h
	}
	ascent := c.small.Metrics().Ascent.Ceil()
	for _, line := range content.Lines {
		draw.Text(c.canvas, c.small, image.Pt(pane.Min.X+margin, y+ascent), line, Foreground)
		y += lineHeight
	}

	c.canvas.Invalidate(pane)
	c.shown = content
}
