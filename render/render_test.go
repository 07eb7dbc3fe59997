package render

import (
	"bytes"
	"errors"
	"image"
	"testing"

	"github.com/BeatGlow/display/v2"
	"github.com/BeatGlow/display/v2/draw"
	"github.com/BeatGlow/display/v2/pixel"
)

func newTestRenderer(t *testing.T) (*Renderer, *display.Virtual, *display.Engine) {
	t.Helper()
	config := &display.Config{
		Width:          80,
		Height:         160,
		Offset:         display.Offset{Col: 26, Row: 1},
		BytesPerPixel:  2,
		TransferBudget: 80 * 2 * 20,
	}
	v := display.NewVirtual(config, nil)
	e, err := display.New(config, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err = e.Initialize(func() (display.Controller, error) { return v, nil }); err != nil {
		t.Fatal(err)
	}
	return New(e, nil), v, e
}

func TestRefresh(t *testing.T) {
	r, v, e := newTestRenderer(t)

	r.Fill(pixel.Navy)
	draw.Box(r, image.Rect(10, 10, 70, 30), pixel.Yellow)
	r.InvalidateAll()
	if err := r.Refresh(); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(v.Image().Pix, r.Pix) {
		t.Fatal("panel differs from the framebuffer")
	}
	if n := r.Shown(); n != 1 {
		t.Errorf("expected 1 shown region, got %d", n)
	}
	if d := r.Damage(); len(d) != 0 {
		t.Errorf("expected no damage, got %v", d)
	}

	// a small update only sends the damaged rows
	before := e.Stats().Bytes
	draw.Box(r, image.Rect(0, 100, 80, 104), pixel.Red)
	r.Invalidate(image.Rect(0, 100, 80, 104))
	if err := r.Refresh(); err != nil {
		t.Fatal(err)
	}
	if sent := e.Stats().Bytes - before; sent != 80*4*2 {
		t.Errorf("expected %d bytes for the update, got %d", 80*4*2, sent)
	}
	if !bytes.Equal(v.Image().Pix, r.Pix) {
		t.Fatal("panel differs from the framebuffer after the update")
	}

	// nothing to do
	if err := r.Refresh(); err != nil {
		t.Fatal(err)
	}
	if n := r.Shown(); n != 2 {
		t.Errorf("expected 2 shown regions, got %d", n)
	}
}

func TestInvalidate(t *testing.T) {
	tests := []struct {
		name  string
		areas []image.Rectangle
		want  []image.Rectangle
	}{
		{
			name:  "separate",
			areas: []image.Rectangle{image.Rect(0, 0, 10, 10), image.Rect(40, 40, 50, 50)},
			want:  []image.Rectangle{image.Rect(0, 0, 10, 10), image.Rect(40, 40, 50, 50)},
		},
		{
			name:  "overlapping",
			areas: []image.Rectangle{image.Rect(0, 0, 10, 10), image.Rect(5, 5, 20, 20)},
			want:  []image.Rectangle{image.Rect(0, 0, 20, 20)},
		},
		{
			name:  "adjacent",
			areas: []image.Rectangle{image.Rect(0, 0, 80, 20), image.Rect(0, 20, 80, 40)},
			want:  []image.Rectangle{image.Rect(0, 0, 80, 40)},
		},
		{
			name:  "chained",
			areas: []image.Rectangle{image.Rect(0, 0, 10, 10), image.Rect(30, 0, 40, 10), image.Rect(5, 0, 35, 5)},
			want:  []image.Rectangle{image.Rect(0, 0, 40, 10)},
		},
		{
			name:  "clipped",
			areas: []image.Rectangle{image.Rect(-10, 150, 100, 200)},
			want:  []image.Rectangle{image.Rect(0, 150, 80, 160)},
		},
		{
			name:  "outside",
			areas: []image.Rectangle{image.Rect(100, 0, 120, 10)},
			want:  nil,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(it *testing.T) {
			r, _, _ := newTestRenderer(it)
			for _, a := range test.areas {
				r.Invalidate(a)
			}
			got := r.Damage()
			if len(got) != len(test.want) {
				it.Fatalf("expected %v, got %v", test.want, got)
			}
			for i := range got {
				if got[i] != test.want[i] {
					it.Errorf("expected %v, got %v", test.want, got)
				}
			}
		})
	}
}

func TestInvalidateCollapse(t *testing.T) {
	r, _, _ := newTestRenderer(t)
	for i := 0; i <= maxDamage; i++ {
		r.Invalidate(image.Rect(0, i*10, 5, i*10+5))
	}
	got := r.Damage()
	if want := image.Rect(0, 0, 5, maxDamage*10+5); len(got) != 1 || got[0] != want {
		t.Errorf("expected a single %s, got %v", want, got)
	}
}

func TestRefreshRetry(t *testing.T) {
	r, v, _ := newTestRenderer(t)
	r.Fill(pixel.Orange)
	r.InvalidateAll()

	v.FailAt = v.Writes() + 2
	err := r.Refresh()
	if !errors.Is(err, display.ErrWrite) || !errors.Is(err, display.ErrVirtualFault) {
		t.Fatalf("expected a write failure, got %v", err)
	}
	if d := r.Damage(); len(d) != 1 || d[0] != r.Bounds() {
		t.Fatalf("expected the frame to stay damaged, got %v", d)
	}
	if n := r.Shown(); n != 0 {
		t.Errorf("expected nothing shown, got %d", n)
	}

	if err = r.Refresh(); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(v.Image().Pix, r.Pix) {
		t.Fatal("panel differs from the framebuffer after the retry")
	}
}

type testFlusher struct {
	ready func(display.Rect)
}

func (f *testFlusher) Flush(display.Rect, []byte) error { return nil }
func (f *testFlusher) OnReady(fn func(display.Rect))    { f.ready = fn }
func (f *testFlusher) Bounds() image.Rectangle          { return image.Rect(0, 0, 8, 8) }

func TestRefreshPending(t *testing.T) {
	f := new(testFlusher)
	r := New(f, nil)
	r.InvalidateAll()
	if err := r.Refresh(); !errors.Is(err, ErrPending) {
		t.Fatalf("expected ErrPending, got %v", err)
	}
	if err := r.Refresh(); !errors.Is(err, ErrPending) {
		t.Fatalf("expected ErrPending until confirmed, got %v", err)
	}
	f.ready(display.Rect{X2: 7, Y2: 7})
	if err := r.Refresh(); !errors.Is(err, ErrPending) {
		t.Fatalf("expected the unconfirmed area to be sent again, got %v", err)
	}
}
