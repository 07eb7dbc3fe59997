package display

import (
	"bytes"
	"errors"
	"testing"

	"github.com/BeatGlow/display/v2/conn"
)

func TestVirtualFlush(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
	}{
		{"portrait", &Config{
			Width: 80, Height: 160,
			Offset:        Offset{Col: 26, Row: 1},
			BytesPerPixel: 2, TransferBudget: 80 * 2 * 20,
		}},
		{"landscape", &Config{
			Width: 160, Height: 80,
			Rotation:      Rotate270,
			Offset:        Offset{Col: 26, Row: 1},
			BytesPerPixel: 2, TransferBudget: 160 * 2 * 10,
		}},
	}
	for _, test := range tests {
		t.Run(test.name, func(it *testing.T) {
			v := NewVirtual(test.config, nil)
			v.Limit = test.config.TransferBudget
			e, err := New(test.config, nil)
			if err != nil {
				it.Fatal(err)
			}
			if err = e.Initialize(func() (Controller, error) { return v, nil }); err != nil {
				it.Fatal(err)
			}

			full := Rect{X2: test.config.Width - 1, Y2: test.config.Height - 1}
			pix := testPixels(test.config.Width * test.config.Height * 2)
			if err = e.Flush(full, pix); err != nil {
				it.Fatal(err)
			}
			if got := v.Image().Pix; !bytes.Equal(got, pix) {
				it.Fatal("visible memory differs from the flushed frame")
			}

			// overwrite a region in the middle
			part := Rect{X1: 3, Y1: 7, X2: 12, Y2: 30}
			if part.Y2 >= test.config.Height {
				part.Y2 = test.config.Height - 1
			}
			patch := bytes.Repeat([]byte{0xAB, 0xCD}, part.Dx()*part.Dy())
			if err = e.Flush(part, patch); err != nil {
				it.Fatal(err)
			}
			img := v.Image()
			stride := test.config.Width * 2
			for y := 0; y < test.config.Height; y++ {
				for x := 0; x < test.config.Width; x++ {
					i := y*stride + x*2
					want := pix[i : i+2]
					if x >= part.X1 && x <= part.X2 && y >= part.Y1 && y <= part.Y2 {
						want = []byte{0xAB, 0xCD}
					}
					if got := img.Pix[i : i+2]; !bytes.Equal(got, want) {
						it.Fatalf("pixel (%d,%d) is %x, expected %x", x, y, got, want)
					}
				}
			}
		})
	}
}

func TestVirtualFaults(t *testing.T) {
	config := testConfig()
	v := NewVirtual(config, nil)

	if err := v.SetWindow(0, 0, 1, 1); err == nil {
		t.Error("expected an error before bring-up")
	}
	if err := v.Bringup(); err != nil {
		t.Fatal(err)
	}
	if err := v.SetWindow(0, 0, VirtualRAMWidth, 0); !errors.Is(err, ErrBounds) {
		t.Errorf("expected ErrBounds outside controller memory, got %v", err)
	}
	if err := v.SetWindow(0, 0, 9, 0); err != nil {
		t.Fatal(err)
	}
	if err := v.Write(make([]byte, 20)); err != nil {
		t.Fatal(err)
	}
	if err := v.Write(make([]byte, 20)); !errors.Is(err, conn.ErrBusy) {
		t.Errorf("expected ErrBusy for overlapping writes, got %v", err)
	}
	_ = v.Wait()

	v.Limit = 10
	if err := v.Write(make([]byte, 20)); !errors.Is(err, conn.ErrTooLarge) {
		t.Errorf("expected ErrTooLarge, got %v", err)
	}

	v.FailAt = v.Writes() + 1
	if err := v.Write(make([]byte, 2)); !errors.Is(err, ErrVirtualFault) {
		t.Errorf("expected the injected fault, got %v", err)
	}
	if err := v.Write(make([]byte, 2)); err != nil {
		t.Errorf("expected the fault to fire once, got %v", err)
	}
}
