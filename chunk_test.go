package display

import (
	"image"
	"testing"
)

func TestPhysical(t *testing.T) {
	offset := Offset{Col: 26, Row: 1}
	tests := []struct {
		name     string
		rect     Rect
		rotation Rotation
		want     Rect
	}{
		{"portrait full", Rect{0, 0, 79, 159}, NoRotation, Rect{26, 1, 105, 160}},
		{"portrait part", Rect{10, 20, 19, 29}, NoRotation, Rect{36, 21, 45, 30}},
		{"flipped", Rect{0, 0, 79, 159}, Rotate180, Rect{26, 1, 105, 160}},
		{"landscape full", Rect{0, 0, 159, 79}, Rotate90, Rect{1, 26, 160, 105}},
		{"landscape part", Rect{5, 5, 5, 5}, Rotate270, Rect{6, 31, 6, 31}},
	}
	for _, test := range tests {
		t.Run(test.name, func(it *testing.T) {
			if v := Physical(test.rect, offset, test.rotation); v != test.want {
				it.Errorf("expected %s, got %s", test.want, v)
			}
		})
	}
}

func TestPlan(t *testing.T) {
	// 80 pixels of 2 bytes, four rows per burst
	const (
		bpp    = 2
		budget = 80 * bpp * 4
		lines  = 4
	)
	tests := []struct {
		name      string
		rect      Rect
		full      int
		remainder int
		rows      []int
	}{
		{"80x12", Rect{0, 0, 79, 11}, 3, 0, []int{4, 4, 4}},
		{"80x10", Rect{0, 0, 79, 9}, 2, 80 * 2 * bpp, []int{4, 4, 2}},
		{"80x4", Rect{0, 0, 79, 3}, 1, 0, []int{4}},
		{"80x1", Rect{0, 20, 79, 20}, 0, 80 * bpp, []int{1}},
		{"80x160", Rect{0, 0, 79, 159}, 40, 0, nil},
	}
	for _, test := range tests {
		t.Run(test.name, func(it *testing.T) {
			p := NewPlan(test.rect, bpp, lines)
			if p.Full != test.full {
				it.Errorf("expected %d full chunks, got %d", test.full, p.Full)
			}
			if p.RemainderBytes != test.remainder {
				it.Errorf("expected %d remainder bytes, got %d", test.remainder, p.RemainderBytes)
			}
			if v := p.Total / budget; v != p.Full {
				it.Errorf("expected %d full chunks from the byte count, got %d", v, p.Full)
			}
			if test.rows == nil {
				return
			}
			var rows []int
			for c := range p.Chunks() {
				rows = append(rows, c.EndRow-c.StartRow+1)
			}
			if len(rows) != len(test.rows) {
				it.Fatalf("expected chunks of %v rows, got %v", test.rows, rows)
			}
			for i := range rows {
				if rows[i] != test.rows[i] {
					it.Fatalf("expected chunks of %v rows, got %v", test.rows, rows)
				}
			}
		})
	}
}

func TestPlanCoverage(t *testing.T) {
	const bpp = 2
	for _, lines := range []int{1, 3, 4, 20} {
		for _, size := range []image.Point{{80, 1}, {80, 7}, {80, 160}, {13, 9}, {1, 1}, {160, 80}} {
			window := Rect{X1: 26, Y1: 1, X2: 26 + size.X - 1, Y2: 1 + size.Y - 1}
			p := NewPlan(window, bpp, lines)
			budget := lines * size.X * bpp

			var (
				next   = window.Y1
				offset int
				count  int
			)
			for c := range p.Chunks() {
				if c.Index != count {
					t.Fatalf("%d lines %s: expected chunk index %d, got %d", lines, size, count, c.Index)
				}
				if c.StartRow != next {
					t.Fatalf("%d lines %s: chunk %d starts at row %d, expected %d", lines, size, c.Index, c.StartRow, next)
				}
				if c.Offset != offset {
					t.Fatalf("%d lines %s: chunk %d at offset %d, expected %d", lines, size, c.Index, c.Offset, offset)
				}
				if c.Len <= 0 || c.Len > budget || c.Len%p.RowBytes != 0 {
					t.Fatalf("%d lines %s: chunk %d has invalid size %d", lines, size, c.Index, c.Len)
				}
				if rows := c.EndRow - c.StartRow + 1; rows*p.RowBytes != c.Len {
					t.Fatalf("%d lines %s: chunk %d covers %d rows for %d bytes", lines, size, c.Index, rows, c.Len)
				}
				if c.Remainder != (c.Len < budget) {
					t.Fatalf("%d lines %s: chunk %d remainder flag is %t for %d bytes", lines, size, c.Index, c.Remainder, c.Len)
				}
				next = c.EndRow + 1
				offset += c.Len
				count++
			}
			if next != window.Y2+1 {
				t.Errorf("%d lines %s: chunks end at row %d, expected %d", lines, size, next-1, window.Y2)
			}
			if offset != p.Total {
				t.Errorf("%d lines %s: chunks cover %d bytes, expected %d", lines, size, offset, p.Total)
			}
			if count != p.Len() {
				t.Errorf("%d lines %s: got %d chunks, Len is %d", lines, size, count, p.Len())
			}
		}
	}
}

func TestPlanChunksStop(t *testing.T) {
	p := NewPlan(Rect{0, 0, 79, 159}, 2, 4)
	var n int
	for range p.Chunks() {
		if n++; n == 3 {
			break
		}
	}
	if n != 3 {
		t.Errorf("expected to stop after 3 chunks, got %d", n)
	}
}

func TestConfigValidate(t *testing.T) {
	valid := Config{Width: 80, Height: 160, BytesPerPixel: 2, TransferBudget: 640, Offset: Offset{26, 1}}
	tests := []struct {
		name   string
		modify func(*Config)
		ok     bool
	}{
		{"valid", func(*Config) {}, true},
		{"one row", func(c *Config) { c.TransferBudget = 160 }, true},
		{"zero width", func(c *Config) { c.Width = 0 }, false},
		{"zero height", func(c *Config) { c.Height = 0 }, false},
		{"zero bpp", func(c *Config) { c.BytesPerPixel = 0 }, false},
		{"negative offset", func(c *Config) { c.Offset.Col = -1 }, false},
		{"zero budget", func(c *Config) { c.TransferBudget = 0 }, false},
		{"partial row", func(c *Config) { c.TransferBudget = 4096 }, false},
		{"below one row", func(c *Config) { c.TransferBudget = 80 }, false},
	}
	for _, test := range tests {
		t.Run(test.name, func(it *testing.T) {
			config := valid
			test.modify(&config)
			err := config.Validate()
			if test.ok && err != nil {
				it.Fatalf("expected no error, got %v", err)
			} else if !test.ok && err == nil {
				it.Fatal("expected an error")
			}
		})
	}
}

func TestParseRotation(t *testing.T) {
	for in, want := range map[string]Rotation{
		"":    NoRotation,
		"0":   NoRotation,
		"cw":  Rotate90,
		"90":  Rotate90,
		"180": Rotate180,
		"270": Rotate270,
		"ccw": Rotate270,
	} {
		if v, err := ParseRotation(in); err != nil || v != want {
			t.Errorf("ParseRotation(%q): expected %s, got %s (%v)", in, want, v, err)
		}
	}
	if _, err := ParseRotation("45"); err == nil {
		t.Error("expected an error for 45°")
	}
	if !Rotate90.Landscape() || !Rotate270.Landscape() || NoRotation.Landscape() || Rotate180.Landscape() {
		t.Error("unexpected landscape classification")
	}
}

func TestRect(t *testing.T) {
	r := RectOf(image.Rect(10, 20, 30, 40))
	if want := (Rect{10, 20, 29, 39}); r != want {
		t.Fatalf("expected %s, got %s", want, r)
	}
	if v := r.Image(); v != image.Rect(10, 20, 30, 40) {
		t.Errorf("expected round trip, got %s", v)
	}
	if r.Dx() != 20 || r.Dy() != 20 {
		t.Errorf("expected 20x20, got %dx%d", r.Dx(), r.Dy())
	}
	if !r.In(80, 160) || r.In(20, 160) {
		t.Error("unexpected bounds check")
	}
	if !(Rect{5, 5, 4, 5}).Empty() {
		t.Error("expected inverted rect to be empty")
	}
}
