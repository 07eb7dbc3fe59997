package display

import "iter"

// Plan describes how a region is split into bursts.
type Plan struct {
	// Window is the region in controller coordinates.
	Window Rect

	// RowBytes is the size of one row of the region.
	RowBytes int

	// LinesPerChunk is the number of rows per full chunk.
	LinesPerChunk int

	// ChunkBytes is the size of a full chunk.
	ChunkBytes int

	// Full is the number of full chunks.
	Full int

	// RemainderBytes is the size of the trailing partial chunk, zero when
	// the region divides evenly.
	RemainderBytes int

	// Total is the size of the region.
	Total int
}

// Chunk is one burst of a Plan.
type Chunk struct {
	Index     int
	StartRow  int // first controller row
	EndRow    int // last controller row, inclusive
	Offset    int // byte offset into the region pixels
	Len       int
	Remainder bool
}

// NewPlan splits window, bytesPerPixel wide, into chunks of linesPerChunk
// whole rows.
func NewPlan(window Rect, bytesPerPixel, linesPerChunk int) Plan {
	p := Plan{
		Window:        window,
		RowBytes:      window.Dx() * bytesPerPixel,
		LinesPerChunk: max(linesPerChunk, 1),
	}
	p.Total = p.RowBytes * window.Dy()
	p.ChunkBytes = p.LinesPerChunk * p.RowBytes
	p.Full = p.Total / p.ChunkBytes
	p.RemainderBytes = p.Total % p.ChunkBytes
	return p
}

// Len is the number of chunks, including the remainder.
func (p Plan) Len() int {
	if p.RemainderBytes > 0 {
		return p.Full + 1
	}
	return p.Full
}

// Chunks yields the chunks top to bottom.
func (p Plan) Chunks() iter.Seq[Chunk] {
	return func(yield func(Chunk) bool) {
		row := p.Window.Y1
		for i := 0; i < p.Full; i++ {
			c := Chunk{
				Index:    i,
				StartRow: row,
				EndRow:   row + p.LinesPerChunk - 1,
				Offset:   i * p.ChunkBytes,
				Len:      p.ChunkBytes,
			}
			if !yield(c) {
				return
			}
			row += p.LinesPerChunk
		}
		if p.RemainderBytes == 0 {
			return
		}
		yield(Chunk{
			Index:     p.Full,
			StartRow:  row,
			EndRow:    row + p.RemainderBytes/p.RowBytes - 1,
			Offset:    p.Full * p.ChunkBytes,
			Len:       p.RemainderBytes,
			Remainder: true,
		})
	}
}
