package models

// Grid is a 2-D image stored as a flat row-major array, the same layout
// the scanner writes its pixel stream in. Pixel (r, c) lives at
// Data[r*Cols+c]. Bounds are validated at construction only.
type Grid struct {
	// Data holds the pixel values in row-major order
	Data []float64

	// Rows and Cols are the image dimensions in pixels
	Rows int
	Cols int
}

// NewGrid allocates a zero-filled grid of the given dimensions.
func NewGrid(rows, cols int) *Grid {
	return &Grid{
		Data: make([]float64, rows*cols),
		Rows: rows,
		Cols: cols,
	}
}

// At returns the pixel value at row r, column c.
func (g *Grid) At(r, c int) float64 {
	return g.Data[r*g.Cols+c]
}

// Set stores v at row r, column c.
func (g *Grid) Set(r, c int, v float64) {
	g.Data[r*g.Cols+c] = v
}

// Len returns the number of pixels in the grid.
func (g *Grid) Len() int {
	return len(g.Data)
}

// Clone returns an independent copy of the grid. Masking operations work
// on clones so the decoded originals are never mutated.
func (g *Grid) Clone() *Grid {
	out := NewGrid(g.Rows, g.Cols)
	copy(out.Data, g.Data)
	return out
}
