// Package visualization renders calibrated plate images for display and
// export. It is a thin collaborator of pkg/plate: everything here
// consumes the assembler's grids read-only.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/nfnt/resize"

	"ipread/internal/models"
)

// Viewer renders a 2-D grid as a 16-bit grayscale image, normalizing
// the finite value range to the full display range.
type Viewer struct {
	// grid holds the image data to render
	grid *models.Grid

	// logScale selects log10 display scaling. PSL values span several
	// decades, so a linear render often shows nothing but the hottest
	// pixels.
	logScale bool
}

// NewViewer creates a viewer for the given grid.
func NewViewer(grid *models.Grid, logScale bool) *Viewer {
	return &Viewer{
		grid:     grid,
		logScale: logScale,
	}
}

// displayValue maps a pixel value onto the display scale. The second
// return value is false for pixels that cannot be shown (NaN, or
// non-positive values in log mode); those render black.
func (v *Viewer) displayValue(val float64) (float64, bool) {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return 0, false
	}
	if v.logScale {
		if val <= 0 {
			return 0, false
		}
		return math.Log10(val), true
	}
	return val, true
}

// Render converts the grid into a Gray16 image. The finite value range
// is mapped linearly onto [0, 65535]; undisplayable pixels are black.
func (v *Viewer) Render() *image.Gray16 {
	g := v.grid
	img := image.NewGray16(image.Rect(0, 0, g.Cols, g.Rows))

	lo := math.Inf(1)
	hi := math.Inf(-1)
	for _, val := range g.Data {
		d, ok := v.displayValue(val)
		if !ok {
			continue
		}
		lo = math.Min(lo, d)
		hi = math.Max(hi, d)
	}
	span := hi - lo
	if span <= 0 || math.IsInf(span, 0) || math.IsNaN(span) {
		span = 1
	}
	if math.IsInf(lo, 0) {
		lo = 0
	}

	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			d, ok := v.displayValue(g.At(r, c))
			if !ok {
				img.SetGray16(c, r, color.Gray16{Y: 0})
				continue
			}
			value := uint16(math.Max(0, math.Min(65535, (d-lo)/span*65535)))
			img.SetGray16(c, r, color.Gray16{Y: value})
		}
	}
	return img
}

// Preview renders the grid and downscales it to fit within maxDim
// pixels on its longer side, preserving aspect ratio.
func (v *Viewer) Preview(maxDim uint) image.Image {
	return resize.Thumbnail(maxDim, maxDim, v.Render(), resize.Lanczos3)
}

// Save renders the grid and writes it to filename. The format follows
// the file extension.
func (v *Viewer) Save(filename string) error {
	return SaveImage(v.Render(), filename)
}

// SaveImage writes an image as PNG or JPEG depending on the filename
// extension.
func SaveImage(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return png.Encode(file, img)
	case ".jpg", ".jpeg":
		return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
	default:
		return fmt.Errorf("unsupported image format: %s", filepath.Ext(filename))
	}
}
