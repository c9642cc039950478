package plate

import (
	"encoding/binary"
	"fmt"
	"os"

	"ipread/internal/models"
)

// ReadImage decodes the raw data file base+".img" into a rows x cols
// grid. The scanner stores the image as a flat sequence of unsigned
// 16-bit big-endian integers with no header; values are upcast to
// float64 for downstream arithmetic.
//
// It fails with ErrFormat if the element count does not match the
// declared dimensions, and with a wrapped I/O error if the file cannot
// be read.
func ReadImage(base string, rows, cols int) (*models.Grid, error) {
	path := base + ".img"
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image file: %w", err)
	}

	if len(data) != rows*cols*2 {
		return nil, fmt.Errorf("%w: %s holds %d bytes, expected %d for %dx%d pixels",
			ErrFormat, path, len(data), rows*cols*2, rows, cols)
	}

	g := models.NewGrid(rows, cols)
	for i := range g.Data {
		g.Data[i] = float64(binary.BigEndian.Uint16(data[2*i:]))
	}
	return g, nil
}
