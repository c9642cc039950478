// Package metadata parses the text sidecar files (.inf) written by
// imaging-plate scanners. The sidecar records the readout settings used
// when the plate was digitized, and those settings define the conversion
// from raw pixel counts to PSL (photo-stimulated luminescence) units.
package metadata

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"ipread/internal/models"
)

// ErrFormat is returned when a sidecar file is too short or a required
// field cannot be parsed as a number.
var ErrFormat = errors.New("malformed inf file")

// The scanner writes the readout settings at fixed line positions
// (0-based). All other lines are free-form and kept only for display.
const (
	lineResolutionX = 3
	lineResolutionY = 4
	lineColumns     = 6
	lineRows        = 7
	lineSensitivity = 8
	lineLatitude    = 9

	minLines = 10
)

// ReadoutSettings holds the scanner parameters recorded for a single
// plate readout. Two raw images may only be combined into an HDR image
// when their settings compare Equal.
type ReadoutSettings struct {
	// Name identifies the source sidecar file, kept for diagnostics
	Name string

	// ResolutionX and ResolutionY are the pixel pitch in micrometers.
	// Downstream code assumes square pixels; a mismatch is reported as
	// a warning but does not fail the parse.
	ResolutionX int
	ResolutionY int

	// Columns and Rows are the image dimensions in pixels
	Columns int
	Rows    int

	// Sensitivity and Latitude are the scanner gain parameters that
	// define the counts-to-PSL conversion curve
	Sensitivity float64
	Latitude    float64

	// RawLines holds the sidecar content verbatim for diagnostics
	RawLines []string

	// Warnings collects non-fatal anomalies found while parsing
	Warnings []string
}

// Read parses the sidecar file at path into a ReadoutSettings value.
// It fails with ErrFormat if the file has fewer than 10 lines or a
// required field is not numeric; I/O failures are returned wrapped.
func Read(path string) (*ReadoutSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read inf file: %w", err)
	}

	lines := strings.Split(string(data), "\n")
	if len(lines) < minLines {
		return nil, fmt.Errorf("%w: %s has %d lines, expected at least %d",
			ErrFormat, path, len(lines), minLines)
	}

	s := &ReadoutSettings{
		Name:     filepath.Base(path),
		RawLines: lines,
	}

	if s.ResolutionX, err = intField(lines, lineResolutionX, "resolution x"); err != nil {
		return nil, err
	}
	if s.ResolutionY, err = intField(lines, lineResolutionY, "resolution y"); err != nil {
		return nil, err
	}
	if s.Columns, err = intField(lines, lineColumns, "columns"); err != nil {
		return nil, err
	}
	if s.Rows, err = intField(lines, lineRows, "rows"); err != nil {
		return nil, err
	}
	if s.Sensitivity, err = floatField(lines, lineSensitivity, "sensitivity"); err != nil {
		return nil, err
	}
	if s.Latitude, err = floatField(lines, lineLatitude, "latitude"); err != nil {
		return nil, err
	}

	if s.Columns <= 0 || s.Rows <= 0 {
		return nil, fmt.Errorf("%w: %s declares non-positive image dimensions %dx%d",
			ErrFormat, path, s.Columns, s.Rows)
	}

	if s.ResolutionX != s.ResolutionY {
		s.Warnings = append(s.Warnings,
			fmt.Sprintf("pixels of %s are not square (%dum x %dum)",
				s.Name, s.ResolutionX, s.ResolutionY))
	}

	return s, nil
}

// intField parses the line at index idx as an integer.
func intField(lines []string, idx int, name string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(lines[idx]))
	if err != nil {
		return 0, fmt.Errorf("%w: line %d (%s): %q is not an integer",
			ErrFormat, idx+1, name, strings.TrimSpace(lines[idx]))
	}
	return v, nil
}

// floatField parses the line at index idx as a float.
func floatField(lines []string, idx int, name string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(lines[idx]), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: line %d (%s): %q is not a number",
			ErrFormat, idx+1, name, strings.TrimSpace(lines[idx]))
	}
	return v, nil
}

// ToPSL converts a raw count number to PSL units at these readout
// settings:
//
//	psl = (R/100)^2 * (4000/S) * 10^(L * (count/65536 - 0.5))
//
// where R is the pixel pitch, S the sensitivity and L the latitude.
// The transform is strictly monotonic in the count.
func (s *ReadoutSettings) ToPSL(count float64) float64 {
	r := float64(s.ResolutionX) / 100.0
	return r * r * (4000.0 / s.Sensitivity) *
		math.Pow(10, s.Latitude*(count/65536.0-0.5))
}

// ToPSLGrid converts a whole grid of raw counts to PSL units,
// returning a new grid of the same shape.
func (s *ReadoutSettings) ToPSLGrid(g *models.Grid) *models.Grid {
	out := models.NewGrid(g.Rows, g.Cols)
	for i, v := range g.Data {
		out.Data[i] = s.ToPSL(v)
	}
	return out
}

// Equal reports whether two readouts used identical scanner settings.
// Only the six calibration-relevant fields take part; file names and
// free-form sidecar lines are ignored.
func (s *ReadoutSettings) Equal(other *ReadoutSettings) bool {
	return s.ResolutionX == other.ResolutionX &&
		s.ResolutionY == other.ResolutionY &&
		s.Columns == other.Columns &&
		s.Rows == other.Rows &&
		s.Sensitivity == other.Sensitivity &&
		s.Latitude == other.Latitude
}

// String returns a one-line summary of the readout settings.
func (s *ReadoutSettings) String() string {
	return fmt.Sprintf("<%q R:%d cols:%d rows:%d S:%g L:%g>",
		s.Name, s.ResolutionX, s.Columns, s.Rows, s.Sensitivity, s.Latitude)
}
