package metadata

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ipread/internal/models"
)

// newTestGrid builds a grid from literal pixel values.
func newTestGrid(rows, cols int, data []float64) *models.Grid {
	g := models.NewGrid(rows, cols)
	copy(g.Data, data)
	return g
}

// writeInf writes a synthetic sidecar file with the given field values at
// the scanner's fixed line positions and free-form text everywhere else.
func writeInf(t *testing.T, dir, name string, resX, resY, cols, rows, s, l string) string {
	t.Helper()

	lines := []string{
		"BAS_IMAGE_FILE", // free-form header lines
		name,
		"UNKNOWN",
		resX,
		resY,
		"512",
		cols,
		rows,
		s,
		l,
		"", // trailing free-form line
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0644); err != nil {
		t.Fatalf("Failed to write inf file: %v", err)
	}
	return path
}

func TestReadSettings(t *testing.T) {
	dir := t.TempDir()
	path := writeInf(t, dir, "scan1.inf", "50", "50", "100", "200", "4000.0", "5.0")

	s, err := Read(path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if s.ResolutionX != 50 || s.ResolutionY != 50 {
		t.Errorf("Expected resolution 50x50, got %dx%d", s.ResolutionX, s.ResolutionY)
	}
	if s.Columns != 100 {
		t.Errorf("Expected 100 columns, got %d", s.Columns)
	}
	if s.Rows != 200 {
		t.Errorf("Expected 200 rows, got %d", s.Rows)
	}
	if s.Sensitivity != 4000.0 {
		t.Errorf("Expected sensitivity 4000, got %f", s.Sensitivity)
	}
	if s.Latitude != 5.0 {
		t.Errorf("Expected latitude 5, got %f", s.Latitude)
	}
	if s.Name != "scan1.inf" {
		t.Errorf("Expected name scan1.inf, got %s", s.Name)
	}
	if len(s.Warnings) != 0 {
		t.Errorf("Expected no warnings, got %v", s.Warnings)
	}
}

func TestReadTooFewLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "short.inf")
	if err := os.WriteFile(path, []byte("a\nb\nc\n"), 0644); err != nil {
		t.Fatalf("Failed to write inf file: %v", err)
	}

	_, err := Read(path)
	if !errors.Is(err, ErrFormat) {
		t.Errorf("Expected ErrFormat for short file, got %v", err)
	}
}

func TestReadNonNumericField(t *testing.T) {
	dir := t.TempDir()
	path := writeInf(t, dir, "bad.inf", "50", "50", "abc", "200", "4000.0", "5.0")

	_, err := Read(path)
	if !errors.Is(err, ErrFormat) {
		t.Errorf("Expected ErrFormat for non-numeric column count, got %v", err)
	}
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.inf"))
	if err == nil {
		t.Error("Expected an error for a missing file")
	}
	if errors.Is(err, ErrFormat) {
		t.Errorf("Expected an I/O error, not a format error, got %v", err)
	}
}

func TestNonSquarePixelWarning(t *testing.T) {
	dir := t.TempDir()
	path := writeInf(t, dir, "rect.inf", "50", "100", "100", "200", "4000.0", "5.0")

	s, err := Read(path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(s.Warnings) != 1 {
		t.Fatalf("Expected exactly one warning, got %v", s.Warnings)
	}
	if !strings.Contains(s.Warnings[0], "not square") {
		t.Errorf("Expected a non-square pixel warning, got %q", s.Warnings[0])
	}
}

func TestEqualIgnoresFreeFormLines(t *testing.T) {
	dir := t.TempDir()
	a, err := Read(writeInf(t, dir, "a.inf", "50", "50", "100", "200", "4000.0", "5.0"))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	b, err := Read(writeInf(t, dir, "b.inf", "50", "50", "100", "200", "4000.0", "5.0"))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if !a.Equal(b) {
		t.Error("Settings with identical calibration fields should compare equal")
	}

	c, err := Read(writeInf(t, dir, "c.inf", "50", "50", "100", "200", "10000.0", "5.0"))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if a.Equal(c) {
		t.Error("Settings with differing sensitivity should not compare equal")
	}
}

func TestToPSLMidpoint(t *testing.T) {
	// At the midpoint count the exponential term is exactly 1, so the
	// conversion reduces to (R/100)^2 * 4000/S for any latitude.
	cases := []struct {
		resolution int
		s, l       float64
	}{
		{50, 4000, 5},
		{100, 10000, 4},
		{25, 1000, 5.5},
	}

	for _, tc := range cases {
		settings := &ReadoutSettings{
			ResolutionX: tc.resolution,
			ResolutionY: tc.resolution,
			Sensitivity: tc.s,
			Latitude:    tc.l,
		}
		r := float64(tc.resolution) / 100.0
		want := r * r * 4000.0 / tc.s
		got := settings.ToPSL(32768)
		if math.Abs(got-want) > 1e-12*want {
			t.Errorf("ToPSL(32768) with R=%d S=%g L=%g: expected %g, got %g",
				tc.resolution, tc.s, tc.l, want, got)
		}
	}
}

func TestToPSLMonotonic(t *testing.T) {
	settings := &ReadoutSettings{
		ResolutionX: 50,
		ResolutionY: 50,
		Sensitivity: 4000,
		Latitude:    5,
	}

	prev := settings.ToPSL(0)
	for count := 1024.0; count <= 65535; count += 1024 {
		cur := settings.ToPSL(count)
		if cur <= prev {
			t.Fatalf("ToPSL not strictly increasing at count %g: %g <= %g", count, cur, prev)
		}
		prev = cur
	}
}

func TestToPSLGrid(t *testing.T) {
	settings := &ReadoutSettings{
		ResolutionX: 50,
		ResolutionY: 50,
		Sensitivity: 4000,
		Latitude:    5,
	}

	g := newTestGrid(2, 3, []float64{0, 100, 32768, 40000, 65535, 12})
	out := settings.ToPSLGrid(g)

	if out.Rows != 2 || out.Cols != 3 {
		t.Fatalf("Expected 2x3 output, got %dx%d", out.Rows, out.Cols)
	}
	for i, v := range g.Data {
		want := settings.ToPSL(v)
		if out.Data[i] != want {
			t.Errorf("Pixel %d: expected %g, got %g", i, want, out.Data[i])
		}
	}
	// source grid untouched
	if g.Data[2] != 32768 {
		t.Error("ToPSLGrid must not modify its input")
	}
}
