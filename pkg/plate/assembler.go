// Package plate reads imaging-plate scanner output and assembles
// multiple readouts of the same plate into a single high-dynamic-range
// image.
//
// Each exposure consists of a text sidecar (.inf) holding the readout
// settings and a raw binary data file (.img) holding the pixel counts.
// Readouts taken at increasing scanner gain overlap in their valid
// signal range; the assembler estimates the gain ratio between
// consecutive readouts from that overlap and combines all of them into
// one image whose dynamic range exceeds any single readout's.
package plate

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"ipread/internal/models"
	"ipread/pkg/metadata"
)

// ErrFormat is returned when a raw data file's size does not match the
// dimensions declared in its sidecar.
var ErrFormat = errors.New("malformed image file")

// ErrIncompatibleSettings is returned when the files slated for HDR
// assembly were scanned with differing readout settings. Combining such
// files is refused outright; their calibration curves are not
// comparable.
var ErrIncompatibleSettings = errors.New("incompatible readout settings")

// Assembler owns a resolved set of exposures of one imaging plate and
// the HDR image fused from them. All fields are computed once during
// NewAssembler and never change afterwards; re-reading requires a new
// Assembler.
type Assembler struct {
	files    []string
	settings *metadata.ReadoutSettings
	opts     Options

	// working thresholds in fusion-domain units
	ceiling float64
	floor   float64

	// exposures in fusion-domain units, index-aligned with files
	exposures []*models.Grid

	factors  []models.ScaleFactor
	hdr      *models.Grid
	warnings []string
}

// NewAssembler resolves the given path patterns, verifies all exposures
// share identical readout settings, decodes them and fuses them into an
// HDR image. Construction fails outright on unreadable or malformed
// files, on a pattern matching nothing, and on mismatched settings;
// there is no partially usable assembler.
func NewAssembler(patterns []string, opts Options) (*Assembler, error) {
	files, err := ResolveFiles(patterns)
	if err != nil {
		return nil, err
	}

	settings, err := metadata.Read(files[0] + ".inf")
	if err != nil {
		return nil, err
	}
	for _, f := range files[1:] {
		other, err := metadata.Read(f + ".inf")
		if err != nil {
			return nil, err
		}
		if !settings.Equal(other) {
			return nil, fmt.Errorf("%w: %q was scanned with %v, %q with %v; refusing HDR assembly",
				ErrIncompatibleSettings, files[0], settings, f, other)
		}
	}

	a := &Assembler{
		files:    files,
		settings: settings,
		opts:     opts,
	}
	a.warnings = append(a.warnings, settings.Warnings...)
	a.ceiling, a.floor = a.resolveThresholds()

	for _, f := range files {
		img, err := ReadImage(f, settings.Rows, settings.Columns)
		if err != nil {
			return nil, err
		}
		if opts.Domain == DomainPSL {
			img = settings.ToPSLGrid(img)
		}
		a.exposures = append(a.exposures, img)
	}

	a.estimateScaleFactors()
	a.checkOrdering()
	a.fuse()
	return a, nil
}

// resolveThresholds translates the configured thresholds into the units
// of the fusion domain, filling in defaults for zero values.
func (a *Assembler) resolveThresholds() (ceiling, floor float64) {
	ceiling = a.opts.OverexposedCeiling
	floor = a.opts.UnderexposedFloor

	switch a.opts.Domain {
	case DomainPSL:
		if ceiling == 0 {
			ceiling = a.settings.ToPSL(DefaultOverexposedCeiling)
		}
		if floor == 0 {
			floor = ceiling / 4
		}
	default:
		if ceiling == 0 {
			ceiling = DefaultOverexposedCeiling
		}
		if floor == 0 {
			floor = DefaultUnderexposedFloor
		}
	}
	return ceiling, floor
}

// MaskedExposure returns a copy of exposure n with every over- or
// underexposed pixel replaced by NaN. The decoded exposure itself is
// never modified.
func (a *Assembler) MaskedExposure(n int) *models.Grid {
	m := a.exposures[n].Clone()
	for i, v := range m.Data {
		if v > a.ceiling || v < a.floor {
			m.Data[i] = math.NaN()
		}
	}
	return m
}

// Quotient returns the elementwise ratio of exposure n over exposure
// n+1, masked to the pixels valid in both. The median of its finite
// entries is the raw gain ratio between the two readouts.
func (a *Assembler) Quotient(n int) *models.Grid {
	num := a.MaskedExposure(n)
	den := a.MaskedExposure(n + 1)
	floats.Div(num.Data, den.Data)
	return num
}

// estimateScaleFactors walks the exposure pairs in order and chains the
// pairwise gain ratios into absolute scale factors relative to the
// first readout. The median over the valid overlap is used rather than
// the mean for robustness against residual outliers in the mask, and
// the uncertainty of each ratio is carried forward with first-order
// error propagation for a product of independent quantities.
func (a *Assembler) estimateScaleFactors() {
	a.factors = []models.ScaleFactor{{Mean: 1, Variance: 0}}

	for n := 1; n < len(a.exposures); n++ {
		q := a.Quotient(n - 1)
		valid := finiteValues(q.Data)

		ratio := math.NaN()
		ratioVar := math.NaN()
		if len(valid) > 0 {
			ratio = median(valid)
			ratioVar = stat.PopVariance(valid, nil)
		}

		prev := a.factors[n-1]
		a.factors = append(a.factors, models.ScaleFactor{
			Mean: prev.Mean * ratio,
			Variance: prev.Mean*prev.Mean*ratioVar +
				prev.Variance*ratio*ratio +
				ratioVar*prev.Variance,
		})
	}
}

// checkOrdering emits the post-hoc consistency warnings. Both checks are
// diagnostic only: the factors are reported as estimated, never
// corrected, since forcing monotonicity would mask a caller-side file
// ordering mistake instead of surfacing it.
func (a *Assembler) checkOrdering() {
	for n := 1; n < len(a.factors); n++ {
		if a.factors[n].Mean < a.factors[n-1].Mean {
			a.warn("input files are not in ascending readout order; " +
				"this dramatically reduces the quality of the assembled image " +
				"or makes assembly impossible")
			break
		}
	}
	for _, f := range a.factors {
		if f.Mean < 1 {
			a.warn("output scale has shifted: the first file is forced to " +
				"scale factor 1 but is not the first readout of the plate " +
				"(at least one scale factor is below 1)")
			break
		}
	}
}

// fuse assembles the HDR image as a per-pixel weighted average of the
// scaled exposures. Saturated pixels are zeroed in a copy so they add
// nothing, and a contribution counter tracks how many exposures supplied
// signal at each pixel. Pixels no exposure contributed to stay 0.
func (a *Assembler) fuse() {
	a.hdr = models.NewGrid(a.settings.Rows, a.settings.Columns)
	count := make([]float64, a.hdr.Len())

	for n, img := range a.exposures {
		sf := a.factors[n].Mean
		if math.IsNaN(sf) {
			continue
		}
		masked := img.Clone()
		for i, v := range masked.Data {
			if v > a.ceiling {
				masked.Data[i] = 0
			}
		}
		floats.AddScaled(a.hdr.Data, sf, masked.Data)
		for i, v := range masked.Data {
			if v > 0 {
				count[i]++
			}
		}
	}

	for i := range count {
		if count[i] == 0 {
			count[i] = 1 // prevents dividing by zero
		}
	}
	floats.Div(a.hdr.Data, count)
}

func (a *Assembler) warn(msg string) {
	a.warnings = append(a.warnings, msg)
}

// Files returns the resolved exposure base names in lexical order.
func (a *Assembler) Files() []string {
	return a.files
}

// Settings returns the readout settings shared by all exposures.
func (a *Assembler) Settings() *metadata.ReadoutSettings {
	return a.settings
}

// ScaleFactors returns the estimated scale factor of every exposure,
// index-aligned with Files. The first entry is always {1, 0}.
func (a *Assembler) ScaleFactors() []models.ScaleFactor {
	return a.factors
}

// Warnings returns the non-fatal anomalies found during assembly.
func (a *Assembler) Warnings() []string {
	return a.warnings
}

// HDR returns the fused image in the units of the fusion domain: raw
// counts for DomainRaw, PSL for DomainPSL. Callers must treat the grid
// as read-only.
func (a *Assembler) HDR() *models.Grid {
	return a.hdr
}

// PSL returns the fused image in calibrated PSL units regardless of the
// fusion domain.
func (a *Assembler) PSL() *models.Grid {
	if a.opts.Domain == DomainPSL {
		return a.hdr
	}
	return a.settings.ToPSLGrid(a.hdr)
}

// String returns a human-readable summary of the assembly: the resolved
// files, the shared readout settings and the scale factors with their
// standard deviations.
func (a *Assembler) String() string {
	means := make([]float64, len(a.factors))
	stds := make([]float64, len(a.factors))
	for i, f := range a.factors {
		means[i] = f.Mean
		stds[i] = f.Std()
	}
	return fmt.Sprintf("<%q R:%d cols:%d rows:%d S:%g L:%g\nScalefactors:    %v\nScalefactorsstd: %v>",
		strings.Join(a.files, " "), a.settings.ResolutionX, a.settings.Columns,
		a.settings.Rows, a.settings.Sensitivity, a.settings.Latitude, means, stds)
}

// finiteValues collects the finite entries of a masked array, dropping
// the NaNs introduced by masking and any infinities from degenerate
// quotients.
func finiteValues(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

// median calculates the median value of a slice of float64 values
func median(values []float64) float64 {
	valuesCopy := make([]float64, len(values))
	copy(valuesCopy, values)

	sort.Float64s(valuesCopy)

	n := len(valuesCopy)
	if n == 0 {
		return math.NaN()
	}
	if n%2 == 0 {
		return (valuesCopy[n/2-1] + valuesCopy[n/2]) / 2
	}
	return valuesCopy[n/2]
}
