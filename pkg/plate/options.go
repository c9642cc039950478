package plate

import "fmt"

// Domain selects the scale the exposures are masked and fused in. The
// scale-factor estimate and the final weighted average are the same
// algorithm either way; only the point at which the PSL calibration is
// applied differs.
type Domain int

const (
	// DomainRaw masks and fuses raw scanner counts; the PSL conversion
	// is applied to the fused result on demand.
	DomainRaw Domain = iota

	// DomainPSL converts every exposure to PSL units first and masks
	// and fuses the calibrated values.
	DomainPSL
)

// String returns the flag-style name of the domain.
func (d Domain) String() string {
	switch d {
	case DomainPSL:
		return "psl"
	default:
		return "raw"
	}
}

// ParseDomain converts a flag or config string into a Domain.
func ParseDomain(s string) (Domain, error) {
	switch s {
	case "raw":
		return DomainRaw, nil
	case "psl":
		return DomainPSL, nil
	default:
		return DomainRaw, fmt.Errorf("unknown fusion domain %q (want raw or psl)", s)
	}
}

// Default exposure thresholds in raw scanner counts. The ceiling sits
// just below the largest representable 16-bit count; pixels above it are
// treated as saturated. Pixels below the floor are too close to the
// noise floor to contribute to scale-factor estimation.
const (
	DefaultOverexposedCeiling = 65525.0
	DefaultUnderexposedFloor  = 42000.0
)

// Options configures an Assembler. The zero value selects raw-domain
// fusion with the default thresholds.
type Options struct {
	// OverexposedCeiling is the saturation threshold, expressed in the
	// units of the chosen fusion domain. Zero selects the default:
	// DefaultOverexposedCeiling counts in the raw domain, or its PSL
	// equivalent in the PSL domain.
	OverexposedCeiling float64

	// UnderexposedFloor is the noise-floor threshold in the units of the
	// fusion domain. Zero selects the default: DefaultUnderexposedFloor
	// counts in the raw domain, or a quarter of the saturation value in
	// the PSL domain.
	UnderexposedFloor float64

	// Domain is the scale exposures are masked and fused in
	Domain Domain
}
