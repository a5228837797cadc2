package output

import (
	"strings"

	"github.com/crimson-sun/cardio/internal/model"
)

// Detail controls how much of a prediction an audit record carries.
type Detail int

const (
	// Minimal keeps id, timestamp and label.
	Minimal Detail = iota
	// Standard adds the activated dummy columns.
	Standard
	// Full adds the raw input record.
	Full
)

// ParseDetail maps "minimal", "standard" or "full" to a Detail. Unknown
// strings default to Standard.
func ParseDetail(s string) Detail {
	switch strings.ToLower(s) {
	case "minimal":
		return Minimal
	case "full":
		return Full
	default:
		return Standard
	}
}

func (d Detail) String() string {
	switch d {
	case Minimal:
		return "minimal"
	case Full:
		return "full"
	default:
		return "standard"
	}
}

// FormatPrediction returns a copy of p with fields stripped according to
// detail. Stripped fields are omitted from JSON via omitempty.
func FormatPrediction(p model.Prediction, detail Detail) model.Prediction {
	if detail < Full {
		p.Record = nil
	}
	if detail < Standard {
		p.Active = nil
	}
	return p
}
