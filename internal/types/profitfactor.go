package types

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Sentinel strings used at the serialization boundary. Strict JSON has no
// representation for IEEE infinities, so an infinite profit factor is
// written as a literal string and parsed back into the same tagged value.
const (
	infinitySentinel         = "Infinity"
	negativeInfinitySentinel = "-Infinity"
)

// ProfitFactor is the ratio of gross winning return to gross losing return
// magnitude. It is a tagged value: a run with at least one winning trade and
// zero losing trades has an infinite profit factor. Core arithmetic never
// touches IEEE infinity; the tag is resolved only when serializing.
type ProfitFactor struct {
	value    float64
	infinite bool
	negative bool
}

// FiniteProfitFactor creates a finite profit factor value
func FiniteProfitFactor(value float64) ProfitFactor {
	return ProfitFactor{value: value}
}

// InfiniteProfitFactor creates the positive-infinity sentinel value
func InfiniteProfitFactor() ProfitFactor {
	return ProfitFactor{infinite: true}
}

// NegativeInfiniteProfitFactor creates the negative-infinity sentinel value
func NegativeInfiniteProfitFactor() ProfitFactor {
	return ProfitFactor{infinite: true, negative: true}
}

// IsInfinite returns true when the value carries an infinity tag
func (p ProfitFactor) IsInfinite() bool {
	return p.infinite
}

// Value returns the finite value; zero when the value is infinite
func (p ProfitFactor) Value() float64 {
	if p.infinite {
		return 0
	}
	return p.value
}

// String formats the value for logs and reports
func (p ProfitFactor) String() string {
	if p.infinite {
		if p.negative {
			return negativeInfinitySentinel
		}
		return infinitySentinel
	}
	return strconv.FormatFloat(p.value, 'f', -1, 64)
}

// MarshalJSON writes a plain number for finite values and the
// "Infinity"/"-Infinity" string sentinel otherwise
func (p ProfitFactor) MarshalJSON() ([]byte, error) {
	if p.infinite {
		if p.negative {
			return json.Marshal(negativeInfinitySentinel)
		}
		return json.Marshal(infinitySentinel)
	}
	return json.Marshal(p.value)
}

// UnmarshalJSON parses either a number or a sentinel string back into the
// tagged value
func (p *ProfitFactor) UnmarshalJSON(data []byte) error {
	var value float64
	if err := json.Unmarshal(data, &value); err == nil {
		*p = ProfitFactor{value: value}
		return nil
	}

	var sentinel string
	if err := json.Unmarshal(data, &sentinel); err != nil {
		return fmt.Errorf("profit factor must be a number or infinity sentinel: %s", string(data))
	}

	switch sentinel {
	case infinitySentinel:
		*p = ProfitFactor{infinite: true}
	case negativeInfinitySentinel:
		*p = ProfitFactor{infinite: true, negative: true}
	default:
		return fmt.Errorf("unknown profit factor sentinel: %q", sentinel)
	}
	return nil
}
