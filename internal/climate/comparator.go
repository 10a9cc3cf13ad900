package climate

import (
	"fmt"
	"math"
)

// Comparator is the closed set of threshold comparison operators used by
// exceedance and spell computations.
type Comparator int

const (
	// CmpGT is strictly greater than
	CmpGT Comparator = iota
	// CmpGE is greater than or equal
	CmpGE
	// CmpLT is strictly less than
	CmpLT
	// CmpLE is less than or equal
	CmpLE
	// CmpEQ is equal
	CmpEQ
	// CmpNE is not equal
	CmpNE
)

// ParseComparator maps an operator symbol onto its Comparator value.
func ParseComparator(s string) (Comparator, error) {
	switch s {
	case ">":
		return CmpGT, nil
	case ">=":
		return CmpGE, nil
	case "<":
		return CmpLT, nil
	case "<=":
		return CmpLE, nil
	case "==":
		return CmpEQ, nil
	case "!=":
		return CmpNE, nil
	default:
		return 0, ValidationError{Field: "comparator", Message: fmt.Sprintf("unknown comparator %q", s), Value: s}
	}
}

// String returns the operator symbol
func (c Comparator) String() string {
	switch c {
	case CmpGT:
		return ">"
	case CmpGE:
		return ">="
	case CmpLT:
		return "<"
	case CmpLE:
		return "<="
	case CmpEQ:
		return "=="
	case CmpNE:
		return "!="
	default:
		return "unknown"
	}
}

// IsValid checks the comparator is one of the supported operators
func (c Comparator) IsValid() bool {
	return c >= CmpGT && c <= CmpNE
}

// Apply reports whether "value c threshold" holds. A NaN on either side is
// never a match, including for CmpNE.
func (c Comparator) Apply(value, threshold float64) bool {
	if math.IsNaN(value) || math.IsNaN(threshold) {
		return false
	}
	switch c {
	case CmpGT:
		return value > threshold
	case CmpGE:
		return value >= threshold
	case CmpLT:
		return value < threshold
	case CmpLE:
		return value <= threshold
	case CmpEQ:
		return value == threshold
	case CmpNE:
		return value != threshold
	default:
		return false
	}
}
