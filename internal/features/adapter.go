package features

import (
	"context"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/apptype"
)

// adaptingSupplier wraps a Supplier and coerces its vectors to a target
// dimensionality so descriptors from different extractors stay comparable.
type adaptingSupplier struct {
	base       Supplier
	targetDims int
	mode       string // "strict" (default), "truncate", "pad", "pad_or_truncate"
}

// WrapToDims returns a Supplier that adapts output vectors to targetDims.
// In strict mode a vector of the wrong length is reported as unavailable.
// A non-positive targetDims returns base unchanged.
func WrapToDims(base Supplier, targetDims int, mode string) Supplier {
	if base == nil || targetDims <= 0 {
		return base
	}
	m := strings.ToLower(strings.TrimSpace(mode))
	if m == "" {
		m = "strict"
	}
	return &adaptingSupplier{base: base, targetDims: targetDims, mode: m}
}

func (a *adaptingSupplier) Kind() Kind { return a.base.Kind() }

func (a *adaptingSupplier) Vector(ctx context.Context, id int64) (apptype.FeatureVector, error) {
	v, err := a.base.Vector(ctx, id)
	if err != nil {
		return nil, err
	}
	out, ok := Adapt(v, a.targetDims, a.mode)
	if !ok {
		return nil, fmt.Errorf("%s for profile %d has %d dims, want %d: %w", a.Kind(), id, len(v), a.targetDims, ErrUnavailable)
	}
	return out, nil
}

// Adapt coerces v to target dimensions under mode. ok is false when mode
// does not allow the change. Empty vectors and a non-positive target pass
// through untouched.
func Adapt(v apptype.FeatureVector, target int, mode string) (apptype.FeatureVector, bool) {
	n := len(v)
	if n == 0 || target <= 0 || n == target {
		return v, true
	}
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "truncate":
		if n < target {
			return nil, false
		}
		return v[:target], true
	case "pad":
		if n > target {
			return nil, false
		}
		out := make(apptype.FeatureVector, target)
		copy(out, v)
		return out, true
	case "pad_or_truncate":
		if n > target {
			return v[:target], true
		}
		out := make(apptype.FeatureVector, target)
		copy(out, v)
		return out, true
	default:
		return nil, false
	}
}
