package geokey

import (
	"github.com/sells-group/suburb-insights/internal/model"
)

// Resolver maps raw keys of any dimension onto SA2 allocations. It holds only
// read-only lookup tables and is safe to share between runs.
type Resolver struct {
	corr  *Correspondence
	names *NameIndex
}

// NewResolver creates a Resolver. Either table may be nil; keys that need a
// missing table are reported as unjoinable.
func NewResolver(corr *Correspondence, names *NameIndex) *Resolver {
	return &Resolver{corr: corr, names: names}
}

// Resolve returns the SA2 allocations for raw. SA2 keys resolve to themselves
// with weight 1. Failures are returned as *UnjoinableKeyError.
func (r *Resolver) Resolve(source, raw string, dim model.Dimension) ([]Allocation, error) {
	if dim == model.DimensionAuto || dim == "" {
		dim = Detect(raw)
	}

	fail := func(reason string, err error) *UnjoinableKeyError {
		return &UnjoinableKeyError{Source: source, RawKey: raw, Dimension: dim, Reason: reason, Err: err}
	}

	switch dim {
	case model.DimensionSA2:
		code, err := NormalizeSA2(raw)
		if err != nil {
			return nil, fail(ReasonInvalidKey, err)
		}
		return []Allocation{{SA2: code, Weight: 1}}, nil

	case model.DimensionPostcode:
		pc, err := NormalizePostcode(raw)
		if err != nil {
			return nil, fail(ReasonInvalidKey, err)
		}
		if r.corr == nil {
			return nil, fail(ReasonNoTable, nil)
		}
		allocs := r.corr.Allocations(pc)
		if len(allocs) == 0 {
			return nil, fail(ReasonNoCorrespondence, nil)
		}
		return allocs, nil

	default:
		if NormalizeName(raw) == "" {
			return nil, fail(ReasonInvalidKey, nil)
		}
		code, reason := r.names.Lookup(raw)
		if reason != "" {
			return nil, fail(reason, nil)
		}
		return []Allocation{{SA2: code, Weight: 1}}, nil
	}
}
