package jobs

// Transformer turns upstream payloads of type P into view models of type V.
//
// BuildOne never fails. BuildMany applies BuildOne to every element and
// drops nil payloads and nil results.
type Transformer[P, V any] interface {
	BuildOne(p *P) *V
	BuildMany(ps []*P) []*V
}

func buildMany[P, V any](ps []*P, one func(*P) *V) []*V {
	out := make([]*V, 0, len(ps))
	for _, p := range ps {
		if p == nil {
			continue
		}
		if v := one(p); v != nil {
			out = append(out, v)
		}
	}
	return out
}

func values[V any](ptrs []*V) []V {
	if ptrs == nil {
		return nil
	}
	out := make([]V, len(ptrs))
	for i, v := range ptrs {
		out[i] = *v
	}
	return out
}
