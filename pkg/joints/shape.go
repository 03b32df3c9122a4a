package joints

// Limits is the immutable safety configuration applied to outgoing
// targets. MaxRelative bounds the per-command step of a joint; Min and
// Max bound its absolute position. A joint absent from a map has no
// limit of that kind.
type Limits struct {
	MaxRelative map[string]float64
	Min         map[string]float64
	Max         map[string]float64
}

// clamp restricts v to the range [min, max].
func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Shape turns a (possibly partial) logical target into a safety-bounded
// command vector. For every schema joint:
//
//  1. take the target value if present, else hold the previous position
//  2. clamp the step so |candidate - previous| <= MaxRelative
//  3. clamp the result into [Min, Max]
//
// The returned vector always has one entry per schema joint. The held
// flag is true when target was empty: the result then equals previous
// exactly, and the caller should surface a warning — an all-empty
// target usually means a key-naming mismatch upstream, and silently
// holding position forever would mask it.
func Shape(target map[string]float64, prev Snapshot, limits Limits) (Vector, bool) {
	out := make(Vector, len(prev.Schema))

	for i, name := range prev.Schema {
		v, ok := target[name]
		if !ok {
			v = prev.Pos[i]
		}

		if r, ok := limits.MaxRelative[name]; ok {
			v = clamp(v, prev.Pos[i]-r, prev.Pos[i]+r)
		}

		lo, hasLo := limits.Min[name]
		hi, hasHi := limits.Max[name]
		if hasLo && hasHi {
			v = clamp(v, lo, hi)
		} else if hasLo && v < lo {
			v = lo
		} else if hasHi && v > hi {
			v = hi
		}

		out[i] = v
	}

	return out, len(target) == 0
}
