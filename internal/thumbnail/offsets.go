package thumbnail

import "math"

// endMargin keeps default offsets away from the final frame, which some
// containers cannot decode.
const endMargin = 0.5

// seekMargin is the largest offset allowed relative to duration.
const seekMargin = 0.1

// DefaultOffsets returns five evenly spread capture points: start, 25%, 50%,
// 75% and half a second before the end.
func DefaultOffsets(duration float64) []float64 {
	return []float64{
		0,
		duration * 0.25,
		duration * 0.5,
		duration * 0.75,
		math.Max(0, duration-endMargin),
	}
}

// ClampOffset limits t to [0, duration-0.1]. For clips shorter than 0.1s the
// result is 0.
func ClampOffset(t, duration float64) float64 {
	if math.IsNaN(t) {
		return 0
	}
	v := math.Min(math.Max(0, t), duration-seekMargin)
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}

// ResolveOffsets expands the trivial request (nil, empty or exactly [0]) to
// DefaultOffsets and clamps every offset. Sources without a duration, such as
// still images, get a single offset of 0 by default.
func ResolveOffsets(requested []float64, duration float64) []float64 {
	if isTrivial(requested) {
		if duration <= 0 {
			return []float64{0}
		}
		requested = DefaultOffsets(duration)
	}

	out := make([]float64, len(requested))
	for i, t := range requested {
		out[i] = ClampOffset(t, duration)
	}
	return out
}

func isTrivial(offsets []float64) bool {
	return len(offsets) == 0 || (len(offsets) == 1 && offsets[0] == 0)
}
