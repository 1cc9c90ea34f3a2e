package thumbnail

import "math"

// Dimensions is a pixel size.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// CalculateDimensions fits origW x origH inside maxW x maxH preserving the
// aspect ratio, then floors both sides to even numbers for codec alignment.
// A side that would floor to 0 is kept at 2 when its bound allows, so
// extreme aspect ratios still produce a drawable surface. Any non-positive
// input yields the zero Dimensions.
func CalculateDimensions(origW, origH, maxW, maxH int) Dimensions {
	if origW <= 0 || origH <= 0 || maxW <= 0 || maxH <= 0 {
		return Dimensions{}
	}

	w, h := float64(origW), float64(origH)
	mw, mh := float64(maxW), float64(maxH)

	if w > mw {
		h = math.Round(h * mw / w)
		w = mw
	}
	if h > mh {
		w = math.Round(w * mh / h)
		h = mh
	}

	return Dimensions{Width: evenSide(w, maxW), Height: evenSide(h, maxH)}
}

// evenSide floors v to an even size of at least 2, never above bound.
func evenSide(v float64, bound int) int {
	n := floorEven(v)
	if n < 2 && bound >= 2 {
		return 2
	}
	return n
}

func floorEven(v float64) int {
	n := int(v)
	return n - n%2
}
