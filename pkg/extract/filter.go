package extract

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"ims2tif/internal/models"
)

// DefaultThreshold is the pixel-value noise floor used to classify a Z-plane
// as empty. It matches the background level typical of 8-bit and 16-bit
// acquisitions.
const DefaultThreshold = 10.0

// FilterResult is the outcome of classifying the planes of a stack.
type FilterResult struct {
	// Retained holds the indices of non-empty planes in ascending order.
	Retained []int

	// EmptyCount is the number of planes classified as empty.
	EmptyCount int
}

// Filter classifies each plane along the leading axis of a 3D stack as
// empty or non-empty. A plane is non-empty iff its maximum sample value is
// strictly greater than threshold; a plane whose maximum equals the
// threshold exactly is empty.
//
// When every plane is empty the caller must keep the unfiltered stack: the
// empty result is a signal, not an error.
func Filter(img *models.Image, threshold float64) (*FilterResult, error) {
	if img.Rank() < 3 {
		return nil, fmt.Errorf("empty-plane filter requires a 3D stack, got rank %d", img.Rank())
	}

	res := &FilterResult{}
	for z := 0; z < img.Shape[0]; z++ {
		max, err := img.PlaneMax(z)
		if err != nil {
			return nil, err
		}
		if max > threshold {
			res.Retained = append(res.Retained, z)
		} else {
			res.EmptyCount++
		}
	}
	return res, nil
}

// AutoThreshold estimates the noise floor of a stack from the distribution
// of its per-plane maxima. The lower quartile of maxima is taken to
// represent background-only planes; the estimate is their mean plus three
// standard deviations, never less than DefaultThreshold.
func AutoThreshold(img *models.Image) (float64, error) {
	if img.Rank() < 3 {
		return 0, fmt.Errorf("auto threshold requires a 3D stack, got rank %d", img.Rank())
	}

	maxima := make([]float64, img.Shape[0])
	for z := range maxima {
		max, err := img.PlaneMax(z)
		if err != nil {
			return 0, err
		}
		maxima[z] = max
	}
	sort.Float64s(maxima)

	q := stat.Quantile(0.25, stat.Empirical, maxima, nil)
	var background []float64
	for _, m := range maxima {
		if m <= q {
			background = append(background, m)
		}
	}

	threshold := stat.Mean(background, nil)
	if len(background) > 1 {
		threshold += 3 * stat.StdDev(background, nil)
	}
	if threshold < DefaultThreshold {
		threshold = DefaultThreshold
	}
	return threshold, nil
}
