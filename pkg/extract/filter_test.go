package extract_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ims2tif/internal/imstest"
	"ims2tif/internal/models"
	"ims2tif/pkg/extract"
)

func TestFilterRetainsSignalPlanes(t *testing.T) {
	// Planes 0, 2, 4 carry signal (max 50), planes 1 and 3 are blank.
	img := imstest.Image(imstest.Stack(5, 4, 4, func(z int) uint16 {
		if z%2 == 0 {
			return 50
		}
		return 0
	}))

	res, err := extract.Filter(img, 10)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 4}, res.Retained)
	assert.Equal(t, 2, res.EmptyCount)
}

func TestFilterAllEmpty(t *testing.T) {
	img := imstest.Image(imstest.Stack(4, 2, 2, func(int) uint16 { return 3 }))

	res, err := extract.Filter(img, 10)
	require.NoError(t, err)
	assert.Empty(t, res.Retained)
	assert.Equal(t, 4, res.EmptyCount)
}

// A plane whose maximum equals the threshold exactly is empty; the
// comparison is strict.
func TestFilterThresholdIsStrict(t *testing.T) {
	img := imstest.Image(imstest.Stack(2, 2, 2, func(z int) uint16 {
		return uint16(10 + z)
	}))

	res, err := extract.Filter(img, 10)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, res.Retained)
	assert.Equal(t, 1, res.EmptyCount)
}

func TestFilterRetainedAscending(t *testing.T) {
	img := imstest.Image(imstest.Stack(9, 3, 3, func(z int) uint16 {
		return uint16((z * 37) % 100)
	}))

	for _, threshold := range []float64{0, 10, 50, 99} {
		res, err := extract.Filter(img, threshold)
		require.NoError(t, err)
		assert.True(t, sort.IntsAreSorted(res.Retained), "threshold %v", threshold)
		for _, z := range res.Retained {
			assert.GreaterOrEqual(t, z, 0)
			assert.Less(t, z, 9)
		}
		assert.Equal(t, 9, len(res.Retained)+res.EmptyCount)
	}
}

func TestFilterRequiresStack(t *testing.T) {
	plane := &models.Image{Shape: []int{4, 4}, Dtype: models.Uint8, Data: make([]byte, 16)}
	_, err := extract.Filter(plane, 10)
	assert.Error(t, err)
}

func TestAutoThreshold(t *testing.T) {
	// Background planes max out near 5, signal planes near 900. The derived
	// floor has to separate the two groups.
	img := imstest.Image(imstest.Stack(8, 4, 4, func(z int) uint16 {
		if z < 4 {
			return uint16(3 + z) // 3..6
		}
		return 900
	}))

	threshold, err := extract.AutoThreshold(img)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, threshold, extract.DefaultThreshold)
	assert.Less(t, threshold, 900.0)

	res, err := extract.Filter(img, threshold)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 5, 6, 7}, res.Retained)
}
