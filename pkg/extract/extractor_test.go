package extract_test

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ims2tif/internal/imstest"
	"ims2tif/pkg/extract"
	"ims2tif/pkg/ims"
)

func memExtractor(store *imstest.MemStore) *extract.Extractor {
	return extract.NewWithOpener(func(string) (ims.Store, error) {
		return store, nil
	}, zerolog.Nop())
}

func TestExtractDefaults(t *testing.T) {
	store := imstest.NewMemStack(imstest.Image(imstest.Stack(3, 4, 5, func(z int) uint16 {
		return uint16(100 * (z + 1))
	})))
	ex := memExtractor(store)

	res, err := ex.Extract("mem.ims", ims.Selector{}, extract.Options{})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4, 5}, res.Image.Shape)
	assert.Equal(t, []int{3, 4, 5}, res.OriginalShape)
	assert.Nil(t, res.Retained)
	assert.True(t, store.Closed, "store must be released")
}

func TestExtractZSlice(t *testing.T) {
	store := imstest.NewMemStack(imstest.Image(imstest.Stack(4, 2, 2, func(z int) uint16 {
		return uint16(z)
	})))
	ex := memExtractor(store)

	res, err := ex.Extract("mem.ims", ims.Selector{ZSlice: ims.IntPtr(2)}, extract.Options{})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, res.Image.Shape)
	assert.Equal(t, []int{4, 2, 2}, res.OriginalShape)

	max, err := res.Image.PlaneMax(0)
	require.NoError(t, err)
	assert.Equal(t, 2.0, max)
}

func TestExtractZSliceOutOfRange(t *testing.T) {
	store := imstest.NewMemStack(imstest.Image(imstest.Stack(4, 2, 2, func(int) uint16 { return 1 })))
	ex := memExtractor(store)

	_, err := ex.Extract("mem.ims", ims.Selector{ZSlice: ims.IntPtr(4)}, extract.Options{})
	var navErr *ims.NavigationError
	require.ErrorAs(t, err, &navErr)
	assert.Equal(t, ims.IndexOutOfRange, navErr.Kind)
	assert.Equal(t, 4, navErr.Requested)
	assert.Equal(t, 4, navErr.Available)
	assert.True(t, store.Closed)
}

func TestExtractChannelOutOfRange(t *testing.T) {
	store := imstest.NewMemStack(imstest.Image(imstest.Stack(2, 2, 2, func(int) uint16 { return 1 })))
	ex := memExtractor(store)

	_, err := ex.Extract("mem.ims", ims.Selector{Channel: ims.IntPtr(5)}, extract.Options{})
	var navErr *ims.NavigationError
	require.ErrorAs(t, err, &navErr)
	assert.Equal(t, ims.IndexOutOfRange, navErr.Kind)
	assert.True(t, store.Closed)
}

func TestExtractFiltering(t *testing.T) {
	store := imstest.NewMemStack(imstest.Image(imstest.Stack(5, 4, 4, func(z int) uint16 {
		if z%2 == 0 {
			return 50
		}
		return 0
	})))
	ex := memExtractor(store)

	res, err := ex.Extract("mem.ims", ims.Selector{}, extract.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4, 4}, res.Image.Shape)
	assert.Equal(t, []int{0, 2, 4}, res.Retained)
	assert.Equal(t, 2, res.EmptyCount)
	assert.False(t, res.FellBack)
}

func TestExtractAllEmptyFallsBack(t *testing.T) {
	store := imstest.NewMemStack(imstest.Image(imstest.Stack(3, 2, 2, func(int) uint16 { return 2 })))
	ex := memExtractor(store)

	res, err := ex.Extract("mem.ims", ims.Selector{}, extract.DefaultOptions())
	require.NoError(t, err)
	assert.True(t, res.FellBack)
	assert.Equal(t, 3, res.EmptyCount)
	assert.Nil(t, res.Retained)
	// The full stack is preserved rather than emitting an empty image.
	assert.Equal(t, []int{3, 2, 2}, res.Image.Shape)
}

func TestExtractOpenFailure(t *testing.T) {
	sentinel := errors.New("disk gone")
	ex := extract.NewWithOpener(func(string) (ims.Store, error) {
		return nil, sentinel
	}, zerolog.Nop())

	_, err := ex.Extract("mem.ims", ims.Selector{}, extract.Options{})
	assert.ErrorIs(t, err, sentinel)
}
