package ims_test

import (
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ims2tif/internal/imstest"
	"ims2tif/internal/models"
	"ims2tif/pkg/ims"
)

func TestOpenStoreMissingFile(t *testing.T) {
	_, err := ims.OpenStore(filepath.Join(t.TempDir(), "missing.ims"))
	assert.Error(t, err)
}

func TestStoreReadsRealContainer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.ims")
	stack := imstest.Stack(3, 4, 5, func(z int) uint16 { return uint16(100 * z) })
	imstest.WriteStack(t, path, stack)

	store, err := ims.OpenStore(path)
	require.NoError(t, err)
	defer store.Close()

	keys, err := store.ListChildKeys("DataSet")
	require.NoError(t, err)
	assert.Equal(t, []string{"ResolutionLevel 0"}, keys)

	dataPath, err := ims.ResolveDataPath(store, ims.Selector{})
	require.NoError(t, err)

	shape, dtype, err := store.DatasetInfo(dataPath)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4, 5}, shape)
	assert.Equal(t, models.Uint16, dtype)

	img, err := store.ReadDataset(dataPath)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4, 5}, img.Shape)
	assert.Equal(t, models.Uint16, img.Dtype)
	require.Len(t, img.Data, 3*4*5*2)

	// First sample of plane 2 should be 200, little-endian.
	off := 2 * 4 * 5 * 2
	assert.Equal(t, uint16(200), binary.LittleEndian.Uint16(img.Data[off:]))
}

func TestStoreMultiChannel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "channels.ims")
	imstest.WriteChannels(t, path, [][][][]uint16{
		imstest.Stack(2, 2, 2, func(int) uint16 { return 1 }),
		imstest.Stack(2, 2, 2, func(int) uint16 { return 2 }),
	})

	store, err := ims.OpenStore(path)
	require.NoError(t, err)
	defer store.Close()

	info, err := ims.Inspect(store)
	require.NoError(t, err)
	assert.Len(t, info.Channels, 2)

	dataPath, err := ims.ResolveDataPath(store, ims.Selector{Channel: ims.IntPtr(1)})
	require.NoError(t, err)

	img, err := store.ReadDataset(dataPath)
	require.NoError(t, err)
	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(img.Data))
}
