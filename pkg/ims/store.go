package ims

import (
	"encoding/binary"
	"fmt"
	"math"
	"reflect"

	"github.com/robert-malhotra/go-hdf5/hdf5"

	"ims2tif/internal/models"
)

// Store is read-only access to a hierarchical container. Paths are
// slash-separated and relative to the container root.
type Store interface {
	// ListChildKeys returns the names of the direct children of a group.
	ListChildKeys(groupPath string) ([]string, error)

	// DatasetInfo returns the shape and element type of a dataset without
	// reading its payload.
	DatasetInfo(datasetPath string) ([]int, models.Dtype, error)

	// ReadDataset reads a dataset fully into memory.
	ReadDataset(datasetPath string) (*models.Image, error)

	// Close releases the underlying file handle.
	Close() error
}

// OpenStore opens an IMS (HDF5) container for reading.
func OpenStore(path string) (Store, error) {
	f, err := hdf5.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening container %s: %w", path, err)
	}
	return &hdf5Store{f: f}, nil
}

// hdf5Store adapts the pure-Go HDF5 reader to the Store interface.
type hdf5Store struct {
	f *hdf5.File
}

func (s *hdf5Store) ListChildKeys(groupPath string) ([]string, error) {
	g, err := s.f.OpenGroup(groupPath)
	if err != nil {
		return nil, fmt.Errorf("opening group %q: %w", groupPath, err)
	}
	members, err := g.Members()
	if err != nil {
		return nil, fmt.Errorf("listing group %q: %w", groupPath, err)
	}
	return members, nil
}

func (s *hdf5Store) DatasetInfo(datasetPath string) ([]int, models.Dtype, error) {
	ds, err := s.f.OpenDataset(datasetPath)
	if err != nil {
		return nil, 0, fmt.Errorf("opening dataset %q: %w", datasetPath, err)
	}
	shape, err := shapeToInts(ds.Shape())
	if err != nil {
		return nil, 0, err
	}
	dtype, err := datasetDtype(ds)
	if err != nil {
		return nil, 0, err
	}
	return shape, dtype, nil
}

func (s *hdf5Store) ReadDataset(datasetPath string) (*models.Image, error) {
	ds, err := s.f.OpenDataset(datasetPath)
	if err != nil {
		return nil, fmt.Errorf("opening dataset %q: %w", datasetPath, err)
	}

	shape, err := shapeToInts(ds.Shape())
	if err != nil {
		return nil, err
	}
	dtype, err := datasetDtype(ds)
	if err != nil {
		return nil, err
	}

	img := &models.Image{Shape: shape, Dtype: dtype}

	// Decode through the library's typed readers so the payload ends up
	// little-endian regardless of how the writer stored it.
	switch dtype {
	case models.Uint8:
		vals, err := ds.ReadUint8()
		if err != nil {
			return nil, fmt.Errorf("reading dataset %q: %w", datasetPath, err)
		}
		img.Data = vals
	case models.Uint16:
		vals, err := ds.ReadUint16()
		if err != nil {
			return nil, fmt.Errorf("reading dataset %q: %w", datasetPath, err)
		}
		img.Data = make([]byte, 2*len(vals))
		for i, v := range vals {
			binary.LittleEndian.PutUint16(img.Data[2*i:], v)
		}
	case models.Float32:
		vals, err := ds.ReadFloat32()
		if err != nil {
			return nil, fmt.Errorf("reading dataset %q: %w", datasetPath, err)
		}
		img.Data = make([]byte, 4*len(vals))
		for i, v := range vals {
			binary.LittleEndian.PutUint32(img.Data[4*i:], math.Float32bits(v))
		}
	}

	return img, nil
}

func (s *hdf5Store) Close() error {
	return s.f.Close()
}

// shapeToInts converts HDF5 dimensions to int, guarding against overflow on
// 32-bit platforms.
func shapeToInts(dims []uint64) ([]int, error) {
	shape := make([]int, len(dims))
	for i, d := range dims {
		if d > uint64(math.MaxInt32) {
			return nil, fmt.Errorf("dimension %d too large: %d", i, d)
		}
		shape[i] = int(d)
	}
	return shape, nil
}

// datasetDtype maps the dataset's Go type onto the supported element types.
func datasetDtype(ds *hdf5.Dataset) (models.Dtype, error) {
	goType, err := ds.GoType()
	if err != nil {
		return 0, fmt.Errorf("resolving element type: %w", err)
	}
	switch goType.Kind() {
	case reflect.Uint8:
		return models.Uint8, nil
	case reflect.Uint16:
		return models.Uint16, nil
	case reflect.Float32:
		return models.Float32, nil
	}
	return 0, fmt.Errorf("unsupported element type %s", goType)
}
