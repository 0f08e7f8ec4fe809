package imstest

import (
	"fmt"

	"ims2tif/internal/models"
)

// MemStore is an in-memory Store for navigator and extractor tests.
// Groups maps a group path to its child key names; Datasets maps a dataset
// path to its image.
type MemStore struct {
	Groups   map[string][]string
	Datasets map[string]*models.Image

	// Closed records whether Close was called, so tests can assert handle
	// release.
	Closed bool
}

// NewMemStack returns a MemStore holding img under the conventional
// single-channel hierarchy.
func NewMemStack(img *models.Image) *MemStore {
	return &MemStore{
		Groups: map[string][]string{
			"DataSet":                                         {"ResolutionLevel 0"},
			"DataSet/ResolutionLevel 0":                       {"TimePoint 0"},
			"DataSet/ResolutionLevel 0/TimePoint 0":           {"Channel 0"},
			"DataSet/ResolutionLevel 0/TimePoint 0/Channel 0": {"Data"},
		},
		Datasets: map[string]*models.Image{
			"DataSet/ResolutionLevel 0/TimePoint 0/Channel 0/Data": img,
		},
	}
}

func (m *MemStore) ListChildKeys(groupPath string) ([]string, error) {
	keys, ok := m.Groups[groupPath]
	if !ok {
		return nil, fmt.Errorf("group %q not found", groupPath)
	}
	return keys, nil
}

func (m *MemStore) DatasetInfo(datasetPath string) ([]int, models.Dtype, error) {
	img, ok := m.Datasets[datasetPath]
	if !ok {
		return nil, 0, fmt.Errorf("dataset %q not found", datasetPath)
	}
	return img.Shape, img.Dtype, nil
}

func (m *MemStore) ReadDataset(datasetPath string) (*models.Image, error) {
	img, ok := m.Datasets[datasetPath]
	if !ok {
		return nil, fmt.Errorf("dataset %q not found", datasetPath)
	}
	return img, nil
}

func (m *MemStore) Close() error {
	m.Closed = true
	return nil
}
