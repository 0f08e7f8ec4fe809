package ims

import (
	"ims2tif/internal/models"
)

// Info summarizes what a container offers for the default selection.
type Info struct {
	// ResolutionLevels, TimePoints and Channels are the key groups found at
	// each navigation level, in resolved order. TimePoints and Channels are
	// enumerated under resolution level 0 and its first timepoint.
	ResolutionLevels []string
	TimePoints       []string
	Channels         []string

	// Shape and Dtype describe the dataset the default selector resolves to.
	Shape []int
	Dtype models.Dtype
}

// Inspect reports the structure of a container without reading pixel data.
func Inspect(store Store) (*Info, error) {
	info := &Info{}

	rootKeys, err := store.ListChildKeys(rootGroup)
	if err != nil {
		return nil, err
	}
	info.ResolutionLevels = keyGroup(rootKeys, resolutionGroup)
	if len(info.ResolutionLevels) == 0 {
		return nil, &NavigationError{Kind: NoResolutionLevels, Group: resolutionGroup}
	}

	resPath := rootGroup + "/" + info.ResolutionLevels[0]
	resKeys, err := store.ListChildKeys(resPath)
	if err != nil {
		return nil, err
	}
	info.TimePoints = keyGroup(resKeys, timepointGroup)
	if len(info.TimePoints) == 0 {
		return nil, &NavigationError{Kind: NoTimePoints, Group: timepointGroup}
	}

	tpPath := resPath + "/" + info.TimePoints[0]
	tpKeys, err := store.ListChildKeys(tpPath)
	if err != nil {
		return nil, err
	}
	info.Channels = keyGroup(tpKeys, channelGroup)
	if len(info.Channels) == 0 {
		return nil, &NavigationError{Kind: NoChannels, Group: channelGroup}
	}

	dataPath, err := ResolveDataPath(store, Selector{})
	if err != nil {
		return nil, err
	}
	info.Shape, info.Dtype, err = store.DatasetInfo(dataPath)
	if err != nil {
		return nil, err
	}
	return info, nil
}
