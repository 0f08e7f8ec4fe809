package ims

import (
	"sort"
	"strconv"
	"strings"
)

// Group naming convention inside an IMS container.
const (
	rootGroup       = "DataSet"
	resolutionGroup = "ResolutionLevel"
	timepointGroup  = "TimePoint"
	channelGroup    = "Channel"
	dataLeaf        = "Data"
)

// Selector picks one image array out of a container. Nil pointer fields fall
// back to the first available key at that level.
type Selector struct {
	// ResolutionLevel must be 0; other tiers of the resolution pyramid are
	// not supported.
	ResolutionLevel int

	// Timepoint selects a time-series frame (0-based).
	Timepoint *int

	// Channel selects an acquisition channel (0-based).
	Channel *int

	// ZSlice, when set, reduces a 3D stack to the single plane at that
	// index along the depth axis.
	ZSlice *int
}

// IntPtr is a convenience for building selectors from flag values.
func IntPtr(v int) *int { return &v }

// ResolveDataPath walks the container's key-naming convention and returns
// the path of the dataset selected by sel.
//
// Timepoint and channel indices resolve in two tiers: a literal key such as
// "TimePoint 3" wins when present; otherwise the index is positional within
// the key group. Positional order is by trailing integer when every key in
// the group parses as "<prefix> <n>", lexicographic otherwise, so containers
// written out of order still resolve deterministically.
func ResolveDataPath(store Store, sel Selector) (string, error) {
	if sel.ResolutionLevel != 0 {
		return "", ErrResolutionUnsupported
	}

	rootKeys, err := store.ListChildKeys(rootGroup)
	if err != nil {
		return "", err
	}
	levels := keyGroup(rootKeys, resolutionGroup)
	if len(levels) == 0 {
		return "", &NavigationError{Kind: NoResolutionLevels, Group: resolutionGroup}
	}
	resPath := rootGroup + "/" + levels[0]

	resKeys, err := store.ListChildKeys(resPath)
	if err != nil {
		return "", err
	}
	timepoints := keyGroup(resKeys, timepointGroup)
	if len(timepoints) == 0 {
		return "", &NavigationError{Kind: NoTimePoints, Group: timepointGroup}
	}
	tpKey, err := resolveKey(timepoints, timepointGroup, sel.Timepoint)
	if err != nil {
		return "", err
	}
	tpPath := resPath + "/" + tpKey

	tpKeys, err := store.ListChildKeys(tpPath)
	if err != nil {
		return "", err
	}
	channels := keyGroup(tpKeys, channelGroup)
	if len(channels) == 0 {
		return "", &NavigationError{Kind: NoChannels, Group: channelGroup}
	}
	chKey, err := resolveKey(channels, channelGroup, sel.Channel)
	if err != nil {
		return "", err
	}
	chPath := tpPath + "/" + chKey

	chKeys, err := store.ListChildKeys(chPath)
	if err != nil {
		return "", err
	}
	for _, k := range chKeys {
		if k == dataLeaf {
			return chPath + "/" + dataLeaf, nil
		}
	}
	return "", &NavigationError{Kind: NoDataNode, Group: chPath}
}

// keyGroup filters keys sharing a prefix and puts them in a deterministic
// order (numeric by trailing integer when possible).
func keyGroup(keys []string, prefix string) []string {
	var group []string
	for _, k := range keys {
		if strings.HasPrefix(k, prefix) {
			group = append(group, k)
		}
	}
	sortKeyGroup(group, prefix)
	return group
}

// sortKeyGroup orders sibling keys. HDF5 iteration order is whatever the
// writer produced, so "TimePoint 10" may come before "TimePoint 2"; sorting
// by the numeric suffix keeps positional selection stable across writers.
func sortKeyGroup(group []string, prefix string) {
	numeric := true
	nums := make([]int, len(group))
	for i, k := range group {
		n, ok := keySuffix(k, prefix)
		if !ok {
			numeric = false
			break
		}
		nums[i] = n
	}
	if numeric {
		sort.Sort(&byNum{keys: group, nums: nums})
		return
	}
	sort.Strings(group)
}

// keySuffix parses "<prefix> <n>" and returns n.
func keySuffix(key, prefix string) (int, bool) {
	rest := strings.TrimSpace(strings.TrimPrefix(key, prefix))
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}

type byNum struct {
	keys []string
	nums []int
}

func (b *byNum) Len() int           { return len(b.keys) }
func (b *byNum) Less(i, j int) bool { return b.nums[i] < b.nums[j] }
func (b *byNum) Swap(i, j int) {
	b.keys[i], b.keys[j] = b.keys[j], b.keys[i]
	b.nums[i], b.nums[j] = b.nums[j], b.nums[i]
}

// resolveKey applies the two-tier selection rule to a key group.
func resolveKey(group []string, prefix string, requested *int) (string, error) {
	if requested == nil {
		return group[0], nil
	}
	n := *requested

	literal := prefix + " " + strconv.Itoa(n)
	for _, k := range group {
		if k == literal {
			return k, nil
		}
	}

	if n >= 0 && n < len(group) {
		return group[n], nil
	}
	return "", &NavigationError{
		Kind:      IndexOutOfRange,
		Group:     prefix,
		Requested: n,
		Available: len(group),
	}
}
