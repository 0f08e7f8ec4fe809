// Package extract reads the selected image array out of an IMS container
// and optionally drops empty Z-planes.
package extract

import (
	"fmt"

	"github.com/rs/zerolog"

	"ims2tif/internal/models"
	"ims2tif/pkg/ims"
)

// StoreOpener opens a container for reading. It exists so tests can swap in
// an in-memory store.
type StoreOpener func(path string) (ims.Store, error)

// Options control the optional empty-plane filtering step.
type Options struct {
	// FilterEmpty enables dropping of planes whose maximum value does not
	// exceed Threshold.
	FilterEmpty bool

	// Threshold is the noise floor for plane classification.
	Threshold float64

	// AutoThreshold derives the threshold from the stack itself instead of
	// using Threshold.
	AutoThreshold bool
}

// DefaultOptions mirrors the converter's historical behavior: filtering on,
// fixed noise floor.
func DefaultOptions() Options {
	return Options{FilterEmpty: true, Threshold: DefaultThreshold}
}

// Result is the extracted array plus provenance about how it was produced.
type Result struct {
	// Image is the final array, after Z-slice selection and filtering.
	Image *models.Image

	// OriginalShape is the dataset shape as stored in the container.
	OriginalShape []int

	// Selector is the selection the result was extracted with.
	Selector ims.Selector

	// Retained holds the plane indices kept by the filter, nil when no
	// filtering was applied.
	Retained []int

	// EmptyCount is the number of planes the filter classified as empty.
	EmptyCount int

	// FellBack is true when every plane was empty and the unfiltered stack
	// was kept.
	FellBack bool

	// Threshold is the effective noise floor used, zero when unfiltered.
	Threshold float64
}

// Extractor turns (container path, selector) into an in-memory image.
type Extractor struct {
	open StoreOpener
	log  zerolog.Logger
}

// New returns an Extractor reading real IMS containers.
func New(log zerolog.Logger) *Extractor {
	return &Extractor{open: ims.OpenStore, log: log}
}

// NewWithOpener returns an Extractor using a custom store opener.
func NewWithOpener(open StoreOpener, log zerolog.Logger) *Extractor {
	return &Extractor{open: open, log: log}
}

// Extract opens the container, resolves the selector, reads the array and
// applies Z-slice selection and empty-plane filtering. The container handle
// is released on every path.
func (e *Extractor) Extract(path string, sel ims.Selector, opts Options) (*Result, error) {
	store, err := e.open(path)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	dataPath, err := ims.ResolveDataPath(store, sel)
	if err != nil {
		return nil, err
	}

	img, err := store.ReadDataset(dataPath)
	if err != nil {
		return nil, err
	}

	res := &Result{
		OriginalShape: append([]int{}, img.Shape...),
		Selector:      sel,
	}

	e.log.Debug().
		Str("container", path).
		Str("dataset", dataPath).
		Ints("shape", img.Shape).
		Str("dtype", img.Dtype.String()).
		Msg("dataset read")

	if sel.ZSlice != nil && img.Rank() >= 3 {
		z := *sel.ZSlice
		if z < 0 || z >= img.Shape[0] {
			return nil, &ims.NavigationError{
				Kind:      ims.IndexOutOfRange,
				Group:     "Z slice",
				Requested: z,
				Available: img.Shape[0],
			}
		}
		if img, err = img.ExtractPlane(z); err != nil {
			return nil, fmt.Errorf("extracting Z slice %d: %w", z, err)
		}
	}

	if opts.FilterEmpty && img.Rank() >= 3 {
		threshold := opts.Threshold
		if opts.AutoThreshold {
			if threshold, err = AutoThreshold(img); err != nil {
				return nil, err
			}
			e.log.Debug().Float64("threshold", threshold).Msg("auto threshold derived")
		}

		fr, err := Filter(img, threshold)
		if err != nil {
			return nil, err
		}
		res.EmptyCount = fr.EmptyCount
		res.Threshold = threshold

		if len(fr.Retained) == 0 {
			// Never produce a zero-depth stack.
			res.FellBack = true
			e.log.Warn().
				Str("container", path).
				Float64("threshold", threshold).
				Msg("no non-empty planes found, keeping full stack")
		} else {
			res.Retained = fr.Retained
			if img, err = img.SelectPlanes(fr.Retained); err != nil {
				return nil, fmt.Errorf("selecting planes: %w", err)
			}
		}
	}

	res.Image = img
	return res, nil
}
