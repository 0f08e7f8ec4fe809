// Package export turns an extracted image into TIF artifacts on disk.
//
// Four modes mirror the exports Imaris users expect: a single multi-page
// stack, one file per Z-plane, an OME-annotated stack, and a
// losslessly-compressed stack.
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"ims2tif/internal/models"
	"ims2tif/pkg/tiffio"
)

// Mode selects how an image is exported.
type Mode int

const (
	// Stack writes one multi-page TIF holding every plane.
	Stack Mode = iota

	// Slices writes one single-page TIF per plane.
	Slices

	// OME writes a compressed stack carrying OME-XML metadata.
	OME

	// Compressed writes a stack with Deflate compression and horizontal
	// predictor differencing.
	Compressed
)

func (m Mode) String() string {
	switch m {
	case Stack:
		return "stack"
	case Slices:
		return "slices"
	case OME:
		return "ome"
	case Compressed:
		return "compressed"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode parses a mode name as used on the command line.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "stack":
		return Stack, nil
	case "slices":
		return Slices, nil
	case "ome":
		return OME, nil
	case "compressed":
		return Compressed, nil
	}
	return 0, fmt.Errorf("unknown export mode %q (want stack, slices, ome or compressed)", s)
}

// ErrUnsupportedDtype is returned when the image element type cannot be
// encoded as a grayscale TIF.
var ErrUnsupportedDtype = errors.New("unsupported element type for TIF encoding")

// Artifact lists the files an export produced.
type Artifact struct {
	Paths []string
}

// Exporter writes export artifacts.
type Exporter struct {
	log zerolog.Logger
}

// New returns an Exporter.
func New(log zerolog.Logger) *Exporter {
	return &Exporter{log: log}
}

// Export writes img to outputPath according to mode. For Slices mode the
// artifacts land in a sibling directory derived from outputPath; for all
// other modes outputPath is the artifact itself.
func (e *Exporter) Export(img *models.Image, outputPath string, mode Mode) (*Artifact, error) {
	switch img.Dtype {
	case models.Uint8, models.Uint16:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDtype, img.Dtype)
	}

	switch mode {
	case Stack:
		return e.writeStack(img, outputPath, nil)
	case Slices:
		return e.writeSlices(img, outputPath)
	case OME:
		return e.writeStack(img, outputPath, &tiffio.Options{
			Compression: tiffio.Deflate,
			Description: omeDescription(img),
		})
	case Compressed:
		return e.writeStack(img, outputPath, &tiffio.Options{
			Compression: tiffio.Deflate,
			Predictor:   true,
		})
	}
	return nil, fmt.Errorf("unknown export mode %d", int(mode))
}

func (e *Exporter) writeStack(img *models.Image, outputPath string, opts *tiffio.Options) (*Artifact, error) {
	if err := ensureDir(outputPath); err != nil {
		return nil, err
	}
	if err := tiffio.WriteFile(outputPath, img, opts); err != nil {
		return nil, err
	}
	e.log.Debug().Str("path", outputPath).Ints("shape", img.Shape).Msg("stack written")
	return &Artifact{Paths: []string{outputPath}}, nil
}

// SliceDir returns the directory Slices mode writes into for a given
// output path: a sibling named after the stem.
func SliceDir(outputPath string) string {
	stem := strings.TrimSuffix(filepath.Base(outputPath), filepath.Ext(outputPath))
	return filepath.Join(filepath.Dir(outputPath), stem+"_slices")
}

func (e *Exporter) writeSlices(img *models.Image, outputPath string) (*Artifact, error) {
	stem := strings.TrimSuffix(filepath.Base(outputPath), filepath.Ext(outputPath))
	dir := SliceDir(outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating slice directory: %w", err)
	}

	depth := 1
	if img.Rank() >= 3 {
		depth = img.Shape[0]
	}

	artifact := &Artifact{}
	for z := 0; z < depth; z++ {
		plane := img
		if img.Rank() >= 3 {
			var err error
			if plane, err = img.ExtractPlane(z); err != nil {
				return nil, err
			}
		}
		path := filepath.Join(dir, fmt.Sprintf("%s_z%03d.tif", stem, z))
		if err := writePlane(path, plane); err != nil {
			return nil, err
		}
		artifact.Paths = append(artifact.Paths, path)
	}

	e.log.Debug().Str("dir", dir).Int("slices", depth).Msg("slice files written")
	return artifact, nil
}

func ensureDir(outputPath string) error {
	dir := filepath.Dir(outputPath)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	return nil
}
