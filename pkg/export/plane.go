package export

import (
	"fmt"
	"image"
	"os"

	"golang.org/x/image/tiff"

	"ims2tif/internal/models"
)

// writePlane encodes a single 2D plane through the x/image/tiff encoder.
func writePlane(path string, plane *models.Image) error {
	if plane.Rank() != 2 {
		return fmt.Errorf("plane must be 2D, got shape %v", plane.Shape)
	}

	img, err := planeImage(plane)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := tiff.Encode(f, img, &tiff.Options{Compression: tiff.Uncompressed}); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return f.Close()
}

// planeImage wraps the plane's raw payload in an image.Image. Gray16 pixel
// data is big-endian in the image package, so 16-bit samples are swapped.
func planeImage(plane *models.Image) (image.Image, error) {
	height, width := plane.Shape[0], plane.Shape[1]
	rect := image.Rect(0, 0, width, height)

	switch plane.Dtype {
	case models.Uint8:
		img := image.NewGray(rect)
		copy(img.Pix, plane.Data)
		return img, nil
	case models.Uint16:
		img := image.NewGray16(rect)
		for i := 0; i+1 < len(plane.Data); i += 2 {
			img.Pix[i] = plane.Data[i+1]
			img.Pix[i+1] = plane.Data[i]
		}
		return img, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedDtype, plane.Dtype)
}
