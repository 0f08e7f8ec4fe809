package export

import (
	"fmt"

	"ims2tif/internal/models"
)

// omeDescription builds the OME-XML block stored in the ImageDescription
// tag of an OME export. The converter does not carry calibrated pixel sizes
// through from the container, so physical sizes are unity micrometre
// placeholders, matching what Imaris emits for uncalibrated data.
func omeDescription(img *models.Image) string {
	sizeZ := 1
	sizeY := img.Shape[0]
	sizeX := 1
	if len(img.Shape) >= 2 {
		sizeX = img.Shape[len(img.Shape)-1]
		sizeY = img.Shape[len(img.Shape)-2]
	}
	if img.Rank() >= 3 {
		sizeZ = img.Shape[0]
	}

	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>`+
		`<OME xmlns="http://www.openmicroscopy.org/Schemas/OME/2016-06">`+
		`<Image ID="Image:0">`+
		`<Pixels ID="Pixels:0" DimensionOrder="XYZCT" Type="%s"`+
		` SizeX="%d" SizeY="%d" SizeZ="%d" SizeC="1" SizeT="1"`+
		` PhysicalSizeX="1.0" PhysicalSizeXUnit="µm"`+
		` PhysicalSizeY="1.0" PhysicalSizeYUnit="µm"`+
		` PhysicalSizeZ="1.0" PhysicalSizeZUnit="µm">`+
		`<Channel ID="Channel:0:0" Name="Channel 0" SamplesPerPixel="1"/>`+
		`<TiffData/>`+
		`</Pixels>`+
		`</Image>`+
		`</OME>`,
		img.Dtype, sizeX, sizeY, sizeZ)
}
