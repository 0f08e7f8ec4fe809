// Package tiffio writes grayscale TIFF files.
//
// golang.org/x/image/tiff decodes TIFF but its encoder is limited to a
// single page and a fixed tag set, so this package implements the writing
// side the converter needs: little-endian baseline TIFF, 8- or 16-bit
// grayscale, one page per Z-plane, optional Adobe Deflate compression with
// horizontal-predictor differencing, and an ImageDescription tag for
// OME-style metadata. Output is kept within what the x/image/tiff decoder
// understands, which the tests rely on.
package tiffio

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"ims2tif/internal/models"
)

// Compression selects the strip compression scheme.
type Compression int

const (
	// NoCompression stores strips verbatim.
	NoCompression Compression = iota

	// Deflate compresses strips with zlib (Adobe Deflate, tag value 8).
	Deflate
)

// Options control how an image is written.
type Options struct {
	// Compression is the strip compression scheme.
	Compression Compression

	// Predictor applies horizontal differencing before compression.
	// Only valid together with Deflate.
	Predictor bool

	// Description is stored in the ImageDescription tag of the first page.
	Description string
}

// TIFF field types.
const (
	typeASCII    = 2
	typeShort    = 3
	typeLong     = 4
	typeRational = 5
)

// TIFF tags, in the ascending order they must appear in an IFD.
const (
	tagImageWidth     = 256
	tagImageLength    = 257
	tagBitsPerSample  = 258
	tagCompression    = 259
	tagPhotometric    = 262
	tagDescription    = 270
	tagStripOffsets   = 273
	tagSamplesPerPx   = 277
	tagRowsPerStrip   = 278
	tagStripCounts    = 279
	tagXResolution    = 282
	tagYResolution    = 283
	tagResolutionUnit = 296
	tagPredictor      = 317
)

const (
	compressionNone       = 1
	compressionDeflate    = 8
	photometricMinIsBlack = 1
	resolutionUnitInch    = 2
	predictorHorizontal   = 2
)

// WriteFile encodes img into a TIFF file at path.
func WriteFile(path string, img *models.Image, opts *Options) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := Write(f, img, opts); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// Write encodes img as a little-endian TIFF. A rank-3 image produces one
// page per leading-axis plane; a rank-2 image produces a single page.
func Write(w io.Writer, img *models.Image, opts *Options) error {
	if opts == nil {
		opts = &Options{}
	}
	if opts.Predictor && opts.Compression == NoCompression {
		return fmt.Errorf("predictor requires compression")
	}

	var pages, height, width int
	switch img.Rank() {
	case 2:
		pages, height, width = 1, img.Shape[0], img.Shape[1]
	case 3:
		pages, height, width = img.Shape[0], img.Shape[1], img.Shape[2]
	default:
		return fmt.Errorf("cannot encode rank-%d image as TIFF", img.Rank())
	}
	if pages == 0 || height == 0 || width == 0 {
		return fmt.Errorf("cannot encode empty image of shape %v", img.Shape)
	}

	var bits int
	switch img.Dtype {
	case models.Uint8:
		bits = 8
	case models.Uint16:
		bits = 16
	default:
		return fmt.Errorf("cannot encode dtype %s as grayscale TIFF", img.Dtype)
	}

	pageBytes := width * height * bits / 8
	if len(img.Data) < pages*pageBytes {
		return fmt.Errorf("image payload truncated: have %d bytes, need %d", len(img.Data), pages*pageBytes)
	}

	// Prepare one strip per page.
	strips := make([][]byte, pages)
	for p := 0; p < pages; p++ {
		raw := img.Data[p*pageBytes : (p+1)*pageBytes]
		if opts.Predictor {
			raw = differenceRows(raw, width, height, bits)
		}
		if opts.Compression == Deflate {
			var buf bytes.Buffer
			zw := zlib.NewWriter(&buf)
			if _, err := zw.Write(raw); err != nil {
				return fmt.Errorf("compressing page %d: %w", p, err)
			}
			if err := zw.Close(); err != nil {
				return fmt.Errorf("compressing page %d: %w", p, err)
			}
			strips[p] = buf.Bytes()
		} else {
			strips[p] = raw
		}
	}

	desc := encodeDescription(opts.Description)

	// Lay out the file: header, strip data, then one IFD per page with its
	// out-of-line values. Strip segments are padded to even offsets.
	off := uint32(8)
	dataOff := make([]uint32, pages)
	for p := range strips {
		dataOff[p] = off
		off += uint32(len(strips[p]))
		if off%2 == 1 {
			off++
		}
	}
	ifdOff := make([]uint32, pages)
	for p := 0; p < pages; p++ {
		ifdOff[p] = off
		off += ifdBlockSize(p == 0, opts, len(desc))
	}

	bw := &leWriter{w: w}
	bw.bytes([]byte{'I', 'I'})
	bw.u16(42)
	bw.u32(ifdOff[0])

	for p := range strips {
		bw.bytes(strips[p])
		if (dataOff[p]+uint32(len(strips[p])))%2 == 1 {
			bw.bytes([]byte{0})
		}
	}

	for p := 0; p < pages; p++ {
		next := uint32(0)
		if p < pages-1 {
			next = ifdOff[p+1]
		}
		writeIFD(bw, ifdParams{
			width:    uint32(width),
			height:   uint32(height),
			bits:     uint32(bits),
			dataOff:  dataOff[p],
			dataLen:  uint32(len(strips[p])),
			ifdOff:   ifdOff[p],
			nextIFD:  next,
			opts:     opts,
			desc:     desc,
			withDesc: p == 0 && len(desc) > 0,
		})
	}

	return bw.err
}

// ifdParams carries everything needed to emit one IFD block.
type ifdParams struct {
	width, height, bits uint32
	dataOff, dataLen    uint32
	ifdOff, nextIFD     uint32
	opts                *Options
	desc                []byte
	withDesc            bool
}

// entryCount returns the number of IFD entries for a page.
func entryCount(first bool, opts *Options, descLen int) uint32 {
	n := uint32(12)
	if first && descLen > 0 {
		n++
	}
	if opts.Predictor {
		n++
	}
	return n
}

// ifdBlockSize is the byte size of an IFD plus its out-of-line values:
// entry table, next-IFD pointer, two resolution rationals and, on the first
// page, the description string.
func ifdBlockSize(first bool, opts *Options, descLen int) uint32 {
	size := 2 + entryCount(first, opts, descLen)*12 + 4 + 16
	if first && descLen > 0 {
		size += uint32(descLen)
	}
	return size
}

func writeIFD(bw *leWriter, p ifdParams) {
	n := entryCount(p.withDesc, p.opts, len(p.desc))
	valOff := p.ifdOff + 2 + n*12 + 4
	xResOff := valOff
	yResOff := valOff + 8
	descOff := valOff + 16

	compression := uint32(compressionNone)
	if p.opts.Compression == Deflate {
		compression = compressionDeflate
	}

	bw.u16(uint16(n))
	bw.entry(tagImageWidth, typeLong, 1, p.width)
	bw.entry(tagImageLength, typeLong, 1, p.height)
	bw.entry(tagBitsPerSample, typeShort, 1, p.bits)
	bw.entry(tagCompression, typeShort, 1, compression)
	bw.entry(tagPhotometric, typeShort, 1, photometricMinIsBlack)
	if p.withDesc {
		// Count includes the NUL terminator but not the even-offset pad.
		bw.entry(tagDescription, typeASCII, descCount(p.desc), descOff)
	}
	bw.entry(tagStripOffsets, typeLong, 1, p.dataOff)
	bw.entry(tagSamplesPerPx, typeShort, 1, 1)
	bw.entry(tagRowsPerStrip, typeLong, 1, p.height)
	bw.entry(tagStripCounts, typeLong, 1, p.dataLen)
	bw.entry(tagXResolution, typeRational, 1, xResOff)
	bw.entry(tagYResolution, typeRational, 1, yResOff)
	bw.entry(tagResolutionUnit, typeShort, 1, resolutionUnitInch)
	if p.opts.Predictor {
		bw.entry(tagPredictor, typeShort, 1, predictorHorizontal)
	}
	bw.u32(p.nextIFD)

	// Out-of-line values: 72 dpi rationals, then the description.
	bw.u32(72)
	bw.u32(1)
	bw.u32(72)
	bw.u32(1)
	if p.withDesc {
		bw.bytes(p.desc)
	}
}

// encodeDescription returns the description NUL-terminated and padded to an
// even length, or nil for the empty string.
func encodeDescription(desc string) []byte {
	if desc == "" {
		return nil
	}
	b := append([]byte(desc), 0)
	if len(b)%2 == 1 {
		b = append(b, 0)
	}
	return b
}

// descCount is the ASCII field count: string plus NUL, excluding padding.
func descCount(desc []byte) uint32 {
	n := uint32(len(desc))
	if n > 1 && desc[n-1] == 0 && desc[n-2] == 0 {
		n--
	}
	return n
}

// differenceRows applies TIFF horizontal-predictor differencing row by row,
// returning a new buffer. For 16-bit samples the differences are computed on
// sample values, then serialized little-endian.
func differenceRows(src []byte, width, height, bits int) []byte {
	dst := make([]byte, len(src))
	if bits == 8 {
		for y := 0; y < height; y++ {
			row := src[y*width : (y+1)*width]
			out := dst[y*width : (y+1)*width]
			out[0] = row[0]
			for x := 1; x < width; x++ {
				out[x] = row[x] - row[x-1]
			}
		}
		return dst
	}

	stride := width * 2
	for y := 0; y < height; y++ {
		row := src[y*stride : (y+1)*stride]
		out := dst[y*stride : (y+1)*stride]
		prev := binary.LittleEndian.Uint16(row)
		binary.LittleEndian.PutUint16(out, prev)
		for x := 1; x < width; x++ {
			v := binary.LittleEndian.Uint16(row[x*2:])
			binary.LittleEndian.PutUint16(out[x*2:], v-prev)
			prev = v
		}
	}
	return dst
}

// leWriter writes little-endian values, remembering the first error.
type leWriter struct {
	w   io.Writer
	err error
}

func (bw *leWriter) bytes(b []byte) {
	if bw.err != nil {
		return
	}
	_, bw.err = bw.w.Write(b)
}

func (bw *leWriter) u16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	bw.bytes(b[:])
}

func (bw *leWriter) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	bw.bytes(b[:])
}

func (bw *leWriter) entry(tag, typ uint16, count, value uint32) {
	bw.u16(tag)
	bw.u16(typ)
	bw.u32(count)
	bw.u32(value)
}
