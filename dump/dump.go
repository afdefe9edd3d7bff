// Package dump captures the contents of linear color images living in device
// memory objects and writes them out as binary PPM, the way a debugging
// screenshot path would. It reads through the bounce-buffer path one row at a
// time so the whole image never has to be resident in a single allocation.
package dump

import (
	"bufio"
	"fmt"
	"io"
	"time"

	cerrors "github.com/cockroachdb/errors"
	"github.com/pkg/errors"

	"github.com/vkngwrapper/winsys/format"
)

var (
	// UnsupportedFormatError is returned when the image format cannot be
	// converted to 8-bit RGB.
	UnsupportedFormatError = errors.New("the image format is not supported for dumping")
	// BadGeometryError is returned when the image description does not fit
	// the source object.
	BadGeometryError = errors.New("the image geometry does not fit the source object")
)

// Image describes the layout of a linear color image inside a memory object.
type Image struct {
	Width  int
	Height int
	// Pitch is the byte distance between the starts of consecutive rows.
	Pitch  int
	Format format.Format
}

// Source is the slice of the memory object surface the dumper needs. It is
// satisfied by winsys.MemoryObject.
type Source interface {
	Name() string
	Size() int
	Wait(timeout time.Duration) error
	Read(offset, size int) ([]byte, error)
}

// Converters produce one RGB triple from texel bytes.
type converter func(texel []byte) (r, g, b byte)

func rgbFromRGBX(texel []byte) (byte, byte, byte) {
	return texel[0], texel[1], texel[2]
}

func rgbFromBGRX(texel []byte) (byte, byte, byte) {
	return texel[2], texel[1], texel[0]
}

func rgbFromR5G6B5(texel []byte) (byte, byte, byte) {
	packed := uint16(texel[0]) | uint16(texel[1])<<8
	r := byte(packed >> 11 & 0x1f)
	g := byte(packed >> 5 & 0x3f)
	b := byte(packed & 0x1f)
	return r<<3 | r>>2, g<<2 | g>>4, b<<3 | b>>2
}

func converterFor(f format.Format) (converter, bool) {
	switch f {
	case format.R8G8B8UNorm, format.R8G8B8SRGB,
		format.R8G8B8A8UNorm, format.R8G8B8A8SRGB:
		return rgbFromRGBX, true
	case format.B8G8R8A8UNorm, format.B8G8R8A8SRGB:
		return rgbFromBGRX, true
	case format.R5G6B5UNorm:
		return rgbFromR5G6B5, true
	default:
		return nil, false
	}
}

func validate(src Source, img Image) (texelSize int, err error) {
	if format.IsCompressed(img.Format) {
		return 0, cerrors.Wrapf(UnsupportedFormatError, "%s is block-compressed", img.Format.String())
	}
	if format.IsDepthStencil(img.Format) {
		return 0, cerrors.Wrapf(UnsupportedFormatError, "%s holds depth/stencil data", img.Format.String())
	}

	texelSize = format.Size(img.Format)
	if texelSize < 1 {
		return 0, cerrors.Wrapf(UnsupportedFormatError, "%s has no texel size", img.Format.String())
	}

	if img.Width < 1 || img.Height < 1 {
		return 0, cerrors.Wrapf(BadGeometryError, "image is %dx%d", img.Width, img.Height)
	}
	if img.Pitch < img.Width*texelSize {
		return 0, cerrors.Wrapf(BadGeometryError, "pitch %d is smaller than a %d-texel row of %s", img.Pitch, img.Width, img.Format.String())
	}
	if required := img.Pitch*(img.Height-1) + img.Width*texelSize; required > src.Size() {
		return 0, cerrors.Wrapf(BadGeometryError, "image needs %d bytes but %q holds %d", required, src.Name(), src.Size())
	}

	return texelSize, nil
}

// WritePPM waits for src to go idle and writes its contents to w as a binary
// PPM image. Returns UnsupportedFormatError when the format cannot be
// converted to RGB and BadGeometryError when the described image does not fit
// inside src.
func WritePPM(w io.Writer, src Source, img Image) error {
	texelSize, err := validate(src, img)
	if err != nil {
		return err
	}

	convert, ok := converterFor(img.Format)
	if !ok {
		return cerrors.Wrapf(UnsupportedFormatError, "no RGB conversion for %s", img.Format.String())
	}

	// The GPU may still be producing the image.
	if err := src.Wait(-1); err != nil {
		return err
	}

	buffered := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(buffered, "P6\n%d %d\n255\n", img.Width, img.Height); err != nil {
		return cerrors.Wrapf(err, "failed to write image header")
	}

	rowBytes := img.Width * texelSize
	rgb := make([]byte, img.Width*3)
	for y := 0; y < img.Height; y++ {
		row, err := src.Read(y*img.Pitch, rowBytes)
		if err != nil {
			return cerrors.Wrapf(err, "failed to read row %d of %q", y, src.Name())
		}

		for x := 0; x < img.Width; x++ {
			r, g, b := convert(row[x*texelSize:])
			rgb[x*3] = r
			rgb[x*3+1] = g
			rgb[x*3+2] = b
		}

		if _, err := buffered.Write(rgb); err != nil {
			return cerrors.Wrapf(err, "failed to write row %d", y)
		}
	}

	return buffered.Flush()
}
