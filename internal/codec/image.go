package codec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/tiff"

	"go.klb.dev/clipsave/internal/content"
	"go.klb.dev/clipsave/internal/saveerr"
)

// HEICEncoder encodes a bitmap as HEIC. Availability depends on the host OS.
type HEICEncoder interface {
	EncodeHEIC(img image.Image, quality int) ([]byte, error)
}

func (s *Set) encodeImage(img image.Image, f content.Format) ([]byte, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: no bitmap", saveerr.ErrConversionFailed)
	}
	if f == content.FormatHEIC && s.HEIC == nil {
		return nil, saveerr.ErrFormatUnavailable
	}

	bm := bitmap(img)
	var (
		buf bytes.Buffer
		err error
	)
	switch f {
	case content.FormatPNG:
		err = png.Encode(&buf, bm)
	case content.FormatJPG:
		err = jpeg.Encode(&buf, bm, &jpeg.Options{Quality: JPEGQuality})
	case content.FormatTIFF:
		err = tiff.Encode(&buf, bm, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	case content.FormatGIF:
		err = gif.Encode(&buf, bm, nil)
	case content.FormatHEIC:
		out, herr := s.HEIC.EncodeHEIC(bm, HEICQuality)
		if errors.Is(herr, saveerr.ErrFormatUnavailable) {
			return nil, herr
		}
		if herr != nil {
			return nil, fmt.Errorf("%w: heic: %v", saveerr.ErrConversionFailed, herr)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %q is not an image format", saveerr.ErrInvalidFileFormat, f)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", saveerr.ErrConversionFailed, f, err)
	}
	return buf.Bytes(), nil
}

// bitmap normalises any decoded image to NRGBA once, so every encoder works
// from the same intermediate representation.
func bitmap(img image.Image) *image.NRGBA {
	if nrgba, ok := img.(*image.NRGBA); ok {
		return nrgba
	}
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}
