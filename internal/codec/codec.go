// Package codec converts classified clipboard content into output bytes.
//
// Conversions are pure and deterministic: a failure will not succeed on retry
// with the same input, so callers never retry. File and multi-file content is
// not handled here; archives come from the archive package.
package codec

import (
	"fmt"

	"go.klb.dev/clipsave/internal/content"
	"go.klb.dev/clipsave/internal/saveerr"
)

const (
	// JPEGQuality matches a 0.8 compression factor.
	JPEGQuality = 80
	HEICQuality = 80
)

// Set is the collection of per-type codecs.
type Set struct {
	// HEIC is nil on platforms without a HEIC encoder.
	HEIC HEICEncoder
}

// New returns a Set wired with the platform's optional encoders.
func New() *Set {
	return &Set{HEIC: platformHEIC()}
}

// Encode converts c to format f.
func (s *Set) Encode(c content.Content, f content.Format) ([]byte, error) {
	if c == nil {
		return nil, saveerr.ErrInvalidData
	}
	kind := c.Kind()
	if kind == content.KindEmpty {
		return nil, saveerr.ErrInvalidData
	}
	if !content.Supports(kind, f) {
		return nil, fmt.Errorf("%w: %q for %s", saveerr.ErrInvalidFileFormat, f, kind)
	}

	switch v := c.(type) {
	case content.Image:
		return s.encodeImage(v.Bitmap, f)
	case content.Text:
		return EncodeText(v.Value, f)
	case content.RTF:
		plain, err := DecodeRTF(v.Data())
		if err != nil {
			return nil, fmt.Errorf("%w: %v", saveerr.ErrConversionFailed, err)
		}
		return EncodeText(plain, f)
	case content.PDF:
		return v.Data(), nil
	case content.File, content.MultipleFiles:
		return nil, fmt.Errorf("%w: %s content is archived, not encoded", saveerr.ErrInvalidFileFormat, kind)
	default:
		return nil, saveerr.ErrInvalidData
	}
}

// EncodeText converts plain text to one of the text formats.
func EncodeText(text string, f content.Format) ([]byte, error) {
	switch f {
	case content.FormatTXT, content.FormatMD:
		return []byte(text), nil
	case content.FormatRTF:
		return EncodeRTF(text), nil
	case content.FormatHTML:
		b, err := EncodeHTML(text)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", saveerr.ErrConversionFailed, err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("%w: %q is not a text format", saveerr.ErrInvalidFileFormat, f)
	}
}
