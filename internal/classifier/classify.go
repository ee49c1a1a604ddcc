package classifier

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"go.klb.dev/clipsave/internal/clip"
	"go.klb.dev/clipsave/internal/content"
)

// Classify reads r and returns the first matching representation in the
// fixed order Image, PDF, RTF, Text, Files, Empty.
//
// An image representation that does not decode is treated as absent and
// classification moves on to the next tier. A backend that panics mid-read
// yields Empty.
func Classify(r clip.Reader) (c content.Content) {
	defer func() {
		if recover() != nil {
			c = content.Empty{}
		}
	}()

	if raw := r.Image(); len(raw) > 0 {
		if img, _, err := image.Decode(bytes.NewReader(raw)); err == nil {
			return content.NewImage(img)
		}
	}
	if pdf := r.PDF(); len(pdf) > 0 {
		return content.NewPDF(pdf)
	}
	if rtf := r.RTF(); len(rtf) > 0 {
		return content.NewRTF(rtf)
	}
	if text, ok := r.Text(); ok {
		return content.NewText(text)
	}
	if files := r.Files(); len(files) > 0 {
		return content.NewFiles(files)
	}
	return content.Empty{}
}
