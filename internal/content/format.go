package content

import (
	"slices"
	"strings"
)

// Format is an output format identifier, always lower case.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPG  Format = "jpg"
	FormatTIFF Format = "tiff"
	FormatGIF  Format = "gif"
	FormatHEIC Format = "heic"

	FormatTXT  Format = "txt"
	FormatRTF  Format = "rtf"
	FormatHTML Format = "html"
	FormatMD   Format = "md"

	FormatPDF Format = "pdf"
	FormatZIP Format = "zip"
)

var (
	ImageFormats = []Format{FormatPNG, FormatJPG, FormatTIFF, FormatGIF, FormatHEIC}
	TextFormats  = []Format{FormatTXT, FormatRTF, FormatHTML, FormatMD}
)

// ParseFormat normalises s. "jpeg" is accepted as an alias for "jpg" and
// "markdown" for "md". Unknown strings are returned lower-cased; callers
// reject them with Supports.
func ParseFormat(s string) Format {
	f := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")))
	switch f {
	case "jpeg":
		return FormatJPG
	case "markdown":
		return FormatMD
	}
	return f
}

// Ext returns the file extension for f, without the dot.
func (f Format) Ext() string { return string(f) }

// Formats lists the formats a kind can be saved as, first entry being the
// built-in default.
func Formats(k Kind) []Format {
	switch k {
	case KindImage:
		return slices.Clone(ImageFormats)
	case KindText, KindRTF:
		return slices.Clone(TextFormats)
	case KindPDF:
		return []Format{FormatPDF}
	case KindFile, KindMultipleFiles:
		return []Format{FormatZIP}
	default:
		return nil
	}
}

// Supports reports whether k can be saved as f.
func Supports(k Kind, f Format) bool {
	return slices.Contains(Formats(k), f)
}

// DefaultFormat picks the format for k: the preferred value when it is
// valid for k, else the built-in default.
func DefaultFormat(k Kind, preferredImage, preferredText string) Format {
	var pref string
	switch k {
	case KindImage:
		pref = preferredImage
	case KindText, KindRTF:
		pref = preferredText
	}
	if f := ParseFormat(pref); pref != "" && Supports(k, f) {
		return f
	}
	if fs := Formats(k); len(fs) > 0 {
		return fs[0]
	}
	return ""
}
