// Package content defines the classified clipboard value.
//
// Content is a closed sum type: the only implementations are the variant
// types declared in this file. Switches over Content should list every
// variant; the exhaustive linter in the tool chain checks the Kind switches.
package content

import (
	"image"
	"path/filepath"
	"slices"
	"time"
)

// Kind identifies the active variant of a Content value.
type Kind int

const (
	KindEmpty Kind = iota
	KindImage
	KindText
	KindRTF
	KindPDF
	KindFile
	KindMultipleFiles
)

// String returns the human-readable type description.
func (k Kind) String() string {
	switch k {
	case KindImage:
		return "Image"
	case KindText:
		return "Text"
	case KindRTF:
		return "RTF"
	case KindPDF:
		return "PDF"
	case KindFile:
		return "File"
	case KindMultipleFiles:
		return "Multiple Files"
	default:
		return "Empty"
	}
}

// BaseName is the filename prefix used for generated names.
func (k Kind) BaseName() string {
	switch k {
	case KindImage:
		return "Image"
	case KindText, KindRTF:
		return "Text"
	case KindPDF:
		return "Document"
	case KindFile, KindMultipleFiles:
		return "File"
	default:
		return "Empty"
	}
}

// Content is one classified clipboard representation.
type Content interface {
	Kind() Kind
	sealed()
}

// Image is a decoded raster image.
type Image struct {
	Bitmap image.Image
}

// Text is plain text.
type Text struct {
	Value string
}

// RTF is a rich-text payload.
type RTF struct {
	data []byte
}

// PDF is an opaque PDF document.
type PDF struct {
	data []byte
}

// File is a single filesystem reference.
type File struct {
	Path string
}

// MultipleFiles is an ordered list of filesystem references.
type MultipleFiles struct {
	paths []string
}

// Empty means nothing recognised was on the clipboard.
type Empty struct{}

func NewImage(img image.Image) Image { return Image{Bitmap: img} }
func NewText(s string) Text          { return Text{Value: s} }
func NewRTF(b []byte) RTF            { return RTF{data: slices.Clone(b)} }
func NewPDF(b []byte) PDF            { return PDF{data: slices.Clone(b)} }
func NewFile(path string) File       { return File{Path: filepath.Clean(path)} }

// NewFiles returns File for a single path and MultipleFiles otherwise.
// An empty list yields Empty.
func NewFiles(paths []string) Content {
	switch len(paths) {
	case 0:
		return Empty{}
	case 1:
		return NewFile(paths[0])
	}
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.Clean(p)
	}
	return MultipleFiles{paths: out}
}

// Data returns a copy of the RTF bytes.
func (r RTF) Data() []byte { return slices.Clone(r.data) }

// Data returns a copy of the PDF bytes.
func (p PDF) Data() []byte { return slices.Clone(p.data) }

// Paths returns a copy of the referenced paths, in clipboard order.
func (m MultipleFiles) Paths() []string { return slices.Clone(m.paths) }

func (Image) Kind() Kind         { return KindImage }
func (Text) Kind() Kind          { return KindText }
func (RTF) Kind() Kind           { return KindRTF }
func (PDF) Kind() Kind           { return KindPDF }
func (File) Kind() Kind          { return KindFile }
func (MultipleFiles) Kind() Kind { return KindMultipleFiles }
func (Empty) Kind() Kind         { return KindEmpty }

func (Image) sealed()         {}
func (Text) sealed()          {}
func (RTF) sealed()           {}
func (PDF) sealed()           {}
func (File) sealed()          {}
func (MultipleFiles) sealed() {}
func (Empty) sealed()         {}

// SourcePaths returns the filesystem references held by c, or nil when c
// carries inline data.
func SourcePaths(c Content) []string {
	switch v := c.(type) {
	case File:
		return []string{v.Path}
	case MultipleFiles:
		return v.Paths()
	default:
		return nil
	}
}

// Snapshot is a point-in-time classified clipboard value. Snapshots are never
// mutated after the classifier publishes them.
type Snapshot struct {
	Content     Content
	Seq         uint64
	ChangeCount int64
	CapturedAt  time.Time
	Placeholder bool
}

// Kind is shorthand for s.Content.Kind(), tolerating a zero Snapshot.
func (s Snapshot) Kind() Kind {
	if s.Content == nil {
		return KindEmpty
	}
	return s.Content.Kind()
}
