// Package clip provides a unified read interface to the system clipboard
// across platforms. Build constraints select the appropriate implementation:
//
//	clip_darwin.go   — macOS via golang.design/x/clipboard + cgo NSPasteboard
//	clip_linux.go    — Linux via golang.design/x/clipboard, counter from content digests
//	clip_other.go    — headless / unsupported stub
package clip

// Reader exposes the clipboard as a change counter plus typed representations.
// Each accessor returns nil (or false) when the representation is absent.
type Reader interface {
	// ChangeCount returns a counter that increases every time the clipboard's
	// backing store changes. It never decreases.
	ChangeCount() int64

	// Image returns an encoded raster image (PNG or TIFF).
	Image() []byte

	// PDF returns raw PDF document bytes.
	PDF() []byte

	// RTF returns a rich-text payload.
	RTF() []byte

	// Text returns the plain-text representation.
	Text() (string, bool)

	// Files returns the file references on the clipboard, in order.
	Files() []string
}

// Backend is the interface that all platform clipboard implementations satisfy.
type Backend interface {
	Reader

	// Name returns a human-readable name for the backend.
	Name() string

	// Relinquish drops this process's ownership registration on the
	// clipboard. On macOS this declares an empty type list, which clears the
	// current contents and bumps the change count.
	Relinquish() error

	// Close releases any resources held by the backend.
	Close()
}
