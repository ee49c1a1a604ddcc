// Package cliptest provides an in-memory clip.Backend for tests.
package cliptest

import (
	"slices"
	"sync"
)

// Backend is a scriptable clipboard. Every Set* call bumps the change counter,
// just like a real copy operation does.
type Backend struct {
	mu         sync.Mutex
	count      int64
	image      []byte
	pdf        []byte
	rtf        []byte
	text       *string
	files      []string
	relinquish int
	reads      int
	closed     bool
}

// New returns an empty fake clipboard with the counter at start.
func New(start int64) *Backend { return &Backend{count: start} }

// Clear drops every representation and bumps the counter.
func (b *Backend) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.image, b.pdf, b.rtf, b.text, b.files = nil, nil, nil, nil, nil
	b.count++
}

// Set replaces the clipboard with the given representations.
func (b *Backend) Set(r Reps) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.image = slices.Clone(r.Image)
	b.pdf = slices.Clone(r.PDF)
	b.rtf = slices.Clone(r.RTF)
	b.text = nil
	if r.Text != nil {
		s := *r.Text
		b.text = &s
	}
	b.files = slices.Clone(r.Files)
	b.count++
}

// SetText is shorthand for a clipboard holding only plain text.
func (b *Backend) SetText(s string) { b.Set(Reps{Text: &s}) }

// Bump advances the counter without changing contents.
func (b *Backend) Bump() {
	b.mu.Lock()
	b.count++
	b.mu.Unlock()
}

// Reps lists the representations a fake copy places on the clipboard.
type Reps struct {
	Image []byte
	PDF   []byte
	RTF   []byte
	Text  *string
	Files []string
}

// Str returns a pointer to s, for Reps.Text.
func Str(s string) *string { return &s }

func (b *Backend) Name() string { return "fake" }

func (b *Backend) ChangeCount() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

func (b *Backend) Image() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reads++
	return slices.Clone(b.image)
}

func (b *Backend) PDF() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.pdf)
}

func (b *Backend) RTF() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.rtf)
}

func (b *Backend) Text() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.text == nil {
		return "", false
	}
	return *b.text, true
}

func (b *Backend) Files() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.files)
}

// Relinquish mimics NSPasteboard declareTypes, which bumps the counter.
func (b *Backend) Relinquish() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.relinquish++
	b.count++
	return nil
}

func (b *Backend) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
}

// Relinquished returns how many times Relinquish was called.
func (b *Backend) Relinquished() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.relinquish
}

// Reads returns how many classification passes touched the clipboard.
func (b *Backend) Reads() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reads
}
