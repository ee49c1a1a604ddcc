package save

import (
	"archive/zip"
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/clipsave/internal/archive"
	"go.klb.dev/clipsave/internal/codec"
	"go.klb.dev/clipsave/internal/content"
	"go.klb.dev/clipsave/internal/dest"
	"go.klb.dev/clipsave/internal/hub"
	"go.klb.dev/clipsave/internal/preview"
	"go.klb.dev/clipsave/internal/prefs"
	"go.klb.dev/clipsave/internal/saveerr"
)

var now = time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)

const stamp = "20240309_140507"

type fakeFinder struct{ dir string }

func (f fakeFinder) ActiveFolder(context.Context) (string, error) {
	if f.dir == "" {
		return "", dest.ErrNoActiveFolder
	}
	return f.dir, nil
}

type viewer struct {
	outcome preview.Outcome
	edit    []byte
	opened  int
}

type viewerSession struct {
	v    *viewer
	path string
}

func (v *viewer) Open(_ context.Context, path string, _ preview.Category) (preview.Session, error) {
	v.opened++
	return viewerSession{v: v, path: path}, nil
}

func (s viewerSession) Wait(context.Context) (preview.Outcome, error) {
	if s.v.edit != nil {
		if err := os.WriteFile(s.path, s.v.edit, 0o600); err != nil {
			return preview.OutcomeCancel, err
		}
	}
	return s.v.outcome, nil
}

func (viewerSession) Close() error { return nil }

type scripted struct {
	choice Choice
	err    error
	got    Proposal
}

func (c *scripted) Choose(_ context.Context, p Proposal) (Choice, error) {
	c.got = p
	return c.choice, c.err
}

type env struct {
	o        *Orchestrator
	v        *viper.Viper
	store    *prefs.Store
	fallback string
	temp     string
	finder   *fakeFinder
	viewer   *viewer
	chooser  *scripted
	events   *hub.Chan
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		v:        viper.New(),
		fallback: t.TempDir(),
		temp:     t.TempDir(),
		finder:   &fakeFinder{},
		viewer:   &viewer{},
		chooser:  &scripted{},
		events:   hub.NewChan("test", 16),
	}
	e.store = prefs.New(e.v, nil)
	e.v.Set(prefs.KeyFallbackDir, e.fallback)
	e.v.Set(prefs.KeyTempDir, e.temp)

	h := hub.New(nil)
	h.Register(e.events)

	e.o = New(Deps{
		Codec:    &codec.Set{},
		Archive:  archive.New(nil),
		Resolver: &dest.Resolver{Finder: e.finder, Bookmarks: dest.PathBookmarks{}},
		Preview:  &preview.Coordinator{Launcher: e.viewer},
		Prefs:    e.store,
		Chooser:  e.chooser,
		Hub:      h,
		Now:      func() time.Time { return now },
	})
	return e
}

func (e *env) drain() []hub.Event {
	var out []hub.Event
	for {
		select {
		case ev := <-e.events.C():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func snap(c content.Content) content.Snapshot { return content.Snapshot{Content: c, Seq: 2} }

func files(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, en := range entries {
		names = append(names, en.Name())
	}
	sort.Strings(names)
	return names
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func sources(t *testing.T) []string {
	t.Helper()
	dir := t.TempDir()
	a := filepath.Join(dir, "1.png")
	b := filepath.Join(dir, "2.png")
	require.NoError(t, os.WriteFile(a, []byte("one"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("two"), 0o644))
	return []string{a, b}
}

func TestQuickSaveText(t *testing.T) {
	e := newEnv(t)

	path, err := e.o.SaveDirect(context.Background(), snap(content.NewText("Hello")), content.FormatTXT)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(e.fallback, "Text_"+stamp+".txt"), path)
	assert.Equal(t, "Hello", readFile(t, path))
	assert.Equal(t, []string{"Text_" + stamp + ".txt"}, files(t, e.fallback))

	evs := e.drain()
	require.Len(t, evs, 1)
	assert.Equal(t, hub.TypeSaveCompleted, evs[0].Type)
	assert.Equal(t, path, evs[0].Path)
}

func TestQuickSaveExplicitFormatBecomesDefault(t *testing.T) {
	e := newEnv(t)

	path, err := e.o.SaveDirect(context.Background(), snap(content.NewText("# hi")), content.FormatMD)
	require.NoError(t, err)
	assert.Equal(t, ".md", filepath.Ext(path))

	p, err := e.store.Load()
	require.NoError(t, err)
	assert.Equal(t, content.FormatMD, p.Format(content.KindText))

	path, err = e.o.SaveDirect(context.Background(), snap(content.NewText("again")), "")
	require.NoError(t, err)
	assert.Equal(t, "Text_"+stamp+" (2).md", filepath.Base(path))
}

// Saves within the same second never overwrite an earlier file.
func TestSameSecondSavesAreNumbered(t *testing.T) {
	e := newEnv(t)

	var paths []string
	for _, body := range []string{"one", "two", "three"} {
		path, err := e.o.SaveDirect(context.Background(), snap(content.NewText(body)), content.FormatTXT)
		require.NoError(t, err)
		paths = append(paths, path)
	}

	name := "Text_" + stamp
	assert.Equal(t, []string{name + " (2).txt", name + " (3).txt", name + ".txt"}, files(t, e.fallback))
	assert.Equal(t, "one", readFile(t, paths[0]))
	assert.Equal(t, "two", readFile(t, paths[1]))
	assert.Equal(t, "three", readFile(t, paths[2]))
	assert.Equal(t, name+" (3).txt", filepath.Base(paths[2]))
}

func TestMultipleFilesWithoutCompression(t *testing.T) {
	e := newEnv(t)

	path, err := e.o.SaveDirect(context.Background(), snap(content.NewFiles(sources(t))), "")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(e.fallback, "File_"+stamp), path)
	assert.Equal(t, []string{"1.png", "2.png"}, files(t, path))
}

func TestMultipleFilesCompressed(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.store.SetCompress(true))

	path, err := e.o.SaveDirect(context.Background(), snap(content.NewFiles(sources(t))), "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(e.fallback, "File_"+stamp+".zip"), path)

	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"1.png", "2.png"}, names)
}

func TestSingleFileKeepsExtension(t *testing.T) {
	e := newEnv(t)
	src := sources(t)[0]

	path, err := e.o.SaveDirect(context.Background(), snap(content.NewFile(src)), "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(e.fallback, "File_"+stamp+".png"), path)
	assert.Equal(t, "one", readFile(t, path))
}

func testImage() image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(1, 1, color.NRGBA{G: 255, A: 255})
	return img
}

func TestCompressedImageIsZipped(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.store.SetCompress(true))

	path, err := e.o.SaveDirect(context.Background(), snap(content.NewImage(testImage())), content.FormatPNG)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(e.fallback, "Image_"+stamp+".zip"), path)

	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()
	require.Len(t, zr.File, 1)
	assert.Equal(t, "Image_"+stamp+".png", zr.File[0].Name)

	assert.Empty(t, files(t, e.temp), "staging area removed")
}

func TestHEICUnavailableWritesNothing(t *testing.T) {
	e := newEnv(t)

	_, err := e.o.SaveDirect(context.Background(), snap(content.NewImage(testImage())), content.FormatHEIC)
	assert.ErrorIs(t, err, saveerr.ErrFormatUnavailable)
	assert.Empty(t, files(t, e.fallback))

	evs := e.drain()
	require.Len(t, evs, 1)
	assert.Equal(t, hub.TypeSaveFailed, evs[0].Type)
	assert.ErrorIs(t, evs[0].Err, saveerr.ErrFormatUnavailable)

	p, err := e.store.Load()
	require.NoError(t, err)
	assert.Equal(t, content.FormatPNG, p.Format(content.KindImage), "failed save does not change the default")
}

func TestEmptyAndPlaceholderAreInvalidData(t *testing.T) {
	e := newEnv(t)

	_, err := e.o.SaveDirect(context.Background(), snap(content.Empty{}), "")
	assert.ErrorIs(t, err, saveerr.ErrInvalidData)

	placeholder := content.Snapshot{Content: content.NewText("welcome"), Placeholder: true}
	_, err = e.o.SaveDirect(context.Background(), placeholder, "")
	assert.ErrorIs(t, err, saveerr.ErrInvalidData)

	_, err = e.o.SaveInteractive(context.Background(), content.Snapshot{})
	assert.ErrorIs(t, err, saveerr.ErrInvalidData)
}

func TestActiveWindowFolderWins(t *testing.T) {
	e := newEnv(t)
	active, marked := t.TempDir(), t.TempDir()
	e.finder.dir = active
	e.v.Set(prefs.KeyUseActiveWindow, true)
	bm, err := dest.PathBookmarks{}.Create(marked)
	require.NoError(t, err)
	require.NoError(t, e.store.SetBookmark(bm))

	path, err := e.o.SaveDirect(context.Background(), snap(content.NewText("x")), "")
	require.NoError(t, err)
	assert.Equal(t, active, filepath.Dir(path))

	e.v.Set(prefs.KeyUseActiveWindow, false)
	path, err = e.o.SaveDirect(context.Background(), snap(content.NewText("x")), "")
	require.NoError(t, err)
	assert.Equal(t, marked, filepath.Dir(path))
}

func TestPreviewCommitSavesEditedContent(t *testing.T) {
	e := newEnv(t)
	e.v.Set(prefs.KeyPreview, true)
	e.viewer.outcome = preview.OutcomeCommit
	e.viewer.edit = []byte("Hello, edited")

	path, err := e.o.SaveDirect(context.Background(), snap(content.NewText("Hello")), "")
	require.NoError(t, err)
	assert.Equal(t, "Hello, edited", readFile(t, path))
	assert.Equal(t, 1, e.viewer.opened)
	assert.Empty(t, files(t, e.temp))
}

func TestInteractivePreviewCancelLeavesNothing(t *testing.T) {
	e := newEnv(t)
	out := t.TempDir()
	e.viewer.outcome = preview.OutcomeCancel
	e.chooser.choice = Choice{Dir: out, Name: "notes", Format: content.FormatRTF, Preview: true}

	_, err := e.o.SaveInteractive(context.Background(), snap(content.NewText("Hello")))
	assert.ErrorIs(t, err, saveerr.ErrUserCancelled)

	assert.Empty(t, files(t, out))
	assert.Empty(t, files(t, e.temp))
	assert.Empty(t, e.drain(), "cancellation publishes nothing")
}

func TestInteractiveSaveUsesChoiceAndWritesBackCompress(t *testing.T) {
	e := newEnv(t)
	out := t.TempDir()
	e.chooser.choice = Choice{Dir: out, Name: "notes.html", Format: content.FormatHTML}
	require.NoError(t, e.store.SetCompress(true))

	path, err := e.o.SaveInteractive(context.Background(), snap(content.NewText("Hello")))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "notes.html"), path)
	assert.True(t, strings.Contains(readFile(t, path), "<p>Hello</p>"))

	got := e.chooser.got
	assert.Equal(t, content.KindText, got.Kind)
	assert.Equal(t, content.FormatTXT, got.Format)
	assert.Equal(t, e.fallback, got.Dir)
	assert.Equal(t, "Text_"+stamp, got.Name)
	assert.True(t, got.Compress)
	assert.Equal(t, content.TextFormats, got.Formats)

	p, err := e.store.Load()
	require.NoError(t, err)
	assert.False(t, p.Compress)
}

func TestInteractiveDismissal(t *testing.T) {
	e := newEnv(t)
	e.chooser.err = saveerr.ErrUserCancelled

	_, err := e.o.SaveInteractive(context.Background(), snap(content.NewText("Hello")))
	assert.ErrorIs(t, err, saveerr.ErrUserCancelled)
	assert.Empty(t, e.drain())
	assert.Empty(t, files(t, e.fallback))
}

func TestInteractiveRejectsBadFolder(t *testing.T) {
	e := newEnv(t)
	e.chooser.choice = Choice{Dir: filepath.Join(t.TempDir(), "missing"), Name: "x", Format: content.FormatTXT}

	_, err := e.o.SaveInteractive(context.Background(), snap(content.NewText("Hello")))
	assert.ErrorIs(t, err, saveerr.ErrInvalidSaveLocation)
}

func TestPromptChooser(t *testing.T) {
	dir := t.TempDir()
	in := strings.NewReader("rtf\n" + dir + "\nmy notes\ny\n\n")
	var out strings.Builder

	c := PromptChooser{In: in, Out: &out}
	got, err := c.Choose(context.Background(), Proposal{
		Kind: content.KindText, Formats: content.TextFormats, Format: content.FormatTXT,
		Dir: "/elsewhere", Name: "Text_" + stamp,
	})
	require.NoError(t, err)
	assert.Equal(t, Choice{Dir: dir, Name: "my notes", Format: content.FormatRTF, Compress: true}, got)
	assert.Contains(t, out.String(), "Format [txt]")
}

func TestPromptChooserCancel(t *testing.T) {
	for _, input := range []string{"q\n", ""} {
		c := PromptChooser{In: strings.NewReader(input), Out: &strings.Builder{}}
		_, err := c.Choose(context.Background(), Proposal{Kind: content.KindPDF, Formats: []content.Format{content.FormatPDF}, Format: content.FormatPDF, Dir: "/x", Name: "d"})
		assert.ErrorIs(t, err, saveerr.ErrUserCancelled, "input %q", input)
	}
}
