package preview

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/clipsave/internal/content"
	"go.klb.dev/clipsave/internal/saveerr"
)

// fakeSession plays a scripted user decision.
type fakeSession struct {
	path    string
	edit    []byte
	outcome Outcome
	err     error
	block   bool
	closed  int
}

func (s *fakeSession) Wait(ctx context.Context) (Outcome, error) {
	if s.block {
		<-ctx.Done()
		return OutcomeCancel, ctx.Err()
	}
	if s.edit != nil {
		if err := os.WriteFile(s.path, s.edit, 0o600); err != nil {
			return OutcomeCancel, err
		}
	}
	return s.outcome, s.err
}

func (s *fakeSession) Close() error {
	s.closed++
	return nil
}

type fakeLauncher struct {
	session *fakeSession
	err     error
	cat     Category
}

func (l *fakeLauncher) Open(_ context.Context, path string, cat Category) (Session, error) {
	if l.err != nil {
		return nil, l.err
	}
	l.cat = cat
	l.session.path = path
	return l.session, nil
}

func setup(t *testing.T, sess *fakeSession) (*Coordinator, *fakeLauncher, string) {
	t.Helper()
	l := &fakeLauncher{session: sess}
	c := &Coordinator{Launcher: l, TempDir: t.TempDir()}
	return c, l, t.TempDir()
}

func TestPrepareWritesUniqueTempFiles(t *testing.T) {
	c, _, _ := setup(t, &fakeSession{})
	a, err := c.Prepare([]byte("x"), "png")
	require.NoError(t, err)
	b, err := c.Prepare([]byte("x"), ".png")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Equal(t, c.TempDir, filepath.Dir(a))
	assert.Equal(t, ".png", filepath.Ext(b))
	got, err := os.ReadFile(a)
	require.NoError(t, err)
	assert.Equal(t, "x", string(got))
}

func TestCommitMovesEditedFile(t *testing.T) {
	sess := &fakeSession{edit: []byte("edited"), outcome: OutcomeCommit}
	c, l, out := setup(t, sess)

	tmp, err := c.Prepare([]byte("original"), "txt")
	require.NoError(t, err)
	dest := filepath.Join(out, "Text_x.txt")

	require.NoError(t, c.Await(context.Background(), tmp, CategoryText, dest))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "edited", string(got))
	assert.NoFileExists(t, tmp)
	assert.Equal(t, 1, sess.closed)
	assert.Equal(t, CategoryText, l.cat)
}

func TestCancelLeavesNothingBehind(t *testing.T) {
	sess := &fakeSession{outcome: OutcomeCancel}
	c, _, out := setup(t, sess)

	tmp, err := c.Prepare([]byte("x"), "png")
	require.NoError(t, err)
	dest := filepath.Join(out, "Image_x.png")

	err = c.Await(context.Background(), tmp, CategoryImage, dest)
	assert.ErrorIs(t, err, saveerr.ErrUserCancelled)
	assert.NoFileExists(t, tmp)
	assert.NoFileExists(t, dest)
	assert.Equal(t, 1, sess.closed)
}

func TestContextCancelIsUserCancel(t *testing.T) {
	sess := &fakeSession{block: true}
	c, _, out := setup(t, sess)
	c.Timeout = 10 * time.Millisecond

	tmp, err := c.Prepare([]byte("x"), "pdf")
	require.NoError(t, err)

	err = c.Await(context.Background(), tmp, CategoryDocument, filepath.Join(out, "d.pdf"))
	assert.ErrorIs(t, err, saveerr.ErrUserCancelled)
	assert.NoFileExists(t, tmp)
}

func TestAutomationFailuresArePreviewFailed(t *testing.T) {
	t.Run("launch", func(t *testing.T) {
		c, l, out := setup(t, &fakeSession{})
		l.err = errors.New("no such app")
		tmp, err := c.Prepare([]byte("x"), "png")
		require.NoError(t, err)

		err = c.Await(context.Background(), tmp, CategoryImage, filepath.Join(out, "i.png"))
		assert.ErrorIs(t, err, saveerr.ErrPreviewFailed)
		assert.NoFileExists(t, tmp)
	})
	t.Run("wait", func(t *testing.T) {
		sess := &fakeSession{err: errors.New("osascript: exit status 1")}
		c, _, out := setup(t, sess)
		tmp, err := c.Prepare([]byte("x"), "png")
		require.NoError(t, err)

		err = c.Await(context.Background(), tmp, CategoryImage, filepath.Join(out, "i.png"))
		assert.ErrorIs(t, err, saveerr.ErrPreviewFailed)
		assert.NoFileExists(t, filepath.Join(out, "i.png"))
		assert.Equal(t, 1, sess.closed)
	})
	t.Run("no viewer", func(t *testing.T) {
		c := &Coordinator{TempDir: t.TempDir()}
		tmp, err := c.Prepare([]byte("x"), "png")
		require.NoError(t, err)
		assert.ErrorIs(t, c.Await(context.Background(), tmp, CategoryImage, "/nowhere"), saveerr.ErrPreviewFailed)
		assert.NoFileExists(t, tmp)
	})
}

func TestCategoryFor(t *testing.T) {
	assert.Equal(t, CategoryImage, CategoryFor(content.KindImage))
	assert.Equal(t, CategoryDocument, CategoryFor(content.KindPDF))
	assert.Equal(t, CategoryText, CategoryFor(content.KindText))
	assert.Equal(t, CategoryText, CategoryFor(content.KindRTF))
}

func TestWatchSessionCommitsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0o600))

	s, err := newWatchSession(path, nil, nil)
	require.NoError(t, err)
	defer s.Close()

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = os.WriteFile(path, []byte("b"), 0o600)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	outcome, err := s.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCommit, outcome)
}

func TestWatchSessionIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0o600))

	s, err := newWatchSession(path, nil, nil)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o600))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = s.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWatchSessionCancelsWhenViewerCloses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.png")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0o600))

	var polls atomic.Int32
	var closed atomic.Bool
	isOpen := func(context.Context) (bool, error) {
		// Open for two polls, then the user closes the window.
		return polls.Add(1) <= 2, nil
	}
	s, err := newWatchSession(path, isOpen, func() error { closed.Store(true); return nil })
	require.NoError(t, err)
	s.openPoll = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	outcome, err := s.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCancel, outcome)

	require.NoError(t, s.Close())
	assert.True(t, closed.Load())
}

func TestWatchSessionWaitsForSlowLaunch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.png")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0o600))

	s, err := newWatchSession(path, func(context.Context) (bool, error) { return false, nil }, nil)
	require.NoError(t, err)
	defer s.Close()
	s.openPoll = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = s.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded, "absence inside the launch grace is not a cancel")
}

func TestWatchSessionCommitsAfterWritesSettle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	s, err := newWatchSession(path, nil, nil)
	require.NoError(t, err)
	defer s.Close()
	s.quiet = 150 * time.Millisecond

	lastWrite := make(chan time.Time, 1)
	go func() {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0o600)
		if err != nil {
			return
		}
		defer f.Close()
		_, _ = f.Write([]byte("first half "))
		time.Sleep(50 * time.Millisecond)
		_, _ = f.Write([]byte("second half"))
		lastWrite <- time.Now()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	outcome, err := s.Wait(ctx)
	committed := time.Now()
	require.NoError(t, err)
	assert.Equal(t, OutcomeCommit, outcome)

	last := <-lastWrite
	assert.True(t, committed.After(last), "commit reported before the last chunk")
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first half second half", string(b))
}
