package ipc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/clipsave/internal/message"
	"go.klb.dev/clipsave/internal/saveerr"
)

type fakeHandler struct {
	saveErr error
	format  chan string
	resets  int
	cleared bool
}

func (f *fakeHandler) Save(_ context.Context, format string) (string, error) {
	f.format <- format
	if f.saveErr != nil {
		return "", f.saveErr
	}
	return "/out/Image_20240309_140507.png", nil
}

func (f *fakeHandler) Status(context.Context) (*message.Status, error) {
	return &message.Status{Monitoring: true, Kind: "Image", Seq: 4}, nil
}

func (f *fakeHandler) Reset(context.Context) error {
	f.resets++
	return nil
}

func (f *fakeHandler) ClearRecent(context.Context) error {
	f.cleared = true
	return nil
}

// socket returns a short socket path; sun_path is limited to ~104 bytes.
func socket(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "cs")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return filepath.Join(dir, "s")
}

func serve(t *testing.T, h Handler) string {
	t.Helper()
	path := socket(t)
	ln, err := Listen(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, ln, h, nil) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
	return path
}

func TestSocketPathOverride(t *testing.T) {
	t.Setenv("CLIPSAVE_SOCKET", "/tmp/custom.sock")
	assert.Equal(t, "/tmp/custom.sock", SocketPath())

	t.Setenv("CLIPSAVE_SOCKET", "")
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	assert.Equal(t, "/run/user/1000/clipsave.sock", SocketPath())
}

func TestListenOwnerOnly(t *testing.T) {
	path := serve(t, &fakeHandler{format: make(chan string, 1)})

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())
	assert.True(t, IsRunning(path))

	_, err = Listen(path)
	assert.Error(t, err, "second daemon on the same socket")
}

func TestListenReplacesStaleSocket(t *testing.T) {
	path := socket(t)
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	assert.False(t, IsRunning(path))

	ln, err := Listen(path)
	require.NoError(t, err)
	assert.NoError(t, ln.Close())
}

func TestCallSave(t *testing.T) {
	h := &fakeHandler{format: make(chan string, 1)}
	path := serve(t, h)

	req := message.NewRequest(message.TypeSave)
	req.Format = "jpg"
	resp, err := Call(context.Background(), path, req)
	require.NoError(t, err)
	assert.Equal(t, message.TypeResult, resp.Type)
	assert.Equal(t, req.ID, resp.ID)
	assert.Equal(t, "/out/Image_20240309_140507.png", resp.Path)
	assert.Equal(t, "jpg", <-h.format)
}

func TestCallCarriesSentinel(t *testing.T) {
	h := &fakeHandler{
		format:  make(chan string, 1),
		saveErr: fmt.Errorf("resolve: %w", saveerr.ErrAccessDenied),
	}
	path := serve(t, h)

	_, err := Call(context.Background(), path, message.NewRequest(message.TypeSave))
	require.Error(t, err)
	assert.ErrorIs(t, err, saveerr.ErrAccessDenied)
	assert.Equal(t, "resolve: access denied to save location", err.Error())
}

func TestCallStatusAndReset(t *testing.T) {
	h := &fakeHandler{format: make(chan string, 1)}
	path := serve(t, h)

	resp, err := Call(context.Background(), path, message.NewRequest(message.TypeStatus))
	require.NoError(t, err)
	require.NotNil(t, resp.Status)
	assert.True(t, resp.Status.Monitoring)
	assert.Equal(t, "Image", resp.Status.Kind)

	_, err = Call(context.Background(), path, message.NewRequest(message.TypeReset))
	require.NoError(t, err)
	assert.Equal(t, 1, h.resets)

	_, err = Call(context.Background(), path, message.NewRequest(message.TypeClearRecent))
	require.NoError(t, err)
	assert.True(t, h.cleared)
}

func TestCallUnknownType(t *testing.T) {
	path := serve(t, &fakeHandler{format: make(chan string, 1)})

	_, err := Call(context.Background(), path, message.NewRequest("BOGUS"))
	assert.ErrorContains(t, err, "unknown request type")
}

func TestCallNoDaemon(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := Call(ctx, socket(t), message.NewRequest(message.TypeStatus))
	assert.Error(t, err)
	assert.False(t, errors.Is(err, saveerr.ErrUserCancelled))
}

type blockingHandler struct {
	fakeHandler
	started   chan struct{}
	abandoned chan struct{}
}

func (b *blockingHandler) Save(ctx context.Context, _ string) (string, error) {
	close(b.started)
	<-ctx.Done()
	close(b.abandoned)
	return "", ctx.Err()
}

// A client that gives up cancels the daemon-side request.
func TestCallAbandonedCancelsHandler(t *testing.T) {
	h := &blockingHandler{started: make(chan struct{}), abandoned: make(chan struct{})}
	path := serve(t, h)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err := Call(ctx, path, message.NewRequest(message.TypeSave))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	select {
	case <-h.started:
	default:
		t.Fatal("save never reached the handler")
	}
	select {
	case <-h.abandoned:
	case <-time.After(2 * time.Second):
		t.Fatal("handler still running after the client hung up")
	}
}
