// Package ipc is the local Unix-socket channel between the clipsave CLI and
// a running `clipsave watch` daemon.
//
// A client dials, writes one request, reads one response and hangs up.
// CLI sub-commands probe for the socket and fall back to running the
// pipeline in-process when no daemon answers.
package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"

	"go.klb.dev/clipsave/internal/message"
	"go.klb.dev/clipsave/internal/wire"
)

// requestTimeout bounds how long the daemon waits for a client's request
// line after accepting.
const requestTimeout = 5 * time.Second

// SocketPath returns the IPC socket path.
//
//   - $CLIPSAVE_SOCKET when set
//   - $XDG_RUNTIME_DIR/clipsave.sock on Linux sessions that have one
//   - $TMPDIR/clipsave.sock otherwise (per-user on macOS)
func SocketPath() string {
	if s := os.Getenv("CLIPSAVE_SOCKET"); s != "" {
		return s
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "clipsave.sock")
	}
	return filepath.Join(os.TempDir(), "clipsave.sock")
}

// IsRunning reports whether a daemon appears to be listening on path. It
// does a cheap dial-and-close; no data is exchanged.
func IsRunning(path string) bool {
	c, err := net.DialTimeout("unix", path, time.Second)
	if err != nil {
		return false
	}
	_ = c.Close()
	return true
}

// Listen creates a listener on path, removing a stale socket from a crashed
// run first. The socket is restricted to its owner.
func Listen(path string) (net.Listener, error) {
	if IsRunning(path) {
		return nil, fmt.Errorf("ipc: a daemon is already listening on %s", path)
	}
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, 0o600); err != nil {
		_ = ln.Close()
		return nil, err
	}
	return ln, nil
}

// Handler answers daemon requests.
type Handler interface {
	Save(ctx context.Context, format string) (string, error)
	Status(ctx context.Context) (*message.Status, error)
	Reset(ctx context.Context) error
	ClearRecent(ctx context.Context) error
}

// Serve accepts connections on ln until ctx is done, handling each on its
// own goroutine. It closes ln on return. A request's context is cancelled
// when its client disconnects before the reply.
func Serve(ctx context.Context, ln net.Listener, h Handler, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "ipc")

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Error("accept failed", "err", err)
			continue
		}
		go handleConn(ctx, conn, h, log)
	}
}

func handleConn(ctx context.Context, conn net.Conn, h Handler, log *slog.Logger) {
	wc := wire.New(conn)
	defer wc.Close()

	wc.SetReadDeadline(requestTimeout)
	req, err := wc.ReadMsg()
	if err != nil {
		log.Debug("bad request", "err", err)
		return
	}
	wc.SetReadDeadline(0)
	log.Debug("request", "type", req.Type, "id", req.ID)

	// A client sends nothing after its request, so any read returning
	// means it hung up and the request is abandoned.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		_, _ = wc.ReadMsg()
		cancel()
	}()

	if err := wc.WriteMsg(dispatch(ctx, req, h)); err != nil {
		log.Debug("reply failed", "id", req.ID, "err", err)
	}
}

func dispatch(ctx context.Context, req *message.Message, h Handler) *message.Message {
	switch req.Type {
	case message.TypeSave:
		path, err := h.Save(ctx, req.Format)
		if err != nil {
			return req.ReplyErr(err)
		}
		resp := req.Reply(message.TypeResult)
		resp.Path = path
		return resp

	case message.TypeStatus:
		st, err := h.Status(ctx)
		if err != nil {
			return req.ReplyErr(err)
		}
		resp := req.Reply(message.TypeStatusResponse)
		resp.Status = st
		return resp

	case message.TypeReset:
		if err := h.Reset(ctx); err != nil {
			return req.ReplyErr(err)
		}
		return req.Reply(message.TypeResult)

	case message.TypeClearRecent:
		if err := h.ClearRecent(ctx); err != nil {
			return req.ReplyErr(err)
		}
		return req.Reply(message.TypeResult)

	default:
		return req.ReplyErr(fmt.Errorf("unknown request type %q", req.Type))
	}
}

// Call sends req to the daemon at path and waits for its response. An
// ERROR response is returned as the error it carries. A save can wait on a
// preview for as long as the user likes, so only ctx bounds the wait.
func Call(ctx context.Context, path string, req *message.Message) (*message.Message, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, err
	}
	wc := wire.New(conn)
	defer wc.Close()

	stop := context.AfterFunc(ctx, func() { _ = wc.Close() })
	defer stop()

	if err := wc.WriteMsg(req); err != nil {
		return nil, fmt.Errorf("send %s: %w", req.Type, err)
	}
	resp, err := wc.ReadMsg()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("read reply: %w", err)
	}
	if resp.ID != req.ID {
		return nil, fmt.Errorf("reply id %q does not match request %q", resp.ID, req.ID)
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return resp, nil
}
