//go:build linux

package preview

import (
	"context"
	"fmt"
	"os/exec"
)

// xdgLauncher hands the file to the desktop's default application. There
// is no portable way to ask whether it is still open, so only a save or
// context cancellation ends the session.
type xdgLauncher struct{}

func platformLauncher() Launcher {
	if _, err := exec.LookPath("xdg-open"); err != nil {
		return nil
	}
	return xdgLauncher{}
}

func (xdgLauncher) Open(ctx context.Context, path string, _ Category) (Session, error) {
	s, err := newWatchSession(path, nil, nil)
	if err != nil {
		return nil, err
	}
	cmd := exec.CommandContext(ctx, "xdg-open", path)
	if err := cmd.Start(); err != nil {
		s.watcher.Close()
		return nil, fmt.Errorf("xdg-open: %w", err)
	}
	go func() { _ = cmd.Wait() }()
	return s, nil
}
