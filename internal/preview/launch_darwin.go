//go:build darwin

package preview

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

type appLauncher struct{}

func platformLauncher() Launcher { return appLauncher{} }

func appFor(cat Category) string {
	if cat == CategoryText {
		return "TextEdit"
	}
	return "Preview"
}

func (appLauncher) Open(ctx context.Context, path string, cat Category) (Session, error) {
	app := appFor(cat)
	name := filepath.Base(path)

	// Start watching before the viewer can touch the file.
	s, err := newWatchSession(path,
		func(ctx context.Context) (bool, error) { return documentOpen(ctx, app, name) },
		func() error { return closeDocument(app, name) },
	)
	if err != nil {
		return nil, err
	}
	if out, err := exec.CommandContext(ctx, "open", "-a", app, path).CombinedOutput(); err != nil {
		s.watcher.Close()
		return nil, fmt.Errorf("open -a %s: %w: %s", app, err, strings.TrimSpace(string(out)))
	}
	return s, nil
}

func documentOpen(ctx context.Context, app, name string) (bool, error) {
	script := fmt.Sprintf(`tell application "System Events"
	if not (exists process %q) then return "false"
end tell
tell application %q
	return ((count of (every document whose name is %q)) > 0) as text
end tell`, app, app, name)
	out, err := exec.CommandContext(ctx, "osascript", "-e", script).Output()
	if err != nil {
		return false, fmt.Errorf("osascript: %w", err)
	}
	return strings.TrimSpace(string(out)) == "true", nil
}

func closeDocument(app, name string) error {
	script := fmt.Sprintf(`tell application "System Events"
	if not (exists process %q) then return
end tell
tell application %q
	close (every document whose name is %q) saving no
end tell`, app, app, name)
	if out, err := exec.Command("osascript", "-e", script).CombinedOutput(); err != nil {
		return fmt.Errorf("osascript: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
