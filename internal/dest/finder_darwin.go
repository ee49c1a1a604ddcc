//go:build darwin

package dest

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

const finderScript = `tell application "Finder"
	if (count of Finder windows) is 0 then return ""
	try
		return POSIX path of (target of front Finder window as alias)
	on error
		return POSIX path of (desktop as alias)
	end try
end tell`

type finder struct{}

func platformFinder() FolderQuery { return finder{} }

func (finder) ActiveFolder(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, "osascript", "-e", finderScript).Output()
	if err != nil {
		return "", fmt.Errorf("osascript: %w", err)
	}
	dir := strings.TrimSpace(string(out))
	if dir == "" {
		return "", ErrNoActiveFolder
	}
	return dir, nil
}
