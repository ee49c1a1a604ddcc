//go:build darwin

package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
)

type osascriptPoster struct{}

func platformPoster(*slog.Logger) Poster { return osascriptPoster{} }

func (osascriptPoster) Post(ctx context.Context, title, body string) error {
	script := fmt.Sprintf("display notification %s with title %s", strconv.Quote(body), strconv.Quote(title))
	if err := exec.CommandContext(ctx, "osascript", "-e", script).Run(); err != nil {
		return fmt.Errorf("osascript: %w", err)
	}
	return nil
}
