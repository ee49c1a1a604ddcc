//go:build !darwin

package notify

import "log/slog"

func platformPoster(log *slog.Logger) Poster { return LogPoster{Log: log} }
