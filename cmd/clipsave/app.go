package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipsave/internal/archive"
	"go.klb.dev/clipsave/internal/codec"
	"go.klb.dev/clipsave/internal/dest"
	"go.klb.dev/clipsave/internal/history"
	"go.klb.dev/clipsave/internal/hub"
	"go.klb.dev/clipsave/internal/prefs"
	"go.klb.dev/clipsave/internal/preview"
	"go.klb.dev/clipsave/internal/save"
)

// addSaveFlags adds the flags shared by every command that runs the save
// pipeline in this process.
func addSaveFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Duration("preview-timeout", 0, "give up on an open preview after this long (0 waits forever)")
	f.String("history-file", defaultHistoryFile(), "recent-files list (YAML)")
	f.Int("history-size", history.DefaultSize, "number of recent files to keep")
}

func defaultHistoryFile() string {
	dir, err := userConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "history.yaml")
}

// newSaver builds the save orchestrator and its collaborators. chooser may
// be nil when no interactive save will run.
func newSaver(v *viper.Viper, store *prefs.Store, h *hub.Hub, chooser save.Chooser, log *slog.Logger) *save.Orchestrator {
	resolver := dest.NewResolver(log)
	resolver.OnRefresh = store.SetBookmark

	pv := preview.New("", log)
	pv.Timeout = v.GetDuration("preview-timeout")

	return save.New(save.Deps{
		Codec:    codec.New(),
		Archive:  archive.New(log),
		Resolver: resolver,
		Preview:  pv,
		Prefs:    store,
		Chooser:  chooser,
		Hub:      h,
		Now:      time.Now,
		Logger:   log,
	})
}

func openHistory(v *viper.Viper, log *slog.Logger) (*history.Recorder, error) {
	path := v.GetString("history-file")
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	return history.Open(path, v.GetInt("history-size"), log)
}
