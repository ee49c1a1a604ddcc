package main

import (
	"cmp"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipsave/internal/dest"
	"go.klb.dev/clipsave/internal/history"
	"go.klb.dev/clipsave/internal/ipc"
	"go.klb.dev/clipsave/internal/logging"
	"go.klb.dev/clipsave/internal/message"
	"go.klb.dev/clipsave/internal/prefs"
)

func newPrefsCmd() *cobra.Command {
	v := viper.New()
	bind := func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) }

	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change save preferences",
		Long: `Without a sub-command, prints the stored preferences and where saves
currently go. Edits to the config file apply to the next save; the daemon
does not need a restart.`,
		Args:    cobra.NoArgs,
		PreRunE: bind,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openPrefs(v, quietLogger())
			if err != nil {
				return err
			}
			p, err := store.Load()
			if err != nil {
				return err
			}
			printPrefs(cmd.OutOrStdout(), p, v.ConfigFileUsed())
			return nil
		},
	}
	addConfigFlags(cmd)

	setFolder := &cobra.Command{
		Use:     "set-folder DIR",
		Short:   "Save into DIR when no Finder window applies",
		Args:    cobra.ExactArgs(1),
		PreRunE: bind,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := dest.Check(args[0]); err != nil {
				return err
			}
			data, err := dest.PathBookmarks{}.Create(args[0])
			if err != nil {
				return err
			}
			store, err := openPrefs(v, quietLogger())
			if err != nil {
				return err
			}
			return store.SetBookmark(data)
		},
	}
	addConfigFlags(setFolder)

	clearFolder := &cobra.Command{
		Use:     "clear-folder",
		Short:   "Forget the custom save folder",
		Args:    cobra.NoArgs,
		PreRunE: bind,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openPrefs(v, quietLogger())
			if err != nil {
				return err
			}
			return store.SetBookmark(nil)
		},
	}
	addConfigFlags(clearFolder)

	reset := &cobra.Command{
		Use:     "reset",
		Short:   "Restore every preference to its default",
		Args:    cobra.NoArgs,
		PreRunE: bind,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openPrefs(v, quietLogger())
			if err != nil {
				return err
			}
			return store.Reset()
		},
	}
	addConfigFlags(reset)

	clearRecent := &cobra.Command{
		Use:     "clear-recent",
		Short:   "Empty the recent-files list",
		Args:    cobra.NoArgs,
		PreRunE: bind,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if socket := v.GetString("socket"); ipc.IsRunning(socket) {
				_, err := ipc.Call(cmd.Context(), socket, message.NewRequest(message.TypeClearRecent))
				return err
			}
			rec, err := openHistory(v, quietLogger())
			if err != nil {
				return err
			}
			return rec.Clear()
		},
	}
	clearRecent.Flags().String("history-file", defaultHistoryFile(), "recent-files list (YAML)")
	clearRecent.Flags().Int("history-size", history.DefaultSize, "number of recent files to keep")
	addSocketFlag(clearRecent)
	addConfigFlags(clearRecent)

	cmd.AddCommand(setFolder, clearFolder, reset, clearRecent)
	return cmd
}

func printPrefs(out io.Writer, p prefs.Preferences, file string) {
	if file == "" {
		file = "(none, defaults in use)"
	}
	folder := "-"
	if data := p.BookmarkData(); data != nil {
		path, stale, err := dest.PathBookmarks{}.Resolve(data)
		switch {
		case err != nil:
			folder = "unresolvable: " + err.Error()
		case stale:
			folder = path + " (moved)"
		default:
			folder = path
		}
	}

	w := tabwriter.NewWriter(out, 1, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Config file:\t%s\n", file)
	fmt.Fprintf(w, "Save folder:\t%s\n", folder)
	fmt.Fprintf(w, "Use Finder window:\t%t\n", p.UseActiveWindow)
	fmt.Fprintf(w, "Fallback folder:\t%s\n", orDash(p.FallbackDir))
	fmt.Fprintf(w, "Image format:\t%s\n", p.ImageFormat)
	fmt.Fprintf(w, "Text format:\t%s\n", p.TextFormat)
	fmt.Fprintf(w, "Compress:\t%t\n", p.Compress)
	fmt.Fprintf(w, "Preview:\t%t\n", p.Preview)
	fmt.Fprintf(w, "Temp dir:\t%s\n", orDash(p.TempDir))
	fmt.Fprintf(w, "Notifications:\t%t\n", p.Notifications)
	_ = w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// quietLogger keeps one-shot commands from logging to the terminal unless
// asked to via CLIPSAVE_LOG_LEVEL.
func quietLogger() *slog.Logger {
	return logging.New(os.Stderr, logging.Options{Level: cmp.Or(os.Getenv("CLIPSAVE_LOG_LEVEL"), "warn")})
}
