package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipsave/internal/classifier"
	"go.klb.dev/clipsave/internal/clip"
	"go.klb.dev/clipsave/internal/content"
	"go.klb.dev/clipsave/internal/history"
	"go.klb.dev/clipsave/internal/hub"
	"go.klb.dev/clipsave/internal/ipc"
	"go.klb.dev/clipsave/internal/logging"
	"go.klb.dev/clipsave/internal/message"
	"go.klb.dev/clipsave/internal/save"
	"go.klb.dev/clipsave/internal/saveerr"
)

func newSaveCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save the current clipboard contents to a file",
		Long: `Saves whatever is on the clipboard, converted to the default format for
its kind (or --format), into the resolved save folder. The final path is
printed on stdout.

If a "clipsave watch" daemon is running the request is sent over its IPC
socket. Otherwise the clipboard is read once and saved from this process.
--interactive always runs here and asks for folder, name and format.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runSave(cmd, v) },
	}

	f := cmd.Flags()
	f.StringP("format", "f", "", "output format (png|jpg|tiff|gif|heic|txt|rtf|html|md); becomes the new default")
	f.BoolP("interactive", "i", false, "choose folder, name and format on the terminal")
	addSaveFlags(cmd)
	addSocketFlag(cmd)
	addConfigFlags(cmd)
	addLoggingFlags(cmd)

	return cmd
}

func runSave(cmd *cobra.Command, v *viper.Viper) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	format := v.GetString("format")
	interactive := v.GetBool("interactive")
	socket := v.GetString("socket")

	if !interactive && ipc.IsRunning(socket) {
		req := message.NewRequest(message.TypeSave)
		req.Format = format
		resp, err := ipc.Call(ctx, socket, req)
		if err != nil {
			return reportSave(cmd.OutOrStdout(), "", err)
		}
		return reportSave(cmd.OutOrStdout(), resp.Path, nil)
	}

	log := setupLogging(v)
	var chooser save.Chooser
	if interactive {
		if !logging.IsTTY(os.Stdin) {
			return errors.New("--interactive needs a terminal on stdin")
		}
		chooser = save.PromptChooser{In: os.Stdin, Out: os.Stderr}
	}

	path, err := saveOnce(ctx, v, chooser, log)
	return reportSave(cmd.OutOrStdout(), path, err)
}

// saveOnce classifies the clipboard and saves it from this process.
func saveOnce(ctx context.Context, v *viper.Viper, chooser save.Chooser, log *slog.Logger) (string, error) {
	store, err := openPrefs(v, log)
	if err != nil {
		return "", err
	}
	backend := clip.New()
	defer backend.Close()

	h := hub.New(log)
	snap := classifier.New(backend, h, classifier.Options{Logger: log}).Refresh()
	saver := newSaver(v, store, h, chooser, log)

	var path string
	if chooser != nil {
		path, err = saver.SaveInteractive(ctx, snap)
	} else {
		path, err = saver.SaveDirect(ctx, snap, content.ParseFormat(v.GetString("format")))
	}
	if err != nil {
		return "", err
	}
	recordSave(v, path, log)
	return path, nil
}

// recordSave adds path to the recent-files list. The daemon records its own
// saves through the hub; this covers saves made without one.
func recordSave(v *viper.Viper, path string, log *slog.Logger) {
	rec, err := openHistory(v, log)
	if err == nil {
		err = rec.Add(history.Entry{Path: path, SavedAt: time.Now()})
	}
	if err != nil {
		log.Warn("history not updated", "err", err)
	}
}

// reportSave prints the saved path. A cancelled save is not a failure.
func reportSave(w io.Writer, path string, err error) error {
	switch {
	case saveerr.Silent(err):
		fmt.Fprintln(os.Stderr, "save cancelled")
		return nil
	case err != nil:
		return err
	}
	fmt.Fprintln(w, path)
	return nil
}
