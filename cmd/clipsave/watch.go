package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"go.klb.dev/clipsave/internal/classifier"
	"go.klb.dev/clipsave/internal/clip"
	"go.klb.dev/clipsave/internal/content"
	"go.klb.dev/clipsave/internal/history"
	"go.klb.dev/clipsave/internal/hub"
	"go.klb.dev/clipsave/internal/ipc"
	"go.klb.dev/clipsave/internal/message"
	"go.klb.dev/clipsave/internal/notify"
	"go.klb.dev/clipsave/internal/prefs"
	"go.klb.dev/clipsave/internal/save"
)

// statusRecent is how many recent files a status reply lists.
const statusRecent = 5

func newWatchCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Monitor the clipboard and serve save requests",
		Long: `Runs the clipsave daemon: polls the system clipboard, keeps the current
classified snapshot, and saves it whenever "clipsave save" asks over the
IPC socket. Completed saves are added to the recent-files list; failures
raise a desktop notification unless notifications are turned off.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runWatch(cmd.Context(), v) },
	}

	f := cmd.Flags()
	f.Duration("poll-interval", classifier.DefaultPollInterval, "clipboard change counter poll interval")
	f.Duration("settle-delay", classifier.DefaultSettleDelay, "wait after a change before reading the clipboard")
	f.Bool("notify-success", true, "also notify on completed saves")
	addSaveFlags(cmd)
	addSocketFlag(cmd)
	addConfigFlags(cmd)
	addLoggingFlags(cmd)

	return cmd
}

func runWatch(ctx context.Context, v *viper.Viper) error {
	log := setupLogging(v)

	store, err := openPrefs(v, log)
	if err != nil {
		return err
	}
	if _, err := store.Load(); err != nil {
		return err
	}
	rec, err := openHistory(v, log)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}

	backend := clip.New()
	defer backend.Close()

	h := hub.New(log)

	mon := classifier.New(backend, h, classifier.Options{
		PollInterval: v.GetDuration("poll-interval"),
		SettleDelay:  v.GetDuration("settle-delay"),
		Logger:       log,
	})

	n := notify.New(log)
	n.Successes = v.GetBool("notify-success")
	n.Enabled = notificationsEnabled(store, log)

	d := &daemon{
		mon:     mon,
		saver:   newSaver(v, store, h, nil, log),
		backend: backend,
		hub:     h,
		history: rec,
	}

	socket := v.GetString("socket")
	ln, err := ipc.Listen(socket)
	if err != nil {
		return fmt.Errorf("ipc: %w", err)
	}
	log.Info("IPC socket listening", "path", socket)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return rec.Run(ctx, h) })
	g.Go(func() error { return n.Run(ctx, h) })
	g.Go(func() error { return ipc.Serve(ctx, ln, d, log) })

	if err := mon.Start(ctx); err != nil {
		stop()
		_ = g.Wait()
		return err
	}
	g.Go(func() error {
		<-ctx.Done()
		mon.Stop()
		return nil
	})

	err = g.Wait()
	_ = os.Remove(socket)
	log.Info("clipsave stopped")
	return err
}

// notificationsEnabled reads the preference per event. An unreadable
// config keeps notifications on so failures are not lost.
func notificationsEnabled(store *prefs.Store, log *slog.Logger) func() bool {
	return func() bool {
		p, err := store.Load()
		if err != nil {
			log.Warn("preferences unreadable", "err", err)
			return true
		}
		return p.Notifications
	}
}

// daemon answers IPC requests against the live monitor.
type daemon struct {
	mon     *classifier.Monitor
	saver   *save.Orchestrator
	backend clip.Backend
	hub     *hub.Hub
	history *history.Recorder
}

// Save saves whatever the monitor holds at the moment the request arrives.
func (d *daemon) Save(ctx context.Context, format string) (string, error) {
	return d.saver.SaveDirect(ctx, d.mon.Current(), content.ParseFormat(format))
}

func (d *daemon) Status(context.Context) (*message.Status, error) {
	st := snapshotStatus(d.mon.Current())
	st.Version = Version
	st.Backend = d.backend.Name()
	st.Monitoring = d.mon.Monitoring()
	st.Subscribers = d.hub.Subscribers()
	st.Recent = recentEntries(d.history.Recent(statusRecent))
	return st, nil
}

func (d *daemon) Reset(ctx context.Context) error {
	return d.mon.Reset(ctx)
}

func (d *daemon) ClearRecent(context.Context) error {
	return d.history.Clear()
}

func snapshotStatus(snap content.Snapshot) *message.Status {
	return &message.Status{
		Kind:        snap.Kind().String(),
		Placeholder: snap.Placeholder,
		Seq:         snap.Seq,
		ChangeCount: snap.ChangeCount,
		LastChange:  snap.CapturedAt,
	}
}

func recentEntries(entries []history.Entry) []message.Recent {
	out := make([]message.Recent, len(entries))
	for i, e := range entries {
		out[i] = message.Recent{Path: e.Path, SavedAt: e.SavedAt}
	}
	return out
}
