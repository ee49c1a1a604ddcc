package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"go.klb.dev/clipsave/internal/classifier"
	"go.klb.dev/clipsave/internal/clip"
	"go.klb.dev/clipsave/internal/history"
	"go.klb.dev/clipsave/internal/hub"
	"go.klb.dev/clipsave/internal/ipc"
	"go.klb.dev/clipsave/internal/message"
)

func newStatusCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show monitoring state and recent saves",
		Long: `Displays whether the daemon is monitoring, what kind of content it
currently holds and the most recently saved files.

Without a running daemon the clipboard is classified once from this process
and the recent-files list is read from disk.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runStatus(cmd, v) },
	}

	f := cmd.Flags()
	f.Bool("json", false, "output JSON")
	f.Bool("yaml", false, "output YAML")
	cmd.MarkFlagsMutuallyExclusive("json", "yaml")
	f.String("history-file", defaultHistoryFile(), "recent-files list (YAML)")
	f.Int("history-size", history.DefaultSize, "number of recent files to keep")
	addSocketFlag(cmd)
	addConfigFlags(cmd)

	return cmd
}

func runStatus(cmd *cobra.Command, v *viper.Viper) error {
	socket := v.GetString("socket")

	var (
		st        *message.Status
		transport string
	)
	if ipc.IsRunning(socket) {
		resp, err := ipc.Call(cmd.Context(), socket, message.NewRequest(message.TypeStatus))
		if err != nil {
			return fmt.Errorf("status: %w", err)
		}
		st = resp.Status
		transport = fmt.Sprintf("ipc (%s)", socket)
	} else {
		var err error
		if st, err = localStatus(v); err != nil {
			return err
		}
		transport = "none (daemon not running)"
	}
	if st == nil {
		return fmt.Errorf("status: empty reply")
	}

	out := cmd.OutOrStdout()
	switch {
	case v.GetBool("json"):
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	case v.GetBool("yaml"):
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(st)
	}
	printStatus(out, st, transport)
	return nil
}

// localStatus reports what this process can see without a daemon.
func localStatus(v *viper.Viper) (*message.Status, error) {
	log := slog.New(slog.DiscardHandler)
	backend := clip.New()
	defer backend.Close()

	st := snapshotStatus(classifier.New(backend, hub.New(log), classifier.Options{Logger: log}).Refresh())
	st.Version = Version
	st.Backend = backend.Name()

	rec, err := openHistory(v, log)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	st.Recent = recentEntries(rec.Recent(statusRecent))
	return st, nil
}

func printStatus(out io.Writer, st *message.Status, transport string) {
	w := tabwriter.NewWriter(out, 1, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Transport:\t%s\n", transport)
	fmt.Fprintf(w, "Backend:\t%s\n", st.Backend)
	fmt.Fprintf(w, "Monitoring:\t%t\n", st.Monitoring)
	kind := st.Kind
	if st.Placeholder {
		kind += " (placeholder)"
	}
	fmt.Fprintf(w, "Content:\t%s\n", kind)
	if !st.LastChange.IsZero() {
		fmt.Fprintf(w, "Last change:\t%s (seq %d)\n", fmtAge(st.LastChange), st.Seq)
	}
	fmt.Fprintln(w)
	_ = w.Flush()

	if len(st.Recent) == 0 {
		fmt.Fprintln(out, "No recent saves.")
		return
	}
	tw := tabwriter.NewWriter(out, 1, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "SAVED\tPATH\n")
	_, _ = fmt.Fprintf(tw, "-----\t----\n")
	for _, r := range st.Recent {
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", fmtAge(r.SavedAt), r.Path)
	}
	_ = tw.Flush()
}

func fmtAge(t time.Time) string {
	age := time.Since(t).Round(time.Second)
	if age < time.Minute {
		return fmt.Sprintf("%ds ago", int(age.Seconds()))
	}
	if age < time.Hour {
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	}
	return t.Format("2006-01-02 15:04:05")
}

