// clipsave: save whatever is on the clipboard to a file.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "clipsave",
		Short: "Save the clipboard to a file",
		Long: `clipsave turns whatever is on the clipboard (an image, text, rich text, a
PDF or copied files) into a file in a sensible place: the folder open in
the front Finder window, a chosen save folder, or Downloads.

Run "clipsave watch" once per session, then bind "clipsave save" to a
hotkey. Without the daemon, "clipsave save" still works on its own.

Config file search order (first found wins):
  /etc/clipsave/clipsave.toml
  $HOME/.config/clipsave/clipsave.toml
  path supplied via --config

All flags can be set via CLIPSAVE_<FLAG> env vars or config-file keys.
Preferences (save_folder_bookmark, use_active_window, default_image_format,
default_text_format, compress, preview, temp_dir, fallback_dir,
notifications) live in the same file.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newWatchCmd(),
		newSaveCmd(),
		newStatusCmd(),
		newResetCmd(),
		newPrefsCmd(),
		newVersionCmd(),
	)

	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "clipsave %s\n", Version)
		},
	}
}
