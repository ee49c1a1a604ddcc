package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipsave/internal/ipc"
	"go.klb.dev/clipsave/internal/message"
)

func newResetCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Restart clipboard monitoring in the daemon",
		Long: `Asks the running daemon to stop monitoring, drop its clipboard ownership
registration, re-baseline the change counter and start again. Use it when
copies stop being picked up.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(cmd *cobra.Command, _ []string) error {
			socket := v.GetString("socket")
			if !ipc.IsRunning(socket) {
				return errors.New("no clipsave daemon is running")
			}
			if _, err := ipc.Call(cmd.Context(), socket, message.NewRequest(message.TypeReset)); err != nil {
				return fmt.Errorf("reset: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "monitoring restarted")
			return nil
		},
	}
	addSocketFlag(cmd)
	addConfigFlags(cmd)

	return cmd
}
