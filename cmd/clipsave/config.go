package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipsave/internal/ipc"
	"go.klb.dev/clipsave/internal/logging"
	"go.klb.dev/clipsave/internal/prefs"
)

// bindViper wires a command's flags into a viper instance with the standard
// config file search order and CLIPSAVE_* env var prefix.
//
// Precedence (lowest → highest): defaults → config file → CLIPSAVE_* env vars → flags
//
// An --env-file is loaded into the process environment first, so its
// values act as CLIPSAVE_* env vars without overriding ones already set.
func bindViper(cmd *cobra.Command, v *viper.Viper) error {
	if envFile, _ := cmd.Flags().GetString("env-file"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("env file: %w", err)
		}
	}

	configFlag, _ := cmd.Flags().GetString("config")
	if configFlag != "" {
		v.SetConfigFile(configFlag)
	} else {
		v.SetConfigName("clipsave")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc/clipsave/")
		if dir, err := userConfigDir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("config: %w", err)
		}
	}

	v.SetEnvPrefix("CLIPSAVE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	return nil
}

// userConfigDir is $HOME/.config/clipsave on every platform, matching the
// config search path.
func userConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "clipsave"), nil
}

// addLoggingFlags adds the standard logging flags to a command.
func addLoggingFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("no-background", false, "run interactively: tinter logs + debug level")
	cmd.Flags().String("log-format", "auto", "log format: auto|text|json")
	cmd.Flags().String("log-level", "", "log level: debug|info|warn|error (default: info for service, debug for interactive)")
}

// addConfigFlags adds --config and --env-file to a command.
func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "path to config file (overrides auto-discovery)")
	cmd.Flags().String("env-file", "", "load CLIPSAVE_* variables from a dotenv file")
}

// addSocketFlag adds --socket to a command.
func addSocketFlag(cmd *cobra.Command) {
	cmd.Flags().String("socket", ipc.SocketPath(), "daemon IPC socket path")
}

// setupLogging reads logging flags from viper and configures slog.
func setupLogging(v *viper.Viper) *slog.Logger {
	return logging.Setup(logging.Options{
		Format:      v.GetString("log-format"),
		Level:       v.GetString("log-level"),
		Interactive: v.GetBool("no-background"),
	})
}

// openPrefs returns the preference store. It gets its own viper instance
// over the same config file so that writing a preference back never
// persists flags or env overrides. With no config file, the first write
// creates one in the user config directory.
func openPrefs(v *viper.Viper, log *slog.Logger) (*prefs.Store, error) {
	pv := viper.New()
	path := v.ConfigFileUsed()
	if path != "" {
		pv.SetConfigFile(path)
		if err := pv.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("preferences: %w", err)
		}
	}
	s := prefs.New(pv, log)
	if path == "" {
		if dir, err := userConfigDir(); err == nil {
			s.WritePath = filepath.Join(dir, "clipsave.toml")
		}
	}
	return s, nil
}
