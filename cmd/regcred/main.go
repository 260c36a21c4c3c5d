//go:build darwin

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/benaskins/regcred/internal/credential"
)

var (
	configPath string
	namespace  string
	backend    string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "regcred",
	Short:         "Registry credentials in the macOS Keychain",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Config file (default: "+defaultConfigPath()+")")
	flags.StringVar(&namespace, "namespace", "", "Credential namespace (Keychain service)")
	flags.StringVar(&backend, "backend", "", "Storage backend: keychain or keyring")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, credential.ErrInterrupted) {
			os.Exit(130)
		}
		os.Exit(1)
	}
}
