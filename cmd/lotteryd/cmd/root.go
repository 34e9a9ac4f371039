package cmd

import (
	"os"

	"github.com/ArowuTest/etherlotto-backend/internal/config"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"
)

// NewRootCmd creates the lotteryd root command. It is called once in main.
func NewRootCmd() *cobra.Command {
	var configDir string

	rootCmd := &cobra.Command{
		Use:           "lotteryd",
		Short:         "Pooled-stake prediction lottery daemon",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "extra directory to search for config.yaml")

	load := func() (*config.Config, error) {
		var paths []string
		if configDir != "" {
			paths = append(paths, configDir)
		}
		cfg, err := config.Load(paths...)
		if err != nil {
			return nil, err
		}
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
		return cfg, nil
	}

	rootCmd.AddCommand(
		newServeCmd(load),
		newTokenCmd(load),
		newSeedCmd(),
	)
	return rootCmd
}

type configLoader func() (*config.Config, error)
