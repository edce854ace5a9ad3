package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/hash-org/hashbench/config"
)

func clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove artifacts generated by previous runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := config.FromViper()

			if _, err := os.Stat(settings.TempDir); err == nil {
				logger.Info("clearing entries", slog.String("path", settings.TempDir))
				if err := os.RemoveAll(settings.TempDir); err != nil {
					return fmt.Errorf("clearing %s: %w", settings.TempDir, err)
				}
			}
			return os.MkdirAll(settings.TempDir, 0o755)
		},
	}
}
