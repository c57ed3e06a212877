package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lasqc/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "lasqc",
	Short: "Well-log quality control and processing",
	Long:  "Parses LAS well logs, denoises, despikes and detrends their curves, scores data quality and issues signed quality certificates.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		zap.L().Debug("config loaded", configFields(cmd.Name(), cfg)...)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// configFields summarizes the settings that shape a run. Secrets are reported
// only as present or absent.
func configFields(command string, c *config.Config) []zap.Field {
	var stages []string
	if c.Processing.Standardize {
		stages = append(stages, "standardize")
	}
	if c.Processing.Denoise.Enabled {
		stages = append(stages, "denoise:"+c.Processing.Denoise.Method)
	}
	if c.Processing.Despike.Enabled {
		stages = append(stages, "despike:"+c.Processing.Despike.Method)
	}
	if c.Processing.Baseline.Enabled {
		stages = append(stages, "baseline:"+c.Processing.Baseline.Method)
	}
	return []zap.Field{
		zap.String("command", command),
		zap.String("store_driver", c.Store.Driver),
		zap.Strings("stages", stages),
		zap.Int("max_file_size_mb", c.Processing.MaxFileSizeMB),
		zap.Int("max_concurrent_files", c.Batch.MaxConcurrentFiles),
		zap.Bool("signed_hmac", c.Certify.SigningKey != ""),
		zap.Bool("monitoring", c.Monitoring.Enabled),
	}
}
