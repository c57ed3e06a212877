package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lasqc/internal/api"
	"github.com/sells-group/lasqc/internal/config"
	"github.com/sells-group/lasqc/internal/monitoring"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}

		e, err := initEnv(ctx, cfg, "serve", true)
		if err != nil {
			return err
		}
		defer e.Close()

		srvAPI := api.New(e.Pipeline, e.Issuer, e.Store, apiOptions(cfg))
		srvAPI.Janitor(ctx, time.Duration(cfg.Cache.SweepSeconds)*time.Second)

		if cfg.Monitoring.Enabled {
			go newChecker(e.Store, cfg.Monitoring).Run(ctx)
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           srvAPI.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// apiOptions maps the configuration onto server options.
func apiOptions(c *config.Config) api.Options {
	return api.Options{
		MaxUploadBytes:    int64(c.Processing.MaxFileSizeMB) << 20,
		RequestsPerSecond: c.RateLimit.RequestsPerSecond,
		Burst:             c.RateLimit.Burst,
		CORSOrigins:       c.Server.CORSOrigins,
		FileTTL:           time.Duration(c.Cache.TTLMinutes) * time.Minute,
		MaxFiles:          c.Cache.MaxEntries,
	}
}

// newChecker wires the run-health checker over the store.
func newChecker(runs monitoring.RunLister, mc config.MonitoringConfig) *monitoring.Checker {
	collector := monitoring.NewCollector(runs, mc.MinFinalQuality)
	return monitoring.NewChecker(collector, monitoring.NewAlerter(mc), mc)
}
