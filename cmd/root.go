package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-validator/internal/config"
	"github.com/sells-group/lead-validator/internal/observe"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	cfg     *config.Config
	metrics *observe.Provider
)

var rootCmd = &cobra.Command{
	Use:   "lead-validator",
	Short: "Validate insurance call-center leads from call recordings",
	Long: "Transcribes call recordings, looks up the caller's identity from the phone number in the file name, " +
		"extracts intake fields with an LLM and reconciles both into a review verdict.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		if err := initSentry(cfg.Sentry); err != nil {
			zap.L().Warn("sentry init failed, error reporting disabled", zap.Error(err))
		}

		if cfg.Metrics.Enabled {
			p, err := observe.InitProvider(cmd.Context(), observe.ProviderConfig{ServiceVersion: version})
			if err != nil {
				zap.L().Warn("metrics init failed, metrics disabled", zap.Error(err))
			} else {
				metrics = p
			}
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metrics.Shutdown(ctx); err != nil {
			zap.L().Warn("metrics shutdown failed", zap.Error(err))
		}
		_ = zap.L().Sync()
	},
}

func initSentry(sc config.SentryConfig) error {
	if sc.DSN == "" {
		return nil
	}
	return sentry.Init(sentry.ClientOptions{
		Dsn:         sc.DSN,
		Environment: sc.Environment,
		Release:     "lead-validator@" + version,
	})
}

// reportError sends a fatal command error to Sentry. It is a no-op when
// Sentry was not initialized.
func reportError(err error) {
	if sentry.CurrentHub().Client() == nil {
		return
	}
	sentry.CaptureException(err)
	sentry.Flush(2 * time.Second)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		reportError(err)
		os.Exit(1)
	}
}
