package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-payment-verification/app/service"
	"github.com/vibast-solutions/ms-go-payment-verification/config"
)

var (
	workerMode bool
)

var verificationsCmd = &cobra.Command{
	Use:   "verifications",
	Short: "Run verification queue commands",
}

var verificationsReleaseStaleCmd = &cobra.Command{
	Use:   "release-stale",
	Short: "Return verifications claimed longer than the claim timeout to the queue",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"verifications_release_stale",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.ReleaseStaleInterval },
			func(s *service.PaymentService, ctx context.Context) error {
				return s.RunReleaseStaleClaimsBatch(ctx)
			},
		)
	},
}

var outboxCmd = &cobra.Command{
	Use:   "outbox",
	Short: "Run outbox event commands",
}

var outboxDispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Publish due outbox events through the configured publisher",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"outbox_dispatch",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.OutboxDispatchInterval },
			func(s *service.PaymentService, ctx context.Context) error {
				return s.RunDispatchOutboxBatch(ctx)
			},
		)
	},
}

var disputesCmd = &cobra.Command{
	Use:   "disputes",
	Short: "Run dispute commands",
}

var disputesAuditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Replay recently updated dispute histories and report mismatches",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"disputes_audit",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.DisputeAuditInterval },
			func(s *service.PaymentService, ctx context.Context) error {
				return s.RunDisputeAuditBatch(ctx)
			},
		)
	},
}

func init() {
	rootCmd.AddCommand(verificationsCmd)
	rootCmd.AddCommand(outboxCmd)
	rootCmd.AddCommand(disputesCmd)
	verificationsCmd.AddCommand(verificationsReleaseStaleCmd)
	outboxCmd.AddCommand(outboxDispatchCmd)
	disputesCmd.AddCommand(disputesAuditCmd)

	rootCmd.PersistentFlags().BoolVar(&workerMode, "worker", false, "Run continuously using configured interval")
}

func runCommand(
	name string,
	intervalResolver func(cfg *config.Config) time.Duration,
	fn func(s *service.PaymentService, ctx context.Context) error,
) {
	cfg, paymentService, cleanup := mustCreatePaymentService()
	defer cleanup()

	if workerMode {
		runWorker(name, intervalResolver(cfg), paymentService, fn)
		return
	}

	ctx := context.Background()
	runJob(name, func() error { return fn(paymentService, ctx) })
}

func runWorker(
	name string,
	interval time.Duration,
	paymentService *service.PaymentService,
	fn func(s *service.PaymentService, ctx context.Context) error,
) {
	if interval <= 0 {
		logrus.WithField("job", name).Fatal("invalid worker interval")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runJob(name, func() error { return fn(paymentService, ctx) })

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	for {
		select {
		case <-quit:
			logrus.WithField("job", name).Info("Worker shutdown requested")
			return
		case <-ticker.C:
			runJob(name, func() error { return fn(paymentService, ctx) })
		}
	}
}

func runJob(name string, fn func() error) {
	start := time.Now()
	err := fn()
	latency := time.Since(start)
	if err != nil {
		logrus.WithError(err).WithField("job", name).WithField("latency", latency.String()).Error("job_failed")
		return
	}
	logrus.WithField("job", name).WithField("latency", latency.String()).Info("job_completed")
}
