package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/example/quoteflow/internal/core/reorder"
	"github.com/example/quoteflow/internal/ports/primary"
	"github.com/example/quoteflow/internal/wire"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the auto-quotation orchestrator",
		Long: `Serve the quotation API, consume stock events from Pub/Sub when a subscription
is configured, and reconcile inventory shortly after startup.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			if addr == "" {
				addr = wire.Config().HTTPAddr
			}
			expiryEvery, _ := cmd.Flags().GetDuration("expiry-interval")
			return serve(addr, expiryEvery)
		},
	}
	cmd.Flags().String("addr", "", "Listen address (default from config, :8080)")
	cmd.Flags().Duration("expiry-interval", time.Hour, "How often to expire stale SENT quotations (0 disables)")
	return cmd
}

func serve(addr string, expiryEvery time.Duration) error {
	logger := wire.Logger()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	automation := wire.AutomationService()
	defer automation.Stop()

	outcomes, unsubscribe := automation.Subscribe()
	defer unsubscribe()
	go logOutcomes(logger, outcomes)

	if err := automation.Init(sigCtx); err != nil {
		return err
	}

	source, closeSource, err := wire.StockEventSource(sigCtx)
	if err != nil {
		return err
	}
	defer closeSource()
	if source != nil {
		go func() {
			err := source.Subscribe(sigCtx, func(ctx context.Context, ev reorder.StockEvent) {
				automation.HandleStockEvent(ctx, ev)
			})
			if err != nil {
				logger.WithFields(logrus.Fields{"field": "pubsub"}).Error(err)
			}
		}()
	}

	if expiryEvery > 0 {
		go runExpirySweeps(sigCtx, logger, expiryEvery)
	}

	srv := &http.Server{
		Addr:    addr,
		Handler: wire.HTTPRouter(),
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()
	logger.WithFields(logrus.Fields{"addr": addr, "pubsub": source != nil}).Info("quoteflow serving")

	select {
	case <-sigCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func logOutcomes(logger logrus.FieldLogger, outcomes <-chan primary.Outcome) {
	for o := range outcomes {
		entry := logger.WithFields(logrus.Fields{
			"outcome":      string(o.Kind),
			"product_id":   o.ProductID,
			"supplier_id":  o.SupplierID,
			"quotation_id": o.QuotationID,
		})
		if len(o.Products) > 0 {
			entry = entry.WithField("products", o.Products)
		}
		if o.Reason != "" {
			entry = entry.WithField("reason", o.Reason)
		}
		switch o.Kind {
		case primary.OutcomeRepositoryFailure, primary.OutcomeLockFailedClosed:
			entry.Error("automation outcome")
		case primary.OutcomeLockFailedOpen:
			entry.Warn("automation outcome")
		default:
			entry.Info("automation outcome")
		}
	}
}

func runExpirySweeps(ctx context.Context, logger logrus.FieldLogger, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := wire.ExpiryService().ExpireStale(ctx); err != nil {
				logger.WithFields(logrus.Fields{"field": "expiry"}).Error(err)
			}
		}
	}
}
