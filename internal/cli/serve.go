package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/alexshd/biotica"
	"github.com/alexshd/biotica/internal/alert"
	"github.com/alexshd/biotica/internal/api"
	"github.com/alexshd/biotica/internal/config"
	"github.com/alexshd/biotica/internal/metrics"
)

func newServeCommand() *cobra.Command {
	var (
		addr    string
		noStore bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				cfg.Server.Addr = addr
			}

			e, err := cfg.Engine(biotica.WithLogger(logger))
			if err != nil {
				return err
			}
			detector, err := cfg.NewDetector(biotica.WithDetectorLogger(logger))
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			m := metrics.New(reg)

			minAction, err := config.ParseAction(cfg.Alerts.MinAction)
			if err != nil {
				return err
			}
			pub, err := alert.NewPublisher(alert.Config{
				Enabled:   cfg.Alerts.Enabled,
				Brokers:   cfg.Alerts.Brokers,
				Topic:     cfg.Alerts.Topic,
				MinAction: minAction,
			}, logger)
			if err != nil {
				return err
			}
			defer pub.Close()

			deps := api.Deps{
				Engine:      e,
				Detector:    detector,
				Publisher:   pub,
				Metrics:     m,
				Log:         logger,
				AccessLog:   os.Stdout,
				Workers:     cfg.Server.Workers,
				HistorySize: cfg.Detector.HistorySize,
				GovernorOptions: []biotica.GovernorOption{
					biotica.WithGovernorThresholds(cfg.Thresholds),
				},
			}
			if !noStore {
				db, err := openStore()
				if err != nil {
					return err
				}
				deps.DB = db
			}
			srv, err := api.NewServer(deps)
			if err != nil {
				return err
			}

			httpSrv := &http.Server{
				Addr:         cfg.Server.Addr,
				Handler:      srv.Handler(),
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errc := make(chan error, 1)
			go func() {
				logger.Info("Server starting", "addr", cfg.Server.Addr, "store", deps.DB != nil, "alerts", pub.Enabled())
				errc <- httpSrv.ListenAndServe()
			}()

			select {
			case err := <-errc:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info("Server shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config and BIOTICA_ADDR)")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "Do not archive results")
	return cmd
}
