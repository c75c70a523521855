package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/gpuscout/internal/api"
	"github.com/ppiankov/gpuscout/internal/logging"
	"github.com/ppiankov/gpuscout/internal/pipeline"
	"github.com/ppiankov/gpuscout/internal/telemetry"
)

var listenAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the standardization engine over HTTP",
	Long: `Serve exposes the engine as a JSON API:
  POST /v1/standardize        one listing -> one record
  POST /v1/standardize/batch  array of listings -> records and errors
  GET  /v1/stats              persisted records per manufacturer (with --store)
  GET  /healthz               liveness and table fingerprint
  GET  /metrics               Prometheus metrics

Example:
  gpuscout serve
  gpuscout serve --addr :9090 --store --dsn gpuscout.db`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "listen address (default :8080)")
	serveCmd.Flags().BoolVar(&persist, "store", false, "serve /v1/stats from the database")
	serveCmd.Flags().StringVar(&storeDriver, "driver", "sqlite3", "database driver (sqlite3, postgres)")
	serveCmd.Flags().StringVar(&storeDSN, "dsn", "", "database DSN (default: gpuscout.db for sqlite3)")
	serveCmd.Flags().IntVar(&workers, "workers", 0, "number of concurrent workers per batch (default: number of CPUs)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Server.Addr = listenAddr
	}
	if flags.Changed("driver") {
		cfg.Store.Driver = storeDriver
	}
	if flags.Changed("dsn") {
		cfg.Store.DSN = storeDSN
	}
	if flags.Changed("workers") && workers > 0 {
		cfg.Concurrency.Workers = workers
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	metrics := telemetry.NewMetrics()
	p, err := pipeline.NewPipeline(cfg, log, pipeline.WithMetrics(metrics))
	if err != nil {
		return err
	}

	var serverOpts []api.Option
	if persist {
		st, err := openStore(ctx, cfg.Store, log)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()
		serverOpts = append(serverOpts, api.WithStore(st))
	}

	srv := api.NewServer(cfg.Server, p.Engine(), p.Processor(), metrics, log, serverOpts...)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	log.Info("engine ready", logging.String("fingerprint", p.Engine().Fingerprint()))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	if err := srv.Shutdown(context.Background()); err != nil {
		return err
	}
	return <-errCh
}
