package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KushagraWadhwaShorthillsAI/weaviate-pt-v2/internal/backend/weaviate"
	"github.com/KushagraWadhwaShorthillsAI/weaviate-pt-v2/internal/gateway"
	"github.com/KushagraWadhwaShorthillsAI/weaviate-pt-v2/internal/metrics"
	"github.com/KushagraWadhwaShorthillsAI/weaviate-pt-v2/pkg/fanout"
	"github.com/KushagraWadhwaShorthillsAI/weaviate-pt-v2/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP gateway that fans queries out to all shards",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := configFrom(cmd.Context())

	client := weaviate.NewClient(cfg.Backend)
	recorder := metrics.NewBatchRecorder()
	defer recorder.Close()

	coord := fanout.New(
		weaviate.NewBuilder(),
		client,
		fanout.WithMerger(mergerFor(cfg.Fanout.Merge)),
		fanout.WithSink(recorder),
	)

	srv := gateway.New(gateway.Config{
		Address:      cfg.Gateway.Address,
		ReadTimeout:  cfg.Gateway.ReadTimeout,
		WriteTimeout: cfg.Gateway.WriteTimeout,
		EnableCORS:   cfg.Gateway.EnableCORS,
	}, coord, client, recorder, cfg.Targets(), cfg.Fanout.Deadline)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Listen() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.L().Info("shutting down gateway", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
