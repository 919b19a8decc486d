package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/metapool/metapool/internal/api"
	"github.com/metapool/metapool/internal/config"
	"github.com/metapool/metapool/internal/pipeline"
	"github.com/metapool/metapool/internal/store"
	"github.com/metapool/metapool/internal/ws"
	"github.com/metapool/metapool/pkg/types"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("metapool-server starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	slog.Info("config loaded",
		"dataset", cfg.Analysis.Dataset,
		"http_port", cfg.Server.HTTPPort,
		"store_path", cfg.Server.StorePath,
		"watch", cfg.Server.Watch,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, err := store.Open(cfg.Server.StorePath)
	if err != nil {
		slog.Error("failed to open run store", "path", cfg.Server.StorePath, "err", err)
		os.Exit(1)
	}
	defer st.Close()

	// WebSocket hub — pushes each completed run to connected clients.
	hub := ws.New(st)
	go hub.Run(ctx)

	// Every completed run is persisted and broadcast.
	deliver := func(run types.Run) {
		if err := st.Put(run); err != nil {
			slog.Error("failed to store run", "run_id", run.ID, "err", err)
			return
		}
		hub.Broadcast(run)
		slog.Info("run stored",
			"run_id", run.ID,
			"studies", run.Summary.K,
			"effect", run.Summary.Effect,
		)
	}

	p := pipeline.New(cfg.Analysis)
	if cfg.Server.Watch {
		go func() {
			if err := p.Watch(ctx, cfg.Server.Debounce, deliver); err != nil {
				slog.Error("dataset watcher stopped", "err", err)
			}
		}()
	} else {
		run, err := p.Run()
		if err != nil {
			slog.Error("analysis failed", "err", err)
			os.Exit(1)
		}
		deliver(run)
	}

	// Combined HTTP server: REST API + plots + metrics + WebSocket stream.
	httpMux := http.NewServeMux()
	httpMux.Handle("/", api.New(st, cfg.Analysis.OutputDir))
	httpMux.Handle("/ws/stream", hub)

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: httpMux,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("metapool-server shutting down")
	httpSrv.Shutdown(context.Background()) //nolint:errcheck
}
