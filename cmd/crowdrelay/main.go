package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/crowd-relay/internal/api"
	"github.com/crowd-relay/internal/config"
	"github.com/crowd-relay/internal/metrics"
	"github.com/crowd-relay/internal/service"
	"github.com/crowd-relay/internal/storage"
	"github.com/crowd-relay/internal/storage/redis"
	"github.com/crowd-relay/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewWithOptions(logger.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	// Cancelled on shutdown; every crowd connection runs under it.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var background sync.WaitGroup

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	registry := storage.NewRegistry(storage.Options{
		CommandBuffer: cfg.Crowd.CommandBuffer,
		UpdateBuffer:  cfg.Crowd.UpdateBuffer,
	})
	crowdService := service.NewCrowdService(registry, log, m, service.Config{
		IdleTimeout:      cfg.Crowd.PlayerIdleTimeout,
		HandshakeTimeout: cfg.Crowd.HandshakeTimeout,
	})

	if cfg.Directory.Addr != "" {
		directory, err := redis.NewDirectory(ctx, redis.Options{
			Addr:     cfg.Directory.Addr,
			Password: cfg.Directory.Password,
			DB:       cfg.Directory.DB,
		})
		if err != nil {
			log.Error("Failed to initialize crowd directory", logger.Err(err))
			os.Exit(1)
		}
		defer directory.Close()
		log.Info("Connected to Redis", logger.F("addr", cfg.Directory.Addr))

		announcer := redis.NewAnnouncer(registry, directory, cfg.Directory.Interval, m, log)
		background.Add(1)
		go func() {
			defer background.Done()
			announcer.Run(ctx)
		}()
	}

	handlerCfg := api.HandlerConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		WriteTimeout:   cfg.Crowd.WriteTimeout,
		BaseContext:    ctx,
	}
	if cfg.MetricsEnabled {
		handlerCfg.Metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}
	handler := api.NewHandler(crowdService, handlerCfg, log)

	// Setup router
	router := chi.NewRouter()
	router.Use(api.Middlewares(log)...)
	router.Mount("/", handler.Routes())

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info("Server starting", logger.F("addr", cfg.Address()))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed", logger.Err(err))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Websocket connections are hijacked, so Shutdown does not wait for
	// them; cancelling ctx ends their loops.
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", logger.Err(err))
		os.Exit(1)
	}
	background.Wait()

	log.Info("Server exited")
}
