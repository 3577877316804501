package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"batchgofer/internal/arm"
	"batchgofer/internal/batcher"
	"batchgofer/internal/cache"
	"batchgofer/internal/config"
	"batchgofer/internal/jsonrpc"
	"batchgofer/internal/transport"
)

func main() {
	configPath := flag.String("config", "config.json", "path to config file")
	flag.Parse()

	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		// Basic logger for startup errors
		log := zerolog.New(os.Stderr).With().Timestamp().Logger()
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logger := setupLogger(cfg.LogLevel)
	logger.Info().
		Str("config", *configPath).
		Str("transport", string(cfg.Transport.Type)).
		Int("batchSize", cfg.BatchSize).
		Int("batchDelay", cfg.BatchDelay).
		Int("requests", len(cfg.Resources)).
		Msg("starting batchgofer")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("run failed")
	}
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	batchCfg := batcher.Config{
		MaxBatchSize:  cfg.BatchSize,
		DebounceDelay: cfg.GetBatchDelayDuration(),
		CallTimeout:   cfg.GetRequestTimeoutDuration(),
	}

	switch cfg.Transport.Type {
	case config.TransportARM:
		poster := newPoster(cfg, logger)
		defer poster.Close()

		tr := arm.NewTransport(poster, cfg.Transport.URL, cfg.Transport.BatchAPIVersion, logger)
		d, err := batcher.New[arm.Request, json.RawMessage](batchCfg, tr, logger)
		if err != nil {
			return fmt.Errorf("failed to create dispatcher: %w", err)
		}
		defer d.Close()

		resultCache, err := newCache(cfg)
		if err != nil {
			return err
		}
		defer resultCache.Close()

		client := arm.NewClient(d, resultCache, cfg.Transport.APIVersion, logger)
		return fetchResources(ctx, cfg, client, logger)

	case config.TransportJSONRPC, config.TransportJSONRPCWS:
		var tr batcher.Transport[jsonrpc.Call, json.RawMessage]
		if cfg.Transport.Type == config.TransportJSONRPCWS {
			ws := jsonrpc.NewWSTransport(cfg.Transport.URL, cfg.GetRequestTimeoutDuration(), logger)
			defer ws.Close()
			tr = ws
		} else {
			poster := newPoster(cfg, logger)
			defer poster.Close()
			tr = jsonrpc.NewHTTPTransport(poster, cfg.Transport.URL, logger)
		}

		d, err := batcher.New[jsonrpc.Call, json.RawMessage](batchCfg, tr, logger)
		if err != nil {
			return fmt.Errorf("failed to create dispatcher: %w", err)
		}
		defer d.Close()
		return callMethods(ctx, cfg, d, logger)
	}

	return fmt.Errorf("unsupported transport type %q", cfg.Transport.Type)
}

func newPoster(cfg *config.Config, logger zerolog.Logger) *transport.HTTPClient {
	headers := make(map[string]string)
	if cfg.Transport.Token != "" {
		headers["Authorization"] = cfg.Transport.Token
	}

	var cb transport.CircuitBreakerConfig
	if cfg.IsCircuitBreakerEnabled() {
		cb = transport.CircuitBreakerConfig{
			Enabled:             true,
			FailureThreshold:    cfg.CircuitBreaker.FailureThreshold,
			RecoveryTimeout:     cfg.CircuitBreaker.GetRecoveryTimeoutDuration(),
			HalfOpenMaxRequests: cfg.CircuitBreaker.HalfOpenMaxRequests,
		}
	}

	return transport.NewHTTPClient(transport.HTTPConfig{
		Name:           string(cfg.Transport.Type),
		Headers:        headers,
		RequestTimeout: cfg.GetRequestTimeoutDuration(),
		CircuitBreaker: cb,
		Logger:         logger,
	})
}

func newCache(cfg *config.Config) (cache.Cache, error) {
	if !cfg.IsCacheEnabled() {
		return cache.NewNoopCache(), nil
	}
	mc, err := cache.NewMemoryCache(cfg.Cache.Size, cfg.Cache.GetTTLDuration())
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}
	return mc, nil
}

// spread waits a random fraction of the configured spread, simulating
// lookups issued from unrelated parts of an application
func spread(ctx context.Context, max time.Duration) error {
	if max <= 0 {
		return nil
	}
	select {
	case <-time.After(time.Duration(rand.Int63n(int64(max)))):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func fetchResources(ctx context.Context, cfg *config.Config, client *arm.Client, logger zerolog.Logger) error {
	var (
		mu        sync.Mutex
		resources []*arm.Resource
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, id := range cfg.Resources {
		id := id
		g.Go(func() error {
			if err := spread(ctx, cfg.GetSimulatedSpreadDuration()); err != nil {
				return err
			}
			res := client.GetResourceOrStub(ctx, id)
			mu.Lock()
			resources = append(resources, res)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	stubs := 0
	for _, r := range resources {
		if r.IsStub() {
			stubs++
		}
		logger.Debug().Str("id", r.ID).Str("location", r.Location).Bool("stub", r.IsStub()).Msg("resource")
	}

	logger.Info().
		Int("responses", len(resources)).
		Int("stubs", stubs).
		Uint64("batches", client.BatchCount()).
		Msg("resource lookups finished")
	return nil
}

func callMethods(ctx context.Context, cfg *config.Config, d *batcher.Dispatcher[jsonrpc.Call, json.RawMessage], logger zerolog.Logger) error {
	var failed, succeeded int
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	for _, method := range cfg.Resources {
		call, err := jsonrpc.NewCall(method, nil)
		if err != nil {
			return err
		}
		g.Go(func() error {
			if err := spread(ctx, cfg.GetSimulatedSpreadDuration()); err != nil {
				return err
			}
			result, err := d.Request(ctx, call)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				logger.Warn().Err(err).Str("method", call.Method).Msg("call failed")
				return nil
			}
			succeeded++
			if len(result) == 0 {
				result = json.RawMessage("null")
			}
			logger.Debug().Str("method", call.Method).RawJSON("result", result).Msg("call succeeded")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info().
		Int("succeeded", succeeded).
		Int("failed", failed).
		Uint64("batches", d.BatchCount()).
		Msg("calls finished")
	return nil
}

// setupLogger configures the zerolog logger
func setupLogger(level string) zerolog.Logger {
	var logLevel zerolog.Level
	switch level {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "info":
		logLevel = zerolog.InfoLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	default:
		logLevel = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(logLevel)

	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}

	return zerolog.New(output).With().Timestamp().Logger()
}
