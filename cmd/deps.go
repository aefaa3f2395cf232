package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/spigell/hh-interviewer/internal/ai/gemini"
	"github.com/spigell/hh-interviewer/internal/catalog"
	"github.com/spigell/hh-interviewer/internal/evaluation"
	"github.com/spigell/hh-interviewer/internal/secrets"
	"github.com/spigell/hh-interviewer/internal/storage"
)

const (
	providerGemini = "gemini"
	providerNone   = "none"

	driverMemory = "memory"
	driverSQLite = "sqlite"
)

// newSampler builds the oracle. A nil sampler with a nil error means grading
// is done by the local heuristic only.
func newSampler(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (evaluation.Sampler, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	switch provider {
	case providerNone:
		return nil, nil
	case "", providerGemini:
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: cfg.Gemini.APIKeyFile,
		Env:  "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file, GEMINI_API_KEY_FILE or GEMINI_API_KEY)", err)
	}

	genLogger := logger.With(zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries))

	opts := []gemini.Option{
		gemini.WithMaxRetries(cfg.Gemini.MaxRetries),
		gemini.WithLogger(genLogger),
	}
	if cfg.Gemini.Temperature != nil {
		opts = append(opts, gemini.WithTemperature(*cfg.Gemini.Temperature))
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, opts...)
	if err != nil {
		return nil, err
	}

	return evaluation.NewOracle(generator, logger, cfg.Gemini.MaxLogLength), nil
}

func openStore(ctx context.Context, cfg *StorageConfig) (storage.Store, error) {
	switch strings.TrimSpace(strings.ToLower(cfg.Driver)) {
	case "", driverMemory:
		return storage.NewMemoryStore(), nil
	case driverSQLite:
		path := strings.TrimSpace(cfg.SQLitePath)
		if path == "" {
			return nil, errors.New("storage.sqlite-path is required for the sqlite driver")
		}
		return storage.NewSQLiteStore(ctx, path)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}

// withStore opens the configured store and runs fn, closing the store on
// every return path.
func withStore(ctx context.Context, cfg *StorageConfig, fn func(storage.Store) error) (err error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing session store: %w", cerr)
		}
	}()

	return fn(store)
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path = strings.TrimSpace(path); path != "" {
		return catalog.Load(path)
	}
	return catalog.Default()
}

// serveMetrics exposes /metrics until ctx is done.
func serveMetrics(ctx context.Context, addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}
