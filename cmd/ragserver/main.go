package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/perbu/ragchain/pkg/auxiliary"
	"github.com/perbu/ragchain/pkg/chain"
	"github.com/perbu/ragchain/pkg/config"
	"github.com/perbu/ragchain/pkg/embedder"
	"github.com/perbu/ragchain/pkg/httpx"
	"github.com/perbu/ragchain/pkg/llm"
	"github.com/perbu/ragchain/pkg/logger"
	"github.com/perbu/ragchain/pkg/metrics"
	"github.com/perbu/ragchain/pkg/retriever"
	"github.com/perbu/ragchain/pkg/server"
	"github.com/perbu/ragchain/pkg/state"
	"github.com/valyala/fasthttp"
)

const shutdownTimeout = 10 * time.Second

func main() {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Println("no .env file found, using system environment variables")
	}

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logger.NewLogger("ragserver", cfg.Log.Level)
	for _, w := range cfg.Validate() {
		logger.Warn(w)
	}

	emb, err := embedder.New(embedder.Options{
		Provider:  cfg.Embedder.Provider,
		Model:     cfg.Embedder.Model,
		APIKey:    cfg.Embedder.APIKey,
		BaseURL:   cfg.Embedder.BaseURL,
		Dimension: cfg.Embedder.Dimension,
	})
	if err != nil {
		logger.Fatalf("Failed to initialize embedder: %v", err)
	}

	generator, err := llm.New(llm.Options{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Temperature: &cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	})
	if err != nil {
		logger.Fatalf("Failed to initialize llm: %v", err)
	}

	fetcher := auxiliary.NewFetcher(
		&fasthttp.Client{
			Name:                "ragchain",
			MaxConnsPerHost:     64,
			MaxIdleConnDuration: 30 * time.Second,
		},
		cfg.Auxiliary.URL,
		cfg.Auxiliary.Timeout,
		httpx.NewCircuitBreaker("auxiliary", cfg.Auxiliary.OpenTimeout, cfg.Auxiliary.MaxFailures),
		logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The server starts accepting requests right away; queries fail with
	// 500 until the index has loaded.
	retrievers := state.NewFuture[chain.Retriever]()
	retrievers.Start(ctx, func(context.Context) (chain.Retriever, error) {
		r, err := retriever.Load(cfg.Index.Dir, emb, 1, logger)
		if err != nil {
			return nil, err
		}
		return r, nil
	})

	m := metrics.New()
	srv := server.New(
		server.Config{Port: cfg.Server.Port, InitWait: cfg.Server.InitWait},
		retrievers,
		chain.New(fetcher, generator, m, logger),
		m,
		logger,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.WithError(err).Fatal("server failed")
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("shutdown failed")
	}
}
