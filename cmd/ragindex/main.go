package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/perbu/ragchain/pkg/config"
	"github.com/perbu/ragchain/pkg/embedder"
	"github.com/perbu/ragchain/pkg/index"
	"github.com/perbu/ragchain/pkg/indexer"
	"github.com/perbu/ragchain/pkg/logger"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	// Load .env file if it exists (for API keys)
	_ = godotenv.Load(envFile())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command line and reports a failure exactly once, on stderr.
func run(ctx context.Context, args []string, stderr io.Writer) int {
	rootCmd := newRootCmd(stderr)
	rootCmd.SetArgs(args)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd(stderr io.Writer) *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "ragindex",
		Short:         "Build and inspect the rag document index",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path")

	var docsDir, outDir string
	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Embed every document and save the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), configPath, docsDir, outDir, stderr)
		},
	}
	buildCmd.Flags().StringVar(&docsDir, "docs", "", "Documents directory (default from index.docs_dir)")
	buildCmd.Flags().StringVar(&outDir, "out", "", "Index directory (default from index.dir)")

	var (
		top       int
		threshold float64
		full      bool
	)
	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Rank indexed documents against a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), configPath, strings.Join(args, " "), top, float32(threshold), full, stderr)
		},
	}
	searchCmd.Flags().IntVar(&top, "top", 5, "Number of results to return")
	searchCmd.Flags().Float64Var(&threshold, "threshold", 0.0, "Minimum similarity score")
	searchCmd.Flags().BoolVar(&full, "full", false, "Show full content instead of just sources")

	rootCmd.AddCommand(buildCmd, searchCmd)
	rootCmd.SetErr(stderr)
	return rootCmd
}

func envFile() string {
	if p := os.Getenv("ENV_FILE"); p != "" {
		return p
	}
	return ".env"
}

func setup(configPath string, stderr io.Writer) (*config.Config, *logrus.Logger, embedder.Embedder, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	log := logger.NewLogger("ragindex", cfg.Log.Level)
	log.SetOutput(stderr)
	for _, w := range cfg.ValidateEmbedder() {
		log.Warn(w)
	}

	emb, err := embedder.New(embedder.Options{
		Provider:  cfg.Embedder.Provider,
		Model:     cfg.Embedder.Model,
		APIKey:    cfg.Embedder.APIKey,
		BaseURL:   cfg.Embedder.BaseURL,
		Dimension: cfg.Embedder.Dimension,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("initializing embedder: %w", err)
	}
	return cfg, log, emb, nil
}

func runBuild(ctx context.Context, configPath, docsDir, outDir string, stderr io.Writer) error {
	cfg, log, emb, err := setup(configPath, stderr)
	if err != nil {
		return err
	}
	if docsDir == "" {
		docsDir = cfg.Index.DocsDir
	}
	if outDir == "" {
		outDir = cfg.Index.Dir
	}

	log.WithFields(logrus.Fields{
		"docs":  docsDir,
		"out":   outDir,
		"model": emb.ModelInfo(),
	}).Info("building index")

	_, err = indexer.Run(ctx, indexer.Options{
		DocsDir:     docsDir,
		Extension:   cfg.Index.Extension,
		OutDir:      outDir,
		Concurrency: cfg.Embedder.Concurrency,
	}, emb, log)
	return err
}

func runSearch(ctx context.Context, configPath, query string, top int, threshold float32, full bool, stderr io.Writer) error {
	cfg, log, emb, err := setup(configPath, stderr)
	if err != nil {
		return err
	}

	ix, err := index.Load(cfg.Index.Dir)
	if err != nil {
		return fmt.Errorf("loading index: %w", err)
	}
	if ix.ModelInfo != emb.ModelInfo() {
		log.WithFields(logrus.Fields{
			"index_model":    ix.ModelInfo,
			"embedder_model": emb.ModelInfo(),
		}).Warn("index was built with a different embedding model")
	}

	vec, err := emb.Embed(ctx, query)
	if err != nil {
		return fmt.Errorf("embedding query: %w", err)
	}

	results := ix.Search(vec, top, threshold)
	if len(results) == 0 {
		fmt.Println("No results found")
		return nil
	}

	fmt.Printf("Found %d results:\n\n", len(results))
	for i, result := range results {
		fmt.Printf("Score: %.2f | %s\n", result.Score, result.Document.Source)
		if full {
			fmt.Printf("\n%s\n", result.Document.Text)
			if i < len(results)-1 {
				fmt.Println("\n" + strings.Repeat("-", 80) + "\n")
			}
		}
	}
	return nil
}
