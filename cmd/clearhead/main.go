// Package main provides the clearhead worker entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/thebtf/clearhead/internal/config"
	gormdb "github.com/thebtf/clearhead/internal/db/gorm"
	"github.com/thebtf/clearhead/internal/embed"
	"github.com/thebtf/clearhead/internal/extract"
	"github.com/thebtf/clearhead/internal/importer"
	"github.com/thebtf/clearhead/internal/llm"
	"github.com/thebtf/clearhead/internal/pipeline"
	"github.com/thebtf/clearhead/internal/search"
	"github.com/thebtf/clearhead/internal/transcribe"
	"github.com/thebtf/clearhead/internal/worker"
	"github.com/thebtf/clearhead/internal/worker/sse"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", config.SettingsPath(), "Path to settings file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true})

	if err := config.EnsureDataDir(); err != nil {
		log.Fatal().Err(err).Msg("Failed to create data directory")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("Failed to load configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("Shutting down")
		cancel()
	}()

	store, err := gormdb.NewStore(gormdb.Config{
		Driver:   cfg.DBDriver,
		Path:     cfg.DBPath,
		DSN:      cfg.DBDSN,
		MaxConns: cfg.MaxConns,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer store.Close()

	dumps := gormdb.NewDumpStore(store)
	thoughts := gormdb.NewThoughtStore(store)
	vectors := gormdb.NewVectorStore(store)

	llmClient, err := llm.New(llm.Config{
		BaseURL:     cfg.LLMBaseURL,
		Model:       cfg.Model,
		APIKey:      cfg.LLMAPIKey,
		Temperature: cfg.Temperature,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize completion client")
	}
	extractor := extract.NewExtractor(llmClient)

	var embedder *embed.Client
	embedder, err = embed.New(embed.Config{
		BaseURL: cfg.LLMBaseURL,
		Model:   cfg.EmbeddingModel,
		APIKey:  cfg.LLMAPIKey,
		Dims:    cfg.EmbeddingDims,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Embeddings unavailable, search disabled")
		embedder = nil
	}

	// Speech-to-text needs Google credentials; without them voice dumps are
	// rejected but everything else works.
	var transcriber *transcribe.Client
	if os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != "" {
		transcriber, err = transcribe.New(ctx, transcribe.Config{})
		if err != nil {
			log.Warn().Err(err).Msg("Speech client unavailable, voice dumps disabled")
			transcriber = nil
		} else {
			defer transcriber.Close()
		}
	} else {
		log.Info().Msg("No Google credentials, voice dumps disabled")
	}

	broadcaster := sse.NewBroadcaster()

	deps := pipeline.Deps{
		Dumps:        dumps,
		Thoughts:     thoughts,
		Vectors:      vectors,
		Extractor:    extractor,
		ModelVersion: cfg.Model,
		Timezone:     cfg.Timezone,
		Notifier:     broadcaster,
	}
	if transcriber != nil {
		deps.Transcriber = transcriber
	}
	if embedder != nil {
		deps.Embedder = embedder
	}
	pl := pipeline.New(deps)

	var searcher *search.Manager
	if embedder != nil {
		searcher = search.NewManager(embedder, vectors, thoughts)
	}

	svc := worker.NewService(Version, worker.Options{Workers: cfg.Workers}, dumps, thoughts, pl, searcher, broadcaster)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           svc.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return svc.Run(ctx) })
	g.Go(func() error {
		log.Info().Int("port", cfg.Port).Str("version", Version).Msg("Starting clearhead worker")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	if cfg.InboxDir != "" {
		imp, err := importer.New(cfg.InboxDir, cfg.UserID, dumps, svc)
		if err != nil {
			log.Warn().Err(err).Str("dir", cfg.InboxDir).Msg("Failed to start inbox importer")
		} else {
			g.Go(func() error { return imp.Run(ctx) })
		}
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("Worker exited with error")
	}
}
