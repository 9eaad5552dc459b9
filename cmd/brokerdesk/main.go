// Command brokerdesk is a policy library assistant for mortgage brokers.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/brokerdesk/internal/adapters/driven/ai"
	"github.com/custodia-labs/brokerdesk/internal/adapters/driven/config/file"
	"github.com/custodia-labs/brokerdesk/internal/adapters/driven/filestore"
	"github.com/custodia-labs/brokerdesk/internal/adapters/driven/lock"
	"github.com/custodia-labs/brokerdesk/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/brokerdesk/internal/adapters/driving/cli"
	"github.com/custodia-labs/brokerdesk/internal/core/services"
	"github.com/custodia-labs/brokerdesk/internal/logger"
	"github.com/custodia-labs/brokerdesk/internal/normalisers"
	"github.com/custodia-labs/brokerdesk/internal/postprocessors/chunker"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	code := 0
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		code = 1
	}
	logger.Sync()
	os.Exit(code)
}

func run() error {
	homeDir, err := file.DefaultDir()
	if err != nil {
		return fmt.Errorf("resolve home directory: %w", err)
	}

	// The working directory .env wins over the one in the home directory.
	if err := file.LoadDotEnv(".env", filepath.Join(homeDir, ".env")); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}

	configStore, err := file.NewConfigStore(homeDir)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator(), homeDir)

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	store, err := sqlite.NewStore(settings.Library.DataDir)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	files, err := filestore.New(settings.Library.Dir)
	if err != nil {
		return fmt.Errorf("open library: %w", err)
	}

	prompts, err := file.NewPromptStore(filepath.Join(homeDir, "prompts"))
	if err != nil {
		return fmt.Errorf("open prompts: %w", err)
	}

	aiServices := ai.Initialise(context.Background(), settings)
	defer aiServices.Close()

	docs := store.DocumentStore()
	ops := store.OperationLog()
	ingestCfg := services.IngestConfig{
		Chunking:  settings.Chunking,
		BatchSize: settings.Embedding.BatchSize,
	}

	ingestService := services.NewIngestService(
		normalisers.NewDefaultRegistry(),
		chunker.New(),
		docs,
		ops,
		files,
		aiServices.EmbeddingService,
		aiServices.VectorIndex,
		ingestCfg,
	)
	syncService := services.NewSyncService(
		files,
		lock.New(settings.Library.DataDir),
		docs,
		ops,
		aiServices.VectorIndex,
		aiServices.EmbeddingService,
		ingestService,
		ingestCfg,
	)
	syncService.OnProgress(func(p services.SyncProgress) {
		if p.Err != nil {
			logger.Warn("sync: %s: %v", p.Path, p.Err)
			return
		}
		logger.Debug("sync: %s", p.Path)
	})
	retrievalService := services.NewRetrievalService(
		docs,
		aiServices.VectorIndex,
		aiServices.EmbeddingService,
		settings.Retrieval.TopK,
	)
	answerService := services.NewAnswerService(
		retrievalService,
		aiServices.LLMService,
		prompts,
		settings.LLM.Provider,
		settings.Retrieval.MaxContextChars,
	)
	scheduler := services.NewScheduler(services.SchedulerConfig{
		Debounce:   services.DefaultSyncDebounce,
		RunOnStart: true,
	}, syncService)

	cli.SetVersion(version)
	cli.SetServices(cli.Services{
		Ingest:     ingestService,
		Sync:       syncService,
		Search:     retrievalService,
		Answer:     answerService,
		Document:   services.NewDocumentService(docs, ops, aiServices.VectorIndex),
		Settings:   settingsService,
		Scheduler:  scheduler,
		LibraryDir: files.Root(),
	})

	return cli.Execute()
}
