package bootstrap

import (
	"context"
	"fmt"

	"github.com/campushq/regulations-assistant/internal/config"
	"github.com/campushq/regulations-assistant/internal/core/ports"
	"github.com/campushq/regulations-assistant/internal/core/usecase"
	"github.com/campushq/regulations-assistant/internal/infrastructure/chunking"
	"github.com/campushq/regulations-assistant/internal/infrastructure/extractor/pdftext"
	"github.com/campushq/regulations-assistant/internal/infrastructure/llm/ollama"
	"github.com/campushq/regulations-assistant/internal/infrastructure/queue/nats"
	"github.com/campushq/regulations-assistant/internal/infrastructure/repository/postgres"
	"github.com/campushq/regulations-assistant/internal/infrastructure/resilience"
	"github.com/campushq/regulations-assistant/internal/infrastructure/storage/localfs"
	"github.com/campushq/regulations-assistant/internal/infrastructure/vector/qdrant"
)

// App wires the full dependency graph once and hands the pieces to the api
// and indexer binaries.
type App struct {
	Config config.Config

	Queue    ports.MessageQueue
	Catalog  ports.CatalogRepository
	VectorDB ports.VectorStore
	Dataset  ports.ChunkDataset

	UploadUC  ports.RegulationUploader
	IndexUC   ports.CorpusIndexer
	SessionUC ports.SessionService
	ChatUC    ports.ChatService

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	catalog := postgres.NewCatalogRepository(db)
	if err := catalog.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure catalog schema: %w", err)
	}
	sessions := postgres.NewSessionRepository(db)
	if err := sessions.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure session schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}
	dataset, err := localfs.NewDataset(cfg.DatasetPath)
	if err != nil {
		return nil, fmt.Errorf("init chunk dataset: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultPolicy())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	llm := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, cfg.OllamaMaxRPS, executor)
	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)

	splitter := chunking.NewSplitter(cfg.MaxChunkChars, cfg.ChunkOverlap)
	policy := usecase.DropUntagged
	if cfg.KeepUntaggedChunks {
		policy = usecase.KeepUntagged
	}
	segmenter := usecase.NewSegmenter(splitter, cfg.FrontMatterKeyword, policy)
	extractor := pdftext.NewExtractor(storage)

	retriever := usecase.NewRetriever(llm, vectorDB, llm, cfg.QueryExpansions, cfg.RRFK)
	classifier := usecase.NewQueryClassifier(llm)

	uploadUC := usecase.NewUploadRegulationUseCase(storage, catalog, queue)
	indexUC := usecase.NewIndexCorpusUseCase(catalog, extractor, segmenter, llm, vectorDB, dataset)
	sessionUC := usecase.NewSessionUseCase(catalog, sessions)
	chatUC := usecase.NewAnswerUseCase(retriever, classifier, llm, sessions, cfg.RetrievalTopK, cfg.HistoryWindow)

	return &App{
		Config: cfg,

		Queue:    queue,
		Catalog:  catalog,
		VectorDB: vectorDB,
		Dataset:  dataset,

		UploadUC:  uploadUC,
		IndexUC:   indexUC,
		SessionUC: sessionUC,
		ChatUC:    chatUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
