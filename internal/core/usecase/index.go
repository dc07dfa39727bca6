package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/campushq/regulations-assistant/internal/core/domain"
	"github.com/campushq/regulations-assistant/internal/core/ports"
)

// IndexCorpusUseCase runs the offline phase for one regulation document:
// extract text, segment into article chunks, snapshot the chunk dataset,
// embed and index. Indexing is append-only; rebuilding from scratch is the
// caller's job (VectorStore.Recreate before a batch run).
type IndexCorpusUseCase struct {
	catalog   ports.CatalogRepository
	extractor ports.TextExtractor
	segmenter *Segmenter
	embedder  ports.Embedder
	vectorDB  ports.VectorStore
	dataset   ports.ChunkDataset
}

func NewIndexCorpusUseCase(
	catalog ports.CatalogRepository,
	extractor ports.TextExtractor,
	segmenter *Segmenter,
	embedder ports.Embedder,
	vectorDB ports.VectorStore,
	dataset ports.ChunkDataset,
) *IndexCorpusUseCase {
	return &IndexCorpusUseCase{
		catalog:   catalog,
		extractor: extractor,
		segmenter: segmenter,
		embedder:  embedder,
		vectorDB:  vectorDB,
		dataset:   dataset,
	}
}

func (uc *IndexCorpusUseCase) IndexByID(ctx context.Context, documentID string) error {
	if err := uc.catalog.UpdateStatus(ctx, documentID, domain.StatusSegmenting, ""); err != nil {
		return fmt.Errorf("set status=segmenting: %w", err)
	}

	if err := uc.indexPipeline(ctx, documentID); err != nil {
		if failErr := uc.catalog.UpdateStatus(ctx, documentID, domain.StatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.catalog.UpdateStatus(ctx, documentID, domain.StatusIndexed, ""); err != nil {
		return fmt.Errorf("set status=indexed: %w", err)
	}
	return nil
}

func (uc *IndexCorpusUseCase) indexPipeline(ctx context.Context, documentID string) error {
	doc, err := uc.catalog.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("fetch document by id: %w", err)
	}

	text, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return fmt.Errorf("extract text: %w", err)
	}

	chunks, issues := uc.segmenter.Segment(text, doc.Source())
	for _, issue := range issues {
		slog.Warn("chunk_without_article_number", "document_id", doc.ID, "error", issue)
	}

	if uc.dataset != nil {
		if err := uc.snapshotChunks(ctx, doc.Source(), chunks); err != nil {
			return err
		}
	}

	// A regulation without a single "Art." heading is an empty corpus, not a
	// failure: the source simply never shows up in retrieval.
	if len(chunks) == 0 {
		slog.Warn("empty_corpus_for_source", "document_id", doc.ID, "source", doc.Source())
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return domain.WrapError(
			domain.ErrInvalidInput,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(chunks)),
		)
	}

	if err := uc.vectorDB.IndexChunks(ctx, chunks, vectors); err != nil {
		return fmt.Errorf("index chunks in vector db: %w", err)
	}
	return nil
}

func (uc *IndexCorpusUseCase) snapshotChunks(ctx context.Context, source string, chunks []domain.Chunk) error {
	corpus, err := uc.dataset.Load(ctx)
	if err != nil {
		return fmt.Errorf("load chunk dataset: %w", err)
	}
	if corpus == nil {
		corpus = make(map[string][]domain.Chunk, 1)
	}
	corpus[source] = chunks
	if err := uc.dataset.Save(ctx, corpus); err != nil {
		return fmt.Errorf("save chunk dataset: %w", err)
	}
	return nil
}
