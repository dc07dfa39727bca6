package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/campushq/regulations-assistant/internal/core/domain"
	"github.com/campushq/regulations-assistant/internal/core/ports"
)

const defaultTopK = 5

// Retriever performs source-scoped similarity search. When expansions > 0 the
// query is paraphrased by the language model and the per-query result lists
// are fused; any expansion failure degrades to plain single-query retrieval.
type Retriever struct {
	embedder   ports.Embedder
	vectorDB   ports.VectorStore
	llm        ports.LanguageModel
	expansions int
	rrfK       int
}

func NewRetriever(
	embedder ports.Embedder,
	vectorDB ports.VectorStore,
	llm ports.LanguageModel,
	expansions, rrfK int,
) *Retriever {
	if expansions < 0 {
		expansions = 0
	}
	if rrfK <= 0 {
		rrfK = 60
	}
	return &Retriever{
		embedder:   embedder,
		vectorDB:   vectorDB,
		llm:        llm,
		expansions: expansions,
		rrfK:       rrfK,
	}
}

// Retrieve returns the top-k chunks of the given source, best first. An empty
// result means the source has no indexed content and is not an error.
func (r *Retriever) Retrieve(ctx context.Context, query, source string, k int) ([]domain.RetrievedChunk, error) {
	if strings.TrimSpace(source) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "retrieve", errors.New("source is required"))
	}
	if k <= 0 {
		k = defaultTopK
	}

	filter := domain.SearchFilter{Source: source}

	base, err := r.search(ctx, query, k, filter)
	if err != nil {
		return nil, err
	}

	lists := [][]domain.RetrievedChunk{base}
	for _, paraphrase := range r.paraphrases(ctx, query) {
		hits, err := r.search(ctx, paraphrase, k, filter)
		if err != nil {
			// Expanded queries are best-effort; the base result stands.
			slog.Warn("query_expansion_search_failed", "error", err)
			continue
		}
		lists = append(lists, hits)
	}

	if len(lists) == 1 {
		return base, nil
	}
	return trimChunks(fuseChunksRRF(lists, r.rrfK), k), nil
}

func (r *Retriever) search(ctx context.Context, query string, k int, filter domain.SearchFilter) ([]domain.RetrievedChunk, error) {
	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := r.vectorDB.Search(ctx, vector, k, filter)
	if err != nil {
		return nil, fmt.Errorf("search vector db: %w", err)
	}
	return hits, nil
}

// paraphrases asks the model for semantically equivalent reformulations.
// Failures disable expansion for this call only.
func (r *Retriever) paraphrases(ctx context.Context, query string) []string {
	if r.expansions == 0 || r.llm == nil {
		return nil
	}

	response, err := r.llm.Generate(ctx, domain.Prompt{
		System: fmt.Sprintf(
			"Genera %d riformulazioni alternative della domanda dell'utente, "+
				"mantenendo lo stesso significato. Scrivi una riformulazione per riga, senza altro testo.",
			r.expansions,
		),
		Input: query,
	})
	if err != nil {
		slog.Warn("query_expansion_failed", "error", err)
		return nil
	}

	out := make([]string, 0, r.expansions)
	for _, line := range strings.Split(response, "\n") {
		line = stripListMarker(line)
		if line == "" || strings.EqualFold(line, query) {
			continue
		}
		out = append(out, line)
		if len(out) == r.expansions {
			break
		}
	}
	return out
}

// stripListMarker removes "1." / "2)" / "-" style prefixes models like to add.
func stripListMarker(line string) string {
	line = strings.TrimSpace(line)
	line = strings.TrimLeft(line, "0123456789")
	line = strings.TrimLeft(line, ".)-")
	return strings.TrimSpace(line)
}
