package ports

import (
	"context"
	"io"

	"github.com/campushq/regulations-assistant/internal/core/domain"
)

// CatalogRepository persists the faculty/program/course catalog and the
// lifecycle state of each regulation document.
type CatalogRepository interface {
	Create(ctx context.Context, doc *domain.RegulationDocument) error
	GetByID(ctx context.Context, id string) (*domain.RegulationDocument, error)
	GetCourse(ctx context.Context, faculty, programType, course string) (*domain.RegulationDocument, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	ListFaculties(ctx context.Context) ([]string, error)
	ListProgramTypes(ctx context.Context, faculty string) ([]string, error)
	ListCourses(ctx context.Context, faculty, programType string) ([]domain.RegulationDocument, error)
}

// SessionStore persists sessions and their append-only transcripts.
type SessionStore interface {
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	// ResetSession replaces the selected source and deletes every stored turn.
	ResetSession(ctx context.Context, session *domain.Session) error
	AppendTurn(ctx context.Context, sessionID string, role domain.Role, content string) error
	ListTurns(ctx context.Context, sessionID string) ([]domain.Turn, error)
	ListRecentTurns(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error)
}

// ObjectStorage stores the regulation PDFs.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue carries document ids from upload to the indexing worker.
type MessageQueue interface {
	PublishDocumentUploaded(ctx context.Context, documentID string) error
	SubscribeDocumentUploaded(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts plain text from a stored regulation document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.RegulationDocument) (string, error)
}

// Embedder builds vectors for chunks and query text. The same model must be
// used for indexing and querying.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Splitter re-splits oversized article chunks on text boundaries.
type Splitter interface {
	Split(text string) []string
}

// VectorStore indexes chunk vectors and performs source-filtered search.
// The index is append-only; Recreate drops it for a clean rebuild.
type VectorStore interface {
	IndexChunks(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error
	Search(ctx context.Context, queryVector []float32, limit int, filter domain.SearchFilter) ([]domain.RetrievedChunk, error)
	Recreate(ctx context.Context) error
}

// LanguageModel produces text from a structured prompt. Used for
// classification, decomposition, query expansion and answer synthesis.
type LanguageModel interface {
	Generate(ctx context.Context, prompt domain.Prompt) (string, error)
}

// ChunkDataset persists the segmenter output between the offline phases.
type ChunkDataset interface {
	Save(ctx context.Context, corpus map[string][]domain.Chunk) error
	Load(ctx context.Context) (map[string][]domain.Chunk, error)
}
