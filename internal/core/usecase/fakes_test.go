package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"

	"github.com/campushq/regulations-assistant/internal/core/domain"
)

type fakeLLM struct {
	generate func(domain.Prompt) (string, error)
	prompts  []domain.Prompt
}

func (f *fakeLLM) Generate(_ context.Context, prompt domain.Prompt) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.generate == nil {
		return "", errors.New("no response scripted")
	}
	return f.generate(prompt)
}

type fakeEmbedder struct {
	embedErr error
	queryErr error
	queries  []string
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i), 1}
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.queries = append(f.queries, text)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return []float32{float32(len(text))}, nil
}

type fakeVectorStore struct {
	search  func(filter domain.SearchFilter) ([]domain.RetrievedChunk, error)
	filters []domain.SearchFilter

	indexed   []domain.Chunk
	indexErr  error
	recreated bool
}

func (f *fakeVectorStore) IndexChunks(_ context.Context, chunks []domain.Chunk, _ [][]float32) error {
	if f.indexErr != nil {
		return f.indexErr
	}
	f.indexed = append(f.indexed, chunks...)
	return nil
}

func (f *fakeVectorStore) Search(_ context.Context, _ []float32, _ int, filter domain.SearchFilter) ([]domain.RetrievedChunk, error) {
	f.filters = append(f.filters, filter)
	if f.search == nil {
		return nil, nil
	}
	return f.search(filter)
}

func (f *fakeVectorStore) Recreate(context.Context) error {
	f.recreated = true
	return nil
}

type fakeSessionStore struct {
	sessions map[string]*domain.Session
	turns    map[string][]domain.Turn

	appendErr error
	listErr   error
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		sessions: make(map[string]*domain.Session),
		turns:    make(map[string][]domain.Turn),
	}
}

func (f *fakeSessionStore) CreateSession(_ context.Context, session *domain.Session) error {
	copied := *session
	f.sessions[session.ID] = &copied
	return nil
}

func (f *fakeSessionStore) GetSession(_ context.Context, id string) (*domain.Session, error) {
	session, ok := f.sessions[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get session", errors.New(id))
	}
	copied := *session
	return &copied, nil
}

func (f *fakeSessionStore) ResetSession(_ context.Context, session *domain.Session) error {
	if _, ok := f.sessions[session.ID]; !ok {
		return domain.WrapError(domain.ErrNotFound, "reset session", errors.New(session.ID))
	}
	copied := *session
	f.sessions[session.ID] = &copied
	f.turns[session.ID] = nil
	return nil
}

func (f *fakeSessionStore) AppendTurn(_ context.Context, sessionID string, role domain.Role, content string) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	seq := len(f.turns[sessionID]) + 1
	f.turns[sessionID] = append(f.turns[sessionID], domain.Turn{
		Role:      role,
		Content:   content,
		Seq:       seq,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

func (f *fakeSessionStore) ListTurns(_ context.Context, sessionID string) ([]domain.Turn, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]domain.Turn(nil), f.turns[sessionID]...), nil
}

func (f *fakeSessionStore) ListRecentTurns(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error) {
	turns, err := f.ListTurns(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return turns, nil
}

type fakeCatalog struct {
	docs map[string]*domain.RegulationDocument

	statusUpdates []string
	updateErr     error
}

func newFakeCatalog(docs ...*domain.RegulationDocument) *fakeCatalog {
	c := &fakeCatalog{docs: make(map[string]*domain.RegulationDocument)}
	for _, doc := range docs {
		copied := *doc
		c.docs[doc.ID] = &copied
	}
	return c
}

func (f *fakeCatalog) Create(_ context.Context, doc *domain.RegulationDocument) error {
	copied := *doc
	f.docs[doc.ID] = &copied
	return nil
}

func (f *fakeCatalog) GetByID(_ context.Context, id string) (*domain.RegulationDocument, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get document", errors.New(id))
	}
	copied := *doc
	return &copied, nil
}

func (f *fakeCatalog) GetCourse(_ context.Context, faculty, programType, course string) (*domain.RegulationDocument, error) {
	for _, doc := range f.docs {
		if doc.Faculty == faculty && doc.ProgramType == programType && doc.Course == course {
			copied := *doc
			return &copied, nil
		}
	}
	return nil, domain.WrapError(domain.ErrNotFound, "get course", errors.New(course))
}

func (f *fakeCatalog) UpdateStatus(_ context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	doc, ok := f.docs[id]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "update status", errors.New(id))
	}
	doc.Status = status
	doc.Error = errMessage
	f.statusUpdates = append(f.statusUpdates, string(status))
	return nil
}

func (f *fakeCatalog) ListFaculties(context.Context) ([]string, error) { return nil, nil }

func (f *fakeCatalog) ListProgramTypes(context.Context, string) ([]string, error) { return nil, nil }

func (f *fakeCatalog) ListCourses(context.Context, string, string) ([]domain.RegulationDocument, error) {
	return nil, nil
}

type fakeStorage struct {
	saved   map[string][]byte
	saveErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{saved: make(map[string][]byte)}
}

func (f *fakeStorage) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	content, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.saved[key] = content
	return nil
}

func (f *fakeStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	content, ok := f.saved[key]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "open object", errors.New(key))
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

type fakeQueue struct {
	published  []string
	publishErr error
}

func (f *fakeQueue) PublishDocumentUploaded(_ context.Context, documentID string) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, documentID)
	return nil
}

func (f *fakeQueue) SubscribeDocumentUploaded(context.Context, func(context.Context, string) error) error {
	return nil
}

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) Extract(context.Context, *domain.RegulationDocument) (string, error) {
	return f.text, f.err
}

type fakeDataset struct {
	corpus  map[string][]domain.Chunk
	saveErr error
	loadErr error
}

func (f *fakeDataset) Save(_ context.Context, corpus map[string][]domain.Chunk) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.corpus = corpus
	return nil
}

func (f *fakeDataset) Load(context.Context) (map[string][]domain.Chunk, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.corpus, nil
}
