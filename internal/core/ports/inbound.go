package ports

import (
	"context"
	"io"

	"github.com/campushq/regulations-assistant/internal/core/domain"
)

// RegulationUploader is the inbound contract for adding a regulation to the
// catalog.
type RegulationUploader interface {
	Upload(ctx context.Context, faculty, programType, course, filename string, body io.Reader) (*domain.RegulationDocument, error)
}

// CorpusIndexer is the inbound contract for the offline segment+index phase.
type CorpusIndexer interface {
	IndexByID(ctx context.Context, documentID string) error
}

// SessionService manages the guided document selection.
type SessionService interface {
	Start(ctx context.Context, faculty, programType, course string) (*domain.Session, error)
	Restart(ctx context.Context, sessionID, faculty, programType, course string) (*domain.Session, error)
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
}

// ChatService answers one question inside a session.
type ChatService interface {
	Answer(ctx context.Context, session *domain.Session, question string) (*domain.Answer, error)
}
