package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/campushq/regulations-assistant/internal/core/domain"
	"github.com/campushq/regulations-assistant/internal/core/ports"
)

// SessionUseCase drives the guided document selection: a session always
// points at exactly one cataloged regulation, and restarting the selection
// wipes the transcript.
type SessionUseCase struct {
	catalog  ports.CatalogRepository
	sessions ports.SessionStore
}

func NewSessionUseCase(catalog ports.CatalogRepository, sessions ports.SessionStore) *SessionUseCase {
	return &SessionUseCase{catalog: catalog, sessions: sessions}
}

func (uc *SessionUseCase) Start(ctx context.Context, faculty, programType, course string) (*domain.Session, error) {
	doc, err := uc.resolveCourse(ctx, faculty, programType, course)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	session := &domain.Session{
		ID:          uuid.NewString(),
		Faculty:     doc.Faculty,
		ProgramType: doc.ProgramType,
		Course:      doc.Course,
		Source:      doc.Source(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uc.sessions.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// Restart re-runs the selection for an existing session. The old transcript
// is discarded so answers never mix regulations.
func (uc *SessionUseCase) Restart(ctx context.Context, sessionID, faculty, programType, course string) (*domain.Session, error) {
	session, err := uc.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("fetch session: %w", err)
	}

	doc, err := uc.resolveCourse(ctx, faculty, programType, course)
	if err != nil {
		return nil, err
	}

	session.Faculty = doc.Faculty
	session.ProgramType = doc.ProgramType
	session.Course = doc.Course
	session.Source = doc.Source()
	session.UpdatedAt = time.Now().UTC()
	if err := uc.sessions.ResetSession(ctx, session); err != nil {
		return nil, fmt.Errorf("reset session: %w", err)
	}
	return session, nil
}

func (uc *SessionUseCase) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := uc.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("fetch session: %w", err)
	}
	return session, nil
}

func (uc *SessionUseCase) resolveCourse(ctx context.Context, faculty, programType, course string) (*domain.RegulationDocument, error) {
	faculty = strings.TrimSpace(faculty)
	programType = strings.TrimSpace(programType)
	course = strings.TrimSpace(course)
	if faculty == "" || programType == "" || course == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "resolve course",
			errors.New("faculty, program type and course are required"))
	}

	doc, err := uc.catalog.GetCourse(ctx, faculty, programType, course)
	if err != nil {
		return nil, fmt.Errorf("resolve course: %w", err)
	}
	return doc, nil
}
