package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/campushq/regulations-assistant/internal/core/domain"
	"github.com/campushq/regulations-assistant/internal/core/ports"
)

// UploadRegulationUseCase stores a regulation PDF, catalogs it under its
// faculty/program/course coordinates and schedules the indexing run.
type UploadRegulationUseCase struct {
	storage ports.ObjectStorage
	catalog ports.CatalogRepository
	queue   ports.MessageQueue
}

func NewUploadRegulationUseCase(
	storage ports.ObjectStorage,
	catalog ports.CatalogRepository,
	queue ports.MessageQueue,
) *UploadRegulationUseCase {
	return &UploadRegulationUseCase{storage: storage, catalog: catalog, queue: queue}
}

func (uc *UploadRegulationUseCase) Upload(
	ctx context.Context,
	faculty, programType, course, filename string,
	body io.Reader,
) (*domain.RegulationDocument, error) {
	faculty = strings.TrimSpace(faculty)
	programType = strings.TrimSpace(programType)
	course = strings.TrimSpace(course)
	filename = sanitizeFilename(filename)
	if faculty == "" || programType == "" || course == "" || filename == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload regulation",
			errors.New("faculty, program type, course and filename are required"))
	}

	now := time.Now().UTC()
	doc := &domain.RegulationDocument{
		ID:          uuid.NewString(),
		Faculty:     faculty,
		ProgramType: programType,
		Course:      course,
		Filename:    filename,
		StoragePath: path.Join(pathSegment(faculty), pathSegment(programType), pathSegment(course), filename),
		Status:      domain.StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.storage.Save(ctx, doc.StoragePath, body); err != nil {
		return nil, fmt.Errorf("store regulation file: %w", err)
	}

	if err := uc.catalog.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("catalog regulation: %w", err)
	}

	// Upload stays valid even when the queue is down; the batch indexer
	// picks up uploaded documents on its next run.
	if err := uc.queue.PublishDocumentUploaded(ctx, doc.ID); err != nil {
		slog.Warn("publish_document_uploaded_failed", "document_id", doc.ID, "error", err)
	}
	return doc, nil
}

// sanitizeFilename keeps the base name and refuses path traversal attempts.
func sanitizeFilename(filename string) string {
	filename = strings.TrimSpace(filename)
	filename = path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if filename == "." || filename == "/" || filename == ".." {
		return ""
	}
	return filename
}

// pathSegment normalizes catalog coordinates into storage path pieces.
func pathSegment(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	value = strings.ReplaceAll(value, " ", "_")
	value = strings.ReplaceAll(value, "/", "_")
	return value
}
