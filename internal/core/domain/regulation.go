package domain

import "time"

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusSegmenting DocumentStatus = "segmenting"
	StatusIndexed    DocumentStatus = "indexed"
	StatusFailed     DocumentStatus = "failed"
)

// RegulationDocument is one course regulation inside the catalog.
// StoragePath doubles as the retrieval source identity: every chunk produced
// from this document carries it, and retrieval is filtered on it.
type RegulationDocument struct {
	ID          string         `json:"id"`
	Faculty     string         `json:"faculty"`
	ProgramType string         `json:"program_type"`
	Course      string         `json:"course"`
	Filename    string         `json:"filename"`
	StoragePath string         `json:"storage_path"`
	Status      DocumentStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Source returns the identity chunks and vector payloads are tagged with.
func (d *RegulationDocument) Source() string {
	return d.StoragePath
}
