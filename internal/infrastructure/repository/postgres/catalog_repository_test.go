package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/campushq/regulations-assistant/internal/core/domain"
)

func testRegulation() *domain.RegulationDocument {
	now := time.Now().UTC()
	return &domain.RegulationDocument{
		ID:          "doc-1",
		Faculty:     "Scienze",
		ProgramType: "triennale",
		Course:      "Informatica",
		Filename:    "regolamento.pdf",
		StoragePath: "scienze/triennale/informatica/regolamento.pdf",
		Status:      domain.StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func regulationColumns() []string {
	return []string{
		"id", "faculty", "program_type", "course", "filename",
		"storage_path", "status", "error_message", "created_at", "updated_at",
	}
}

func TestCatalogCreateUpsertsOnCourseConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	doc := testRegulation()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO regulations")).
		WithArgs(
			doc.ID, doc.Faculty, doc.ProgramType, doc.Course, doc.Filename,
			doc.StoragePath, string(doc.Status), doc.Error, doc.CreatedAt, doc.UpdatedAt,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewCatalogRepository(db)
	if err := repo.Create(context.Background(), doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCatalogGetCourse(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	doc := testRegulation()
	rows := sqlmock.NewRows(regulationColumns()).AddRow(
		doc.ID, doc.Faculty, doc.ProgramType, doc.Course, doc.Filename,
		doc.StoragePath, string(doc.Status), doc.Error, doc.CreatedAt, doc.UpdatedAt,
	)
	mock.ExpectQuery(regexp.QuoteMeta("FROM regulations")).
		WithArgs("Scienze", "triennale", "Informatica").
		WillReturnRows(rows)

	repo := NewCatalogRepository(db)
	got, err := repo.GetCourse(context.Background(), "Scienze", "triennale", "Informatica")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.StoragePath != doc.StoragePath || got.Status != domain.StatusUploaded {
		t.Fatalf("unexpected document: %#v", got)
	}
}

func TestCatalogGetCourseNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM regulations")).
		WithArgs("Scienze", "triennale", "Matematica").
		WillReturnRows(sqlmock.NewRows(regulationColumns()))

	repo := NewCatalogRepository(db)
	_, err = repo.GetCourse(context.Background(), "Scienze", "triennale", "Matematica")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCatalogUpdateStatusUnknownID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE regulations")).
		WithArgs("missing", string(domain.StatusIndexed), "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewCatalogRepository(db)
	err = repo.UpdateStatus(context.Background(), "missing", domain.StatusIndexed, "")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCatalogListFaculties(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT faculty")).
		WillReturnRows(sqlmock.NewRows([]string{"faculty"}).AddRow("Ingegneria").AddRow("Scienze"))

	repo := NewCatalogRepository(db)
	faculties, err := repo.ListFaculties(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(faculties) != 2 || faculties[0] != "Ingegneria" {
		t.Fatalf("unexpected faculties: %#v", faculties)
	}
}

func TestCatalogListCourses(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	doc := testRegulation()
	rows := sqlmock.NewRows(regulationColumns()).AddRow(
		doc.ID, doc.Faculty, doc.ProgramType, doc.Course, doc.Filename,
		doc.StoragePath, string(doc.Status), doc.Error, doc.CreatedAt, doc.UpdatedAt,
	)
	mock.ExpectQuery(regexp.QuoteMeta("FROM regulations")).
		WithArgs("Scienze", "triennale").
		WillReturnRows(rows)

	repo := NewCatalogRepository(db)
	courses, err := repo.ListCourses(context.Background(), "Scienze", "triennale")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(courses) != 1 || courses[0].Course != "Informatica" {
		t.Fatalf("unexpected courses: %#v", courses)
	}
}
