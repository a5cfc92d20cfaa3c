package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/joseph-ayodele/traveler-intake/constants"
	"github.com/joseph-ayodele/traveler-intake/internal/common"
)

func newRepoWithMock(t *testing.T, d Dialect) (*documentRepo, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	repo := NewDocumentRepository(db, d, nil).(*documentRepo)
	repo.now = func() time.Time { return time.Date(2025, 7, 15, 9, 0, 0, 0, time.UTC) }
	return repo, mock, func() { _ = db.Close() }
}

func TestGetByIDReturnsNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t, Postgres)
	defer done()

	mock.ExpectQuery(`SELECT id, doc_type, (.|\n)* FROM documents WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestFinishExtractReturnsNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newRepoWithMock(t, Postgres)
	defer done()

	mock.ExpectExec(`UPDATE documents SET fields_json = \$1, needs_review = \$2, status = \$3, finished_at = \$4 WHERE id = \$5`).
		WithArgs(`{"surname":"DOE"}`, true, string(constants.JobStatusExtracted), sqlmock.AnyArg(), "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.FinishExtract(context.Background(), "missing", []byte(`{"surname":"DOE"}`), true)
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestStartWrapsDatabaseErrors(t *testing.T) {
	repo, mock, done := newRepoWithMock(t, SQLite)
	defer done()

	mock.ExpectExec(`INSERT INTO documents`).
		WithArgs(sqlmock.AnyArg(), "passport", "main", "/cap/p.jpg", "abc", "images/k.jpg", "RUNNING", sqlmock.AnyArg()).
		WillReturnError(errors.New("unique constraint"))

	_, err := repo.Start(context.Background(), StartParams{
		DocType: constants.Passport, Subtype: constants.SubtypeMain,
		SourcePath: "/cap/p.jpg", ContentHash: "abc", StorageKey: "images/k.jpg",
	})
	if !errors.Is(err, common.ErrDatabase) {
		t.Fatalf("expected ErrDatabase, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListBuildsFilters(t *testing.T) {
	repo, mock, done := newRepoWithMock(t, Postgres)
	defer done()

	from := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	created := time.Date(2025, 7, 2, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "doc_type", "subtype", "source_path", "content_hash", "storage_key",
		"ocr_text", "ocr_method", "confidence", "fields_json", "needs_review", "status", "error_message",
		"created_at", "finished_at"}).
		AddRow("d1", "boarding_pass", "arrival", "/cap/bp.jpg", "h1", "k1",
			"DL 1234", "image-ocr", 0.8, `{"flight_number":"DL1234"}`, false, "EXTRACTED", nil,
			created, created)

	mock.ExpectQuery(`FROM documents WHERE created_at >= \$1 AND doc_type = \$2 ORDER BY created_at`).
		WithArgs(from, "boarding_pass").
		WillReturnRows(rows)

	docs, err := repo.List(context.Background(), ListFilter{From: &from, DocType: constants.BoardingPass})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	d := docs[0]
	if d.Status != constants.JobStatusExtracted || d.Subtype != constants.SubtypeArrival {
		t.Fatalf("unexpected document %+v", d)
	}
	if d.Confidence == nil || *d.Confidence != float32(0.8) {
		t.Fatalf("expected confidence 0.8, got %v", d.Confidence)
	}
	if d.ErrorMessage != nil {
		t.Fatalf("expected no error message, got %q", *d.ErrorMessage)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRebind(t *testing.T) {
	q := "UPDATE documents SET a = ?, b = ? WHERE id = ?"
	if got := rebind(Postgres, q); got != "UPDATE documents SET a = $1, b = $2 WHERE id = $3" {
		t.Fatalf("unexpected postgres query %q", got)
	}
	if got := rebind(SQLite, q); got != q {
		t.Fatalf("expected sqlite query unchanged, got %q", got)
	}
}
