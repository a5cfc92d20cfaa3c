package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/traveler-intake/constants"
	"github.com/joseph-ayodele/traveler-intake/internal/common"
	"github.com/joseph-ayodele/traveler-intake/internal/entity"
)

// StartParams describes a capture entering the pipeline.
type StartParams struct {
	DocType     constants.DocumentType
	Subtype     constants.Subtype
	SourcePath  string
	ContentHash string
	StorageKey  string
}

// ListFilter bounds List by creation time and type. Zero values do not filter.
type ListFilter struct {
	From    *time.Time
	To      *time.Time
	DocType constants.DocumentType
}

type DocumentRepository interface {
	Migrate(ctx context.Context) error
	Start(ctx context.Context, p StartParams) (*entity.Document, error)
	Restart(ctx context.Context, id string) error
	GetByHash(ctx context.Context, contentHash string) (*entity.Document, error)
	GetByID(ctx context.Context, id string) (*entity.Document, error)
	FinishOCR(ctx context.Context, id, ocrText, method string, confidence float32) error
	FinishExtract(ctx context.Context, id string, fieldsJSON []byte, needsReview bool) error
	FinishFailure(ctx context.Context, id, message string) error
	List(ctx context.Context, f ListFilter) ([]*entity.Document, error)
}

type documentRepo struct {
	db      *sql.DB
	dialect Dialect
	log     *slog.Logger
	now     func() time.Time
}

func NewDocumentRepository(db *sql.DB, dialect Dialect, log *slog.Logger) DocumentRepository {
	if log == nil {
		log = slog.Default()
	}
	return &documentRepo{db: db, dialect: dialect, log: log, now: func() time.Time { return time.Now().UTC() }}
}

const documentColumns = `id, doc_type, subtype, source_path, content_hash, storage_key, ocr_text, ocr_method,
	confidence, fields_json, needs_review, status, error_message, created_at, finished_at`

func (r *documentRepo) Migrate(ctx context.Context) error {
	ddl := []string{createDocumentsSQL(r.dialect),
		`CREATE UNIQUE INDEX IF NOT EXISTS documents_content_hash_idx ON documents (content_hash)`,
		`CREATE INDEX IF NOT EXISTS documents_created_at_idx ON documents (created_at)`,
	}
	for _, stmt := range ddl {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			r.log.Error("documents migrate failed", "error", err)
			return fmt.Errorf("migrate documents: %w", errors.Join(common.ErrDatabase, err))
		}
	}
	r.log.Debug("documents schema ready")
	return nil
}

func createDocumentsSQL(d Dialect) string {
	ts := "TIMESTAMP"
	if d == Postgres {
		ts = "TIMESTAMPTZ"
	}
	return `CREATE TABLE IF NOT EXISTS documents (
	id            TEXT PRIMARY KEY,
	doc_type      TEXT NOT NULL,
	subtype       TEXT NOT NULL,
	source_path   TEXT NOT NULL,
	content_hash  TEXT NOT NULL,
	storage_key   TEXT NOT NULL DEFAULT '',
	ocr_text      TEXT,
	ocr_method    TEXT,
	confidence    REAL,
	fields_json   TEXT,
	needs_review  BOOLEAN NOT NULL DEFAULT FALSE,
	status        TEXT NOT NULL,
	error_message TEXT,
	created_at    ` + ts + ` NOT NULL,
	finished_at   ` + ts + `
)`
}

func (r *documentRepo) Start(ctx context.Context, p StartParams) (*entity.Document, error) {
	doc := &entity.Document{
		ID:          uuid.NewString(),
		DocType:     p.DocType,
		Subtype:     p.Subtype,
		SourcePath:  p.SourcePath,
		ContentHash: p.ContentHash,
		StorageKey:  p.StorageKey,
		Status:      constants.JobStatusRunning,
		CreatedAt:   r.now(),
	}
	_, err := r.db.ExecContext(ctx, rebind(r.dialect,
		`INSERT INTO documents (id, doc_type, subtype, source_path, content_hash, storage_key, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		doc.ID, string(doc.DocType), string(doc.Subtype), doc.SourcePath, doc.ContentHash, doc.StorageKey,
		string(doc.Status), doc.CreatedAt)
	if err != nil {
		r.log.Error("document start failed", "path", p.SourcePath, "error", err)
		return nil, fmt.Errorf("insert document: %w", errors.Join(common.ErrDatabase, err))
	}
	r.log.Info("document started", "doc_id", doc.ID, "doc_type", doc.DocType, "subtype", doc.Subtype)
	return doc, nil
}

// Restart puts a failed row back to RUNNING so the same capture can be retried.
func (r *documentRepo) Restart(ctx context.Context, id string) error {
	return r.update(ctx, id, "restart",
		`UPDATE documents SET status = ?, error_message = NULL, finished_at = NULL WHERE id = ?`,
		string(constants.JobStatusRunning), id)
}

func (r *documentRepo) GetByHash(ctx context.Context, contentHash string) (*entity.Document, error) {
	return r.getOne(ctx, "content_hash", contentHash)
}

func (r *documentRepo) GetByID(ctx context.Context, id string) (*entity.Document, error) {
	return r.getOne(ctx, "id", id)
}

func (r *documentRepo) getOne(ctx context.Context, column, value string) (*entity.Document, error) {
	row := r.db.QueryRowContext(ctx, rebind(r.dialect,
		`SELECT `+documentColumns+` FROM documents WHERE `+column+` = ?`), value)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s=%s: %w", column, value, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", errors.Join(common.ErrDatabase, err))
	}
	return doc, nil
}

func (r *documentRepo) FinishOCR(ctx context.Context, id, ocrText, method string, confidence float32) error {
	return r.update(ctx, id, "finish ocr",
		`UPDATE documents SET ocr_text = ?, ocr_method = ?, confidence = ?, status = ? WHERE id = ?`,
		ocrText, method, float64(confidence), string(constants.JobStatusOCROK), id)
}

func (r *documentRepo) FinishExtract(ctx context.Context, id string, fieldsJSON []byte, needsReview bool) error {
	return r.update(ctx, id, "finish extract",
		`UPDATE documents SET fields_json = ?, needs_review = ?, status = ?, finished_at = ? WHERE id = ?`,
		string(fieldsJSON), needsReview, string(constants.JobStatusExtracted), r.now(), id)
}

func (r *documentRepo) FinishFailure(ctx context.Context, id, message string) error {
	err := r.update(ctx, id, "finish failure",
		`UPDATE documents SET status = ?, error_message = ?, finished_at = ? WHERE id = ?`,
		string(constants.JobStatusFailed), message, r.now(), id)
	if err == nil {
		r.log.Warn("document finished (FAILED)", "doc_id", id, "error", message)
	}
	return err
}

func (r *documentRepo) update(ctx context.Context, id, op, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, rebind(r.dialect, query), args...)
	if err != nil {
		r.log.Error("document "+op+" failed", "doc_id", id, "error", err)
		return fmt.Errorf("%s: %w", op, errors.Join(common.ErrDatabase, err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, errors.Join(common.ErrDatabase, err))
	}
	if n == 0 {
		return fmt.Errorf("%s: document %s: %w", op, id, common.ErrNotFound)
	}
	r.log.Debug("document updated", "doc_id", id, "op", op)
	return nil
}

func (r *documentRepo) List(ctx context.Context, f ListFilter) ([]*entity.Document, error) {
	var (
		where []string
		args  []any
	)
	if f.From != nil {
		where = append(where, "created_at >= ?")
		args = append(args, f.From.UTC())
	}
	if f.To != nil {
		where = append(where, "created_at <= ?")
		args = append(args, f.To.UTC())
	}
	if f.DocType != "" {
		where = append(where, "doc_type = ?")
		args = append(args, string(f.DocType))
	}
	q := `SELECT ` + documentColumns + ` FROM documents`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at"

	rows, err := r.db.QueryContext(ctx, rebind(r.dialect, q), args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", errors.Join(common.ErrDatabase, err))
	}
	defer rows.Close()

	var out []*entity.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", errors.Join(common.ErrDatabase, err))
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list documents: %w", errors.Join(common.ErrDatabase, err))
	}
	r.log.Debug("listed documents", "count", len(out))
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (*entity.Document, error) {
	var (
		doc                    entity.Document
		docType, sub, status   string
		ocrText, ocrMethod     sql.NullString
		fieldsJSON, errMessage sql.NullString
		confidence             sql.NullFloat64
		finishedAt             sql.NullTime
	)
	if err := s.Scan(&doc.ID, &docType, &sub, &doc.SourcePath, &doc.ContentHash, &doc.StorageKey,
		&ocrText, &ocrMethod, &confidence, &fieldsJSON, &doc.NeedsReview, &status, &errMessage,
		&doc.CreatedAt, &finishedAt); err != nil {
		return nil, err
	}
	doc.DocType = constants.DocumentType(docType)
	doc.Subtype = constants.Subtype(sub)
	doc.Status = constants.JobStatus(status)
	if ocrText.Valid {
		doc.OCRText = &ocrText.String
	}
	if ocrMethod.Valid {
		doc.OCRMethod = &ocrMethod.String
	}
	if confidence.Valid {
		c := float32(confidence.Float64)
		doc.Confidence = &c
	}
	if fieldsJSON.Valid {
		doc.FieldsJSON = []byte(fieldsJSON.String)
	}
	if errMessage.Valid {
		doc.ErrorMessage = &errMessage.String
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		doc.FinishedAt = &t
	}
	return &doc, nil
}
