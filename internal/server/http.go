package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/traveler-intake/constants"
	"github.com/joseph-ayodele/traveler-intake/internal/common"
	"github.com/joseph-ayodele/traveler-intake/internal/ingest"
	"github.com/joseph-ayodele/traveler-intake/internal/pipeline"
)

const (
	requestIDHeader = "X-Request-Id"
	maxUploadBytes  = 20 << 20
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// HealthFunc reports whether the service can take traffic.
type HealthFunc func(r *http.Request) error

type router struct {
	deps    Deps
	logger  *slog.Logger
	health  HealthFunc
	metrics http.Handler
}

// NewRouter mounts the HTTP API. health and metrics may be nil.
func NewRouter(deps Deps, health HealthFunc, metrics http.Handler, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	rt := &router{deps: deps, logger: logger, health: health, metrics: metrics}

	r := chi.NewRouter()
	r.Use(rt.requestID)
	r.Use(rt.accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", rt.healthz)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/passport/standardize", rt.standardize(constants.Passport))
		r.Post("/boarding-pass/standardize", rt.standardize(constants.BoardingPass))
		r.Post("/documents", rt.processDocument)
		r.Get("/documents/{id}", rt.getDocument)
		r.Get("/exports/travelers.xlsx", rt.exportTravelers)
		r.Post("/declarations", rt.submitDeclaration)
	})
	return r
}

func (rt *router) healthz(w http.ResponseWriter, r *http.Request) {
	if rt.health != nil {
		if err := rt.health(r); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *router) standardize(dt constants.DocumentType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Text *string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}
		if req.Text == nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text is required"})
			return
		}
		ext, err := pipeline.Standardize(dt, *req.Text)
		if err != nil {
			rt.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, standardizeResponse(ext))
	}
}

// processDocument accepts either a JSON body naming a file already on the
// server ({path, doc_type, subtype, date}) or a multipart upload with a
// "file" part plus doc_type and subtype form values.
func (rt *router) processDocument(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Processor == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "processing is not configured"})
		return
	}

	var req captureRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		path, err := rt.saveUpload(w, r)
		if err != nil {
			rt.writeError(w, r, err)
			return
		}
		req = captureRequest{
			Path:    path,
			DocType: r.FormValue("doc_type"),
			Subtype: r.FormValue("subtype"),
			Date:    r.FormValue("date"),
		}
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	c, err := rt.deps.capture(req)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	res, err := rt.deps.Processor.Process(r.Context(), c)
	if err != nil {
		if errors.Is(err, common.ErrDuplicate) && res != nil {
			writeJSON(w, http.StatusConflict, resultResponse(res))
			return
		}
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resultResponse(res))
}

// saveUpload sniffs the uploaded file and stores it under
// UploadDir/<doc_type>/<subtype>/<uuid>.<ext>.
func (rt *router) saveUpload(w http.ResponseWriter, r *http.Request) (string, error) {
	if rt.deps.UploadDir == "" {
		return "", fmt.Errorf("uploads are not configured: %w", common.ErrUnsupported)
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return "", fmt.Errorf("parse upload: %v: %w", err, common.ErrInvalidInput)
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return "", fmt.Errorf("multipart field 'file' is required: %w", common.ErrInvalidInput)
	}
	defer file.Close()

	dt, ok := constants.CanonicalizeDocumentType(r.FormValue("doc_type"))
	if !ok {
		return "", fmt.Errorf("unknown doc_type %q: %w", r.FormValue("doc_type"), common.ErrInvalidInput)
	}
	st, ok := constants.CanonicalizeSubtype(r.FormValue("subtype"))
	if !ok || !constants.ValidSubtype(dt, st) {
		return "", fmt.Errorf("subtype %q is not valid for %s: %w", r.FormValue("subtype"), dt, common.ErrInvalidInput)
	}

	dir := filepath.Join(rt.deps.UploadDir, string(dt), string(st))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create capture dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close upload: %w", err)
	}

	ext, err := ingest.Sniff(tmp.Name())
	if err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	final := filepath.Join(dir, uuid.NewString()+"."+ext)
	if err := os.Rename(tmp.Name(), final); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("store upload: %w", err)
	}
	common.LoggerFromContext(r.Context(), rt.logger).Info("capture uploaded", "path", final, "doc_type", dt, "subtype", st)
	return final, nil
}

func (rt *router) getDocument(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Documents == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "document lookup is not configured"})
		return
	}
	id := chi.URLParam(r, "id")
	if err := common.NewValidator().Field("id", id, common.Required, common.UUID).Error(); err != nil {
		rt.writeError(w, r, err)
		return
	}
	doc, err := rt.deps.Documents.GetByID(r.Context(), id)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, documentResponse(doc))
}

func (rt *router) exportTravelers(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Exporter == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "export is not configured"})
		return
	}
	from, err := parseDay(r.URL.Query().Get("from"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	to, err := parseDay(r.URL.Query().Get("to"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	data, err := rt.deps.Exporter.TravelersXLSX(r.Context(), from, to)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="travelers.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (rt *router) submitDeclaration(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Declarations == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "declarations are not configured"})
		return
	}
	var req declarationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	sub, err := rt.deps.Declarations.Submit(r.Context(), req.declaration())
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"confirmation_number": sub.ConfirmationNumber,
		"key":                 sub.Key,
		"uri":                 sub.URI,
	})
}

func (rt *router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := httpStatus(err)
	if code >= http.StatusInternalServerError {
		common.LoggerFromContext(r.Context(), rt.logger).Error("request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, common.ErrInvalidInput), errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, common.ErrUnsupported):
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (rt *router) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(common.WithRequestID(r.Context(), id)))
	})
}

func (rt *router) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		log := common.LoggerFromContext(r.Context(), rt.logger)
		switch {
		case status >= 500:
			log.Error("http request", attrs...)
		case status >= 400:
			log.Warn("http request", attrs...)
		default:
			log.Info("http request", attrs...)
		}
	})
}
