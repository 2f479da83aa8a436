// Package handler exposes the extraction pipeline over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/repository"
	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/service"
	"github.com/FACorreiaa/statement-extractor/pkg/storage"
)

const (
	defaultMaxUpload = 25 << 20
	defaultTimeout   = 2 * time.Minute
)

// Processor runs the pipeline for one document.
type Processor interface {
	Process(ctx context.Context, req service.Request) *service.Response
}

// Store loads previously persisted statements.
type Store interface {
	Get(ctx context.Context, statementID string) (*service.Response, error)
}

// StatementHandler serves statement uploads.
type StatementHandler struct {
	svc       Processor
	files     storage.Storage
	store     Store
	retain    bool
	maxUpload int64
	timeout   time.Duration
	logger    *slog.Logger
}

// NewStatementHandler creates a handler that spools uploads to files.
func NewStatementHandler(svc Processor, files storage.Storage, logger *slog.Logger) *StatementHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatementHandler{
		svc:       svc,
		files:     files,
		maxUpload: defaultMaxUpload,
		timeout:   defaultTimeout,
		logger:    logger,
	}
}

// WithStore enables GET /v1/statements/{id}.
func (h *StatementHandler) WithStore(store Store) *StatementHandler {
	h.store = store
	return h
}

// WithRetain keeps uploads on disk after processing.
func (h *StatementHandler) WithRetain(retain bool) *StatementHandler {
	h.retain = retain
	return h
}

// WithLimits sets the upload size cap and the per-request deadline.
func (h *StatementHandler) WithLimits(maxUploadBytes int64, timeout time.Duration) *StatementHandler {
	if maxUploadBytes > 0 {
		h.maxUpload = maxUploadBytes
	}
	if timeout > 0 {
		h.timeout = timeout
	}
	return h
}

// Register adds the routes to mux.
func (h *StatementHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/statements", h.Extract)
	mux.HandleFunc("GET /healthz", h.Health)
	if h.store != nil {
		mux.HandleFunc("GET /v1/statements/{id}", h.Get)
	}
}

// Extract accepts a multipart upload with a "file" part and optional
// "password" and "max_pages" fields.
func (h *StatementHandler) Extract(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	maxPages := 0
	if v := r.FormValue("max_pages"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "max_pages must be a non-negative integer")
			return
		}
		maxPages = n
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	info, err := h.files.Upload(ctx, header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		h.logger.Error("failed to store upload", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	if !h.retain {
		defer func() {
			if err := h.files.Delete(context.WithoutCancel(ctx), info.ID); err != nil {
				h.logger.Warn("failed to delete upload",
					slog.String("file_id", info.ID.String()),
					slog.Any("error", err))
			}
		}()
	}

	resp := h.svc.Process(ctx, service.Request{
		Path:     info.Path,
		Password: r.FormValue("password"),
		MaxPages: maxPages,
	})

	h.logger.Info("statement processed",
		slog.String("statement_id", resp.StatementID),
		slog.String("file", header.Filename),
		slog.String("status", string(resp.Status)),
		slog.Int("transactions", len(resp.Transactions)))

	writeJSON(w, statusCode(resp.Status), resp)
}

// Get returns a persisted statement.
func (h *StatementHandler) Get(w http.ResponseWriter, r *http.Request) {
	resp, err := h.store.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "statement not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to load statement", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to load statement")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Health reports liveness.
func (h *StatementHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func statusCode(s service.Status) int {
	switch s {
	case service.StatusSuccess:
		return http.StatusOK
	default:
		return http.StatusUnprocessableEntity
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
