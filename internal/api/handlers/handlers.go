package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/statement-extractor/internal/api/middleware"
	"github.com/dvloznov/statement-extractor/internal/document"
	"github.com/dvloznov/statement-extractor/internal/gcs"
	"github.com/dvloznov/statement-extractor/internal/jobs"
	"github.com/dvloznov/statement-extractor/internal/logger"
	"github.com/dvloznov/statement-extractor/internal/validation"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Uploader stores an uploaded statement. gcs.StorageService satisfies it.
type Uploader interface {
	UploadReader(ctx context.Context, bucket, object, contentType string, r io.Reader) (int64, error)
}

// StatementsHandler accepts statements for processing.
type StatementsHandler struct {
	publisher jobs.Publisher
	uploader  Uploader
	bucket    string
	prefix    string
	maxBytes  int64
}

// NewStatementsHandler creates a new statements handler. uploader may be nil,
// in which case only gs:// references are accepted.
func NewStatementsHandler(publisher jobs.Publisher, uploader Uploader, bucket, prefix string, maxBytes int64) *StatementsHandler {
	return &StatementsHandler{
		publisher: publisher,
		uploader:  uploader,
		bucket:    bucket,
		prefix:    prefix,
		maxBytes:  maxBytes,
	}
}

type submitRequest struct {
	URI  string `json:"uri"`
	Name string `json:"name"`
}

// Submit handles POST /api/statements.
// It takes either a JSON body {"uri": "gs://...", "name": "..."} or a
// multipart form with a "file" field, and enqueues a processing job.
func (h *StatementsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req submitRequest
	var err error
	if isMultipart(r) {
		req, err = h.upload(w, r)
		if err != nil {
			var he *httpError
			if errors.As(err, &he) {
				middleware.WriteError(w, he.status, he.msg)
				return
			}
			log.Error().Err(err).Msg("Failed to upload statement")
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to upload statement")
			return
		}
	} else {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if !gcs.IsURI(req.URI) {
			middleware.WriteError(w, http.StatusBadRequest, "uri must be a gs:// URI")
			return
		}
		if _, _, err := gcs.ParseURI(req.URI); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.Name == "" {
			req.Name = gcs.ExtractFilenameFromGCSURI(req.URI)
		}
	}

	job := &jobs.ProcessStatementJob{
		DocumentURI:  req.URI,
		DocumentName: req.Name,
	}
	if err := h.publisher.PublishProcessStatement(ctx, job); err != nil {
		log.Error().Err(err).Msg("Failed to enqueue statement job")
		middleware.WriteError(w, http.StatusServiceUnavailable, "Failed to enqueue statement job")
		return
	}

	log.Info().Str("job_id", job.JobID).Str("uri", job.DocumentURI).Msg("Statement job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":   job.JobID,
		"uri":      job.DocumentURI,
		"document": job.DocumentName,
		"status":   string(job.Status),
	})
}

type httpError struct {
	status int
	msg    string
}

func (e *httpError) Error() string { return e.msg }

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

func (h *StatementsHandler) upload(w http.ResponseWriter, r *http.Request) (submitRequest, error) {
	if h.uploader == nil || h.bucket == "" {
		return submitRequest{}, &httpError{http.StatusServiceUnavailable, "Uploads are disabled: no GCS bucket configured"}
	}

	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return submitRequest{}, &httpError{http.StatusBadRequest, "A statement file is required in the 'file' field"}
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = document.DetectMIMEType(filename, nil)
	}

	objectName := path.Join(h.prefix, "uploads", time.Now().UTC().Format("2006/01/02"), uuid.NewString()+"-"+filename)

	written, err := h.uploader.UploadReader(r.Context(), h.bucket, objectName, contentType, file)
	if err != nil {
		return submitRequest{}, fmt.Errorf("upload: %w", err)
	}

	log := logger.FromContext(r.Context())
	log.Info().
		Str("object", objectName).
		Int64("bytes", written).
		Msg("Statement uploaded")

	return submitRequest{URI: gcs.BuildURI(h.bucket, objectName), Name: filename}, nil
}

const maxCheckBytes = 10 << 20

// TransactionsHandler checks raw transaction payloads.
type TransactionsHandler struct{}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler() *TransactionsHandler {
	return &TransactionsHandler{}
}

// Check handles POST /api/transactions/check.
// The body is a wire payload of transactions; the response is a verdict on
// its format only.
func (h *TransactionsHandler) Check(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCheckBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	verdict := validation.CheckFormat(body)
	middleware.WriteJSON(w, http.StatusOK, verdict)
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore) *JobsHandler {
	return &JobsHandler{store: store}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := chi.URLParam(r, "id")

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Job not found")
			return
		}
		log := logger.FromContext(ctx)
		log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	filter := jobs.JobFilter{
		DocumentName: query.Get("document"),
		Status:       jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		filter.Limit = limit
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid offset")
			return
		}
		filter.Offset = offset
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}
