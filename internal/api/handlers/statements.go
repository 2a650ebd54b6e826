package handlers

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/varunidealabs/cash-flow-analyzer/internal/api/middleware"
	"github.com/varunidealabs/cash-flow-analyzer/internal/gcsuploader"
	"github.com/varunidealabs/cash-flow-analyzer/internal/jobs"
	"github.com/varunidealabs/cash-flow-analyzer/internal/logger"
	"github.com/varunidealabs/cash-flow-analyzer/internal/pipeline"
)

const (
	// MaxUploadBytes caps a single statement upload.
	MaxUploadBytes = 20 << 20

	uploadFormField = "file"
	uploadPrefix    = "statements"
)

// StatementsHandler accepts statement uploads and queues them for analysis.
type StatementsHandler struct {
	publisher jobs.Publisher
	storage   gcsuploader.StorageService
}

// NewStatementsHandler creates a statements handler. A nil storage skips the
// GCS copy of each upload.
func NewStatementsHandler(publisher jobs.Publisher, storage gcsuploader.StorageService) *StatementsHandler {
	return &StatementsHandler{publisher: publisher, storage: storage}
}

// Upload handles POST /api/statements (multipart field "file").
func (h *StatementsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	file, header, err := r.FormFile(uploadFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, "File is too large")
			return
		}
		middleware.WriteError(w, http.StatusBadRequest, "A statement file is required in the \"file\" field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}
	if len(data) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "Uploaded file is empty")
		return
	}

	contentType, err := pipeline.DetectContentType(data)
	if err != nil {
		log.Warn().Err(err).Str("filename", header.Filename).Msg("Upload rejected")
		middleware.WriteError(w, http.StatusUnsupportedMediaType, "Only PDF and plain-text statements are supported")
		return
	}

	filename := cleanFilename(header.Filename)

	job := &jobs.AnalyzeStatementJob{
		DocumentName: filename,
		ContentType:  contentType,
		SizeBytes:    len(data),
		Data:         data,
	}

	if h.storage != nil {
		uri, err := h.storage.UploadBytes(ctx, gcsuploader.ObjectName(uploadPrefix, filename, time.Now()), data, contentType)
		if err != nil {
			log.Error().Err(err).Str("filename", filename).Msg("Failed to store upload")
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to upload file")
			return
		}
		job.SourceURI = uri
	}

	if err := h.publisher.PublishAnalyzeStatement(ctx, job); err != nil {
		log.Error().Err(err).Msg("Failed to enqueue analysis job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue analysis job")
		return
	}

	log.Info().
		Str("job_id", job.JobID).
		Str("filename", filename).
		Str("content_type", contentType).
		Int("bytes", len(data)).
		Msg("Analysis job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":     job.JobID,
		"status":     string(job.Status),
		"source_uri": job.SourceURI,
	})
}

// cleanFilename drops any client-side path from an upload name.
func cleanFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "statement"
	}
	return name
}
