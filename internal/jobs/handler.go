package jobs

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/redmonkez12/work4u/internal/httputil"
	"github.com/redmonkez12/work4u/internal/i18n"
	"github.com/redmonkez12/work4u/internal/logging"
)

// ApplicantFunc returns the id of the signed-in user making the request.
type ApplicantFunc func(r *http.Request) (string, bool)

// Handler contains HTTP handlers for job endpoints
type Handler struct {
	service   Service
	catalog   *i18n.Catalog
	applicant ApplicantFunc
}

func NewHandler(service Service, catalog *i18n.Catalog, applicant ApplicantFunc) *Handler {
	return &Handler{service: service, catalog: catalog, applicant: applicant}
}

// List returns all jobs
// @Summary      List jobs
// @Tags         jobs
// @Produce      json
// @Success      200 {array} Job
// @Failure      500 {object} httputil.ErrorResponse
// @Router       /api/jobs [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	jobs, err := h.service.List(r.Context())
	if err != nil {
		logger.Error("failed to list jobs", "error", err.Error())
		h.respondError(w, r, err)
		return
	}

	httputil.RespondJSON(w, jobs, http.StatusOK)
}

// Get returns a single job
// @Summary      Get job
// @Tags         jobs
// @Produce      json
// @Param        id path string true "Job ID"
// @Success      200 {object} Job
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /api/jobs/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	id := chi.URLParam(r, "id")

	job, err := h.service.Get(r.Context(), id)
	if err != nil {
		logger.Warn("failed to get job", "job_id", id, "error", err.Error())
		h.respondError(w, r, err)
		return
	}

	httputil.RespondJSON(w, job, http.StatusOK)
}

// Create posts a new job
// @Summary      Create job
// @Tags         jobs
// @Accept       json
// @Produce      json
// @Param        request body CreateJobRequest true "Job"
// @Success      201 {object} Job
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      401 {object} httputil.ErrorResponse
// @Router       /api/jobs [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req CreateJobRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		logger.Warn("invalid create job request body", "error", err.Error())
		h.respond(w, r, "errors.invalidRequest", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	job, err := h.service.Create(r.Context(), req)
	if err != nil {
		logger.Warn("failed to create job", "error", err.Error())
		h.respondError(w, r, err)
		return
	}

	logger.Info("job created", "job_id", job.ID)
	httputil.RespondJSON(w, job, http.StatusCreated)
}

// Apply submits an application for the signed-in user
// @Summary      Apply to job
// @Tags         jobs
// @Accept       json
// @Produce      json
// @Param        id path string true "Job ID"
// @Param        request body ApplyRequest true "Application"
// @Success      201 {object} Application
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      401 {object} httputil.ErrorResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /api/jobs/{id}/apply [post]
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	jobID := chi.URLParam(r, "id")

	var req ApplyRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		logger.Warn("invalid apply request body", "error", err.Error())
		h.respond(w, r, "errors.invalidRequest", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if h.applicant != nil {
		if id, ok := h.applicant(r); ok {
			req.ApplicantID = id
		}
	}
	if req.ApplicantID == "" {
		h.respond(w, r, "auth.session.required", httputil.CodeNoSession, http.StatusUnauthorized)
		return
	}

	app, err := h.service.Apply(r.Context(), jobID, req)
	if err != nil {
		logger.Warn("failed to apply to job", "job_id", jobID, "error", err.Error())
		h.respondError(w, r, err)
		return
	}

	logger.Info("job application submitted", "job_id", jobID, "application_id", app.ID)
	httputil.RespondJSON(w, app, http.StatusCreated)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		h.respond(w, r, "jobs.error.notFound", httputil.CodeNotFound, http.StatusNotFound)
	case errors.Is(err, ErrInvalidJob), errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidRate):
		h.respond(w, r, "jobs.error.invalid", httputil.CodeValidationFailed, http.StatusBadRequest)
	default:
		h.respond(w, r, "errors.generic", httputil.CodeInternalError, http.StatusInternalServerError)
	}
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, key, code string, status int) {
	msg := h.catalog.Translator(i18n.TagFrom(r.Context())).T(key)
	httputil.RespondErrorWithCode(w, msg, code, status)
}
