package jobs

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/taskhub/backend/internal/middleware"
	"github.com/taskhub/backend/internal/models"
	"github.com/taskhub/backend/internal/taskerr"
)

var validate = validator.New()

// Handler serves the /v1/jobs endpoints.
type Handler struct {
	Service Service
	Logger  *slog.Logger
}

// --- POST /v1/jobs ---

type createJobRequest struct {
	CategoryID          string     `json:"category_id" validate:"required,uuid4"`
	Title               string     `json:"title" validate:"required,min=3,max=200"`
	Description         string     `json:"description" validate:"required"`
	Instructions        string     `json:"instructions" validate:"required"`
	PaymentPerTaskCents int64      `json:"payment_per_task_cents" validate:"required,min=1"`
	MaxWorkers          int        `json:"max_workers" validate:"required,min=1"`
	ProofRequired       string     `json:"proof_required" validate:"required,oneof=text screenshot url"`
	Difficulty          string     `json:"difficulty" validate:"required,oneof=easy medium hard"`
	EstimatedTime       *string    `json:"estimated_time"`
	ExpiresAt           *time.Time `json:"expires_at"`
}

// CreateJob handles POST /v1/jobs.
// Auth -> FundingCheck (via middleware) -> Validate -> Insert + Charge -> 201.
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	categoryID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		http.Error(w, `{"error":"invalid category_id"}`, http.StatusBadRequest)
		return
	}

	job, err := h.Service.CreateJob(r.Context(), user.ID, CreateJobParams{
		CategoryID:          categoryID,
		Title:               req.Title,
		Description:         req.Description,
		Instructions:        req.Instructions,
		PaymentPerTaskCents: req.PaymentPerTaskCents,
		MaxWorkers:          req.MaxWorkers,
		ProofRequired:       req.ProofRequired,
		Difficulty:          req.Difficulty,
		EstimatedTime:       req.EstimatedTime,
		ExpiresAt:           req.ExpiresAt,
	})
	if err != nil {
		h.writeError(w, r, "create job", err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

// --- GET /v1/jobs ---

// ListJobs handles GET /v1/jobs with filter, sort and pagination query params.
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := models.JobFilter{
		Difficulty: q.Get("difficulty"),
		Status:     q.Get("status"),
		SortBy:     q.Get("sort_by"),
		Page:       queryInt(q.Get("page"), 1),
		Limit:      queryInt(q.Get("limit"), 10),
	}
	if raw := q.Get("category_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, `{"error":"invalid category_id"}`, http.StatusBadRequest)
			return
		}
		f.CategoryID = &id
	}
	if raw := q.Get("min_payment_cents"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, `{"error":"invalid min_payment_cents"}`, http.StatusBadRequest)
			return
		}
		f.MinPaymentCents = &v
	}
	if raw := q.Get("max_payment_cents"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, `{"error":"invalid max_payment_cents"}`, http.StatusBadRequest)
			return
		}
		f.MaxPaymentCents = &v
	}

	jobs, total, err := h.Service.ListJobs(r.Context(), f)
	if err != nil {
		h.writeError(w, r, "list jobs", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"jobs":  jobs,
		"total": total,
		"page":  f.Page,
		"limit": f.Limit,
	})
}

// --- GET /v1/jobs/{id} ---

// GetJob handles GET /v1/jobs/{id}. Works without auth; when a valid token
// is present the response includes the viewer's own task on this job.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var viewerID *uuid.UUID
	if user := middleware.UserFromCtx(r.Context()); user != nil {
		viewerID = &user.ID
	}
	view, err := h.Service.GetJob(r.Context(), jobID, viewerID)
	if err != nil {
		h.writeError(w, r, "get job", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// --- PATCH /v1/jobs/{id} ---

type updateJobRequest struct {
	CategoryID    *string    `json:"category_id"`
	Title         *string    `json:"title"`
	Description   *string    `json:"description"`
	Instructions  *string    `json:"instructions"`
	ProofRequired *string    `json:"proof_required"`
	Difficulty    *string    `json:"difficulty"`
	EstimatedTime *string    `json:"estimated_time"`
	Status        *string    `json:"status"`
	ExpiresAt     *time.Time `json:"expires_at"`
	MaxWorkers    *int       `json:"max_workers"`
}

// UpdateJob handles PATCH /v1/jobs/{id}. Raising max_workers charges the
// job owner's wallet for the new spots; lowering it is only allowed while
// no tasks exist.
func (h *Handler) UpdateJob(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	jobID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req updateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}

	patch := UpdateJobPatch{
		Title:         req.Title,
		Description:   req.Description,
		Instructions:  req.Instructions,
		ProofRequired: req.ProofRequired,
		Difficulty:    req.Difficulty,
		EstimatedTime: req.EstimatedTime,
		Status:        req.Status,
		ExpiresAt:     req.ExpiresAt,
		MaxWorkers:    req.MaxWorkers,
	}
	if req.CategoryID != nil {
		id, err := uuid.Parse(*req.CategoryID)
		if err != nil {
			http.Error(w, `{"error":"invalid category_id"}`, http.StatusBadRequest)
			return
		}
		patch.CategoryID = &id
	}

	job, err := h.Service.UpdateJob(r.Context(), jobID, Caller{ID: user.ID, Role: user.Role}, patch)
	if err != nil {
		h.writeError(w, r, "update job", err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// --- DELETE /v1/jobs/{id} ---

func (h *Handler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	jobID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Service.DeleteJob(r.Context(), jobID, Caller{ID: user.ID, Role: user.Role}); err != nil {
		h.writeError(w, r, "delete job", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "job deleted"})
}

// --- POST /v1/jobs/{id}/apply ---

func (h *Handler) ApplyForJob(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	jobID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	task, err := h.Service.ApplyForJob(r.Context(), jobID, user.ID)
	if err != nil {
		h.writeError(w, r, "apply for job", err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// --- POST /v1/jobs/{id}/tasks/{taskId}/submit ---

type submitProofRequest struct {
	Proof string `json:"proof" validate:"required,min=1"`
}

func (h *Handler) SubmitProof(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	jobID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	taskID, ok := pathUUID(w, r, "taskId")
	if !ok {
		return
	}

	var req submitProofRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, `{"error":"proof is required"}`, http.StatusBadRequest)
		return
	}

	task, err := h.Service.SubmitProof(r.Context(), jobID, taskID, user.ID, req.Proof)
	if err != nil {
		h.writeError(w, r, "submit proof", err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// --- POST /v1/jobs/{id}/tasks/{taskId}/review ---

type reviewTaskRequest struct {
	Decision string  `json:"decision" validate:"required,oneof=approved rejected"`
	Feedback *string `json:"feedback"`
}

func (h *Handler) ReviewTask(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	jobID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	taskID, ok := pathUUID(w, r, "taskId")
	if !ok {
		return
	}

	var req reviewTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, `{"error":"decision must be either approved or rejected"}`, http.StatusBadRequest)
		return
	}

	task, err := h.Service.ReviewTask(r.Context(), jobID, taskID, Caller{ID: user.ID, Role: user.Role}, req.Decision, req.Feedback)
	if err != nil {
		h.writeError(w, r, "review task", err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// --- GET /v1/jobs/{id}/applicants ---

func (h *Handler) ListApplicants(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	jobID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	q := r.URL.Query()
	applicants, total, err := h.Service.ListApplicants(r.Context(), jobID,
		Caller{ID: user.ID, Role: user.Role}, q.Get("status"),
		queryInt(q.Get("page"), 1), queryInt(q.Get("limit"), 10))
	if err != nil {
		h.writeError(w, r, "list applicants", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"applicants": applicants,
		"total":      total,
	})
}

// --- GET /v1/jobs/{id}/statistics ---

func (h *Handler) JobStatistics(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	jobID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	stats, err := h.Service.JobStatistics(r.Context(), jobID, Caller{ID: user.ID, Role: user.Role})
	if err != nil {
		h.writeError(w, r, "job statistics", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// --- helpers ---

// writeError translates domain errors into HTTP responses; anything without
// a domain kind is logged and reported as a 500.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := taskerr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		h.Logger.Error(op, "error", err, "path", r.URL.Path)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"code":  string(taskerr.Code(err)),
	})
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		http.Error(w, `{"error":"invalid `+name+`"}`, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
