/*
handlers_job.go - Job service HTTP handlers

PURPOSE:
  Maps the job and application endpoints onto job.Service. Role checks
  happen here (shops post and decide, spares apply); ownership checks
  happen in the service.

SEE ALSO:
  - job/service.go: workflow rules
*/
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/sparelink/gig-engine/auth"
	"github.com/sparelink/gig-engine/job"
)

// JobHandler serves the job endpoints.
type JobHandler struct {
	svc *job.Service
	log *logrus.Entry
}

func NewJobHandler(svc *job.Service, log *logrus.Entry) *JobHandler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &JobHandler{svc: svc, log: log}
}

func requireRole(w http.ResponseWriter, r *http.Request, roles ...string) *auth.Identity {
	id := identityFrom(r)
	for _, role := range roles {
		if id.Role == role {
			return id
		}
	}
	writeJSON(w, http.StatusForbidden, errorResponse{Error: "insufficient role", Code: CodeForbidden})
	return nil
}

// CreateJob handles POST /api/jobs. Shops only.
func (h *JobHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	id := requireRole(w, r, auth.RoleShop)
	if id == nil {
		return
	}

	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body", Code: CodeInvalidInput})
		return
	}

	j, err := h.svc.CreateJob(r.Context(), id.UserID, job.CreateJobInput{
		Title:         req.Title,
		Date:          req.Date,
		StartTime:     req.StartTime,
		Pay:           req.Pay,
		Energy:        req.Energy,
		RequiredCount: req.RequiredCount,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, j)
}

// GetJob handles GET /api/jobs/{id}.
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	j, err := h.svc.GetJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, j)
}

// ListJobs handles GET /api/jobs?mine=&limit=&offset=.
// Spares browse published jobs; shops pass mine=true for their own postings.
func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)

	shopID := ""
	if r.URL.Query().Get("mine") == "true" && id.Role == auth.RoleShop {
		shopID = id.UserID
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	jobs, err := h.svc.ListJobs(r.Context(), shopID, limit, offset)
	if err != nil {
		respondError(w, err)
		return
	}
	if jobs == nil {
		jobs = []job.Job{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

// CloseJob handles POST /api/jobs/{id}/close. Owning shop only.
func (h *JobHandler) CloseJob(w http.ResponseWriter, r *http.Request) {
	id := requireRole(w, r, auth.RoleShop)
	if id == nil {
		return
	}
	if err := h.svc.CloseJob(r.Context(), id.UserID, chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Apply handles POST /api/jobs/{id}/apply. Spares only. The raw bearer is
// forwarded so the energy lock lands on the applicant's wallet.
func (h *JobHandler) Apply(w http.ResponseWriter, r *http.Request) {
	id := requireRole(w, r, auth.RoleSpare)
	if id == nil {
		return
	}

	app, err := h.svc.Apply(r.Context(), bearerFrom(r), id.UserID, chi.URLParam(r, "id"))
	if err != nil {
		h.log.WithError(err).WithField("job_id", chi.URLParam(r, "id")).Warn("application failed")
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, app)
}

// ListApplications handles GET /api/jobs/{id}/applications. Owning shop only.
func (h *JobHandler) ListApplications(w http.ResponseWriter, r *http.Request) {
	id := requireRole(w, r, auth.RoleShop)
	if id == nil {
		return
	}

	apps, err := h.svc.ListApplications(r.Context(), id.UserID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	if apps == nil {
		apps = []job.Application{}
	}
	writeJSON(w, http.StatusOK, apps)
}

// MyApplications handles GET /api/applications/mine. Spares only.
func (h *JobHandler) MyApplications(w http.ResponseWriter, r *http.Request) {
	id := requireRole(w, r, auth.RoleSpare)
	if id == nil {
		return
	}

	apps, err := h.svc.MyApplications(r.Context(), id.UserID)
	if err != nil {
		respondError(w, err)
		return
	}
	if apps == nil {
		apps = []job.Application{}
	}
	writeJSON(w, http.StatusOK, apps)
}

// Approve handles POST /api/applications/{id}/approve. Owning shop only.
func (h *JobHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id := requireRole(w, r, auth.RoleShop)
	if id == nil {
		return
	}

	app, err := h.svc.Approve(r.Context(), bearerFrom(r), id.UserID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

// Reject handles POST /api/applications/{id}/reject. Owning shop only.
func (h *JobHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id := requireRole(w, r, auth.RoleShop)
	if id == nil {
		return
	}

	app, err := h.svc.Reject(r.Context(), id.UserID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}
