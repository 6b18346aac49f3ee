/*
handlers_schedule.go - Schedule service HTTP handlers

PURPOSE:
  Maps the schedule endpoints onto schedule.Service. Creation is accepted
  from shops and the job service (service role); check-in is spare-only;
  no-show is shop-only. The sweeper bypasses HTTP and uses the service
  directly.

SEE ALSO:
  - schedule/service.go: workflow rules
  - schedule/sweeper.go: automated no-show detection
*/
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/sparelink/gig-engine/auth"
	"github.com/sparelink/gig-engine/schedule"
)

// ScheduleHandler serves the schedule endpoints.
type ScheduleHandler struct {
	svc *schedule.Service
	log *logrus.Entry
}

func NewScheduleHandler(svc *schedule.Service, log *logrus.Entry) *ScheduleHandler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &ScheduleHandler{svc: svc, log: log}
}

// Create handles POST /api/schedules. Shop or service role.
func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	id := requireRole(w, r, auth.RoleShop, auth.RoleService)
	if id == nil {
		return
	}

	var req CreateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body", Code: CodeInvalidInput})
		return
	}

	sc, err := h.svc.Create(r.Context(), schedule.CreateInput{
		JobID:      req.JobID,
		SpareID:    req.SpareID,
		ShopID:     req.ShopID,
		Date:       req.Date,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		EnergyCost: req.EnergyCost,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sc)
}

// Get handles GET /api/schedules/{id}.
func (h *ScheduleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)

	sc, err := h.svc.Get(r.Context(), id.UserID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

// List handles GET /api/schedules?limit=&offset=.
// Spares see their own shifts; shops see their shop's.
func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	var (
		scs []schedule.Schedule
		err error
	)
	if id.Role == auth.RoleShop {
		scs, err = h.svc.ListForShop(r.Context(), id.UserID, limit, offset)
	} else {
		scs, err = h.svc.ListForSpare(r.Context(), id.UserID, limit, offset)
	}
	if err != nil {
		respondError(w, err)
		return
	}
	if scs == nil {
		scs = []schedule.Schedule{}
	}
	writeJSON(w, http.StatusOK, scs)
}

// CheckIn handles POST /api/schedules/{id}/checkin. Spares only. The raw
// bearer is forwarded so the energy return lands on the caller's wallet.
func (h *ScheduleHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	id := requireRole(w, r, auth.RoleSpare)
	if id == nil {
		return
	}

	sc, err := h.svc.CheckIn(r.Context(), bearerFrom(r), id.UserID, chi.URLParam(r, "id"))
	if err != nil {
		h.log.WithError(err).WithField("schedule_id", chi.URLParam(r, "id")).Warn("check-in failed")
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

// MarkNoShow handles POST /api/schedules/{id}/no-show. Owning shop only.
func (h *ScheduleHandler) MarkNoShow(w http.ResponseWriter, r *http.Request) {
	id := requireRole(w, r, auth.RoleShop)
	if id == nil {
		return
	}

	sc, err := h.svc.MarkNoShow(r.Context(), id.UserID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}
