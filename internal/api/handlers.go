package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"happdash/internal/backend"
	"happdash/internal/mapper"
	"happdash/internal/models"
	"happdash/internal/service"
)

// dashboardResponse is the composite snapshot the dashboard page polls. Each
// section carries its own fetched_at; a failed refresh surfaces its error
// next to the retained stale data.
type dashboardResponse struct {
	Stats       sectionEnvelope `json:"stats"`
	Events      sectionEnvelope `json:"events"`
	ActivePlans sectionEnvelope `json:"active_plans"`
}

type sectionEnvelope struct {
	Data      any       `json:"data"`
	Error     string    `json:"error,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

func envelope(data any, err error, fetchedAt time.Time) sectionEnvelope {
	env := sectionEnvelope{Data: data, FetchedAt: fetchedAt}
	if err != nil {
		env.Error = err.Error()
	}
	return env
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	stats := s.views.Stats()
	events := s.views.Events()
	active := s.views.ActivePlans()

	writeJSON(w, http.StatusOK, dashboardResponse{
		Stats:       envelope(stats.Stats, stats.Err, stats.FetchedAt),
		Events:      envelope(events.Events, events.Err, events.FetchedAt),
		ActivePlans: envelope(active, active.Err, active.FetchedAt),
	})
}

func (s *Server) handlePlans(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listPlans(w, r)
	case http.MethodPost:
		s.createPlan(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) listPlans(w http.ResponseWriter, r *http.Request) {
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	if status != "" && !validStatus(status) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status: %s", status))
		return
	}

	snap, err := s.views.Plans(r.Context(), status)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"plans":      snap.Plans,
		"total":      len(snap.Plans),
		"fetched_at": snap.FetchedAt,
	})
}

func (s *Server) createPlan(w http.ResponseWriter, r *http.Request) {
	var req backend.CreatePlanRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	plan, err := s.plans.Create(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

func (s *Server) handlePlanByID(w http.ResponseWriter, r *http.Request) {
	const prefix = "/api/v1/plans/"
	id := strings.TrimPrefix(r.URL.Path, prefix)
	id = strings.TrimSpace(id)
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.getPlan(w, r, id)
	case http.MethodPatch, http.MethodPut:
		s.updatePlan(w, r, id)
	case http.MethodDelete:
		s.deletePlan(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) getPlan(w http.ResponseWriter, r *http.Request, id string) {
	snap, err := s.views.Detail(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if snap.Err != nil && snap.FetchedAt.IsZero() {
		s.writeServiceError(w, snap.Err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"plan":       snap.Detail,
		"fetched_at": snap.FetchedAt,
	})
}

func (s *Server) updatePlan(w http.ResponseWriter, r *http.Request, id string) {
	var req backend.UpdatePlanRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	plan, err := s.plans.Update(r.Context(), id, req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) deletePlan(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.plans.Delete(r.Context(), id); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	status := strings.TrimSpace(r.URL.Query().Get("status"))
	if status != "" && !validStatus(status) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status: %s", status))
		return
	}

	snap, err := s.views.Plans(r.Context(), status)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	label := status
	if label == "" {
		label = "all"
	}
	fileName := fmt.Sprintf("plans_%s_%s.xlsx", label, time.Now().Format("2006-01-02"))

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))

	if err := s.exporter.WritePlanTable(w, snap.Plans, label); err != nil {
		s.logger.Error().Err(err).Msg("export failed")
	}
}

// writeServiceError maps domain and transport errors onto HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrStartTimeLocked):
		writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, service.ErrInvalidTimeRange), errors.Is(err, service.ErrMissingField):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Kind {
		case backend.KindTimeout:
			writeError(w, http.StatusGatewayTimeout, apiErr.Message)
		case backend.KindConnection:
			writeError(w, http.StatusBadGateway, apiErr.Message)
		default:
			code := apiErr.StatusCode
			if code < 400 {
				code = http.StatusBadGateway
			}
			writeError(w, code, apiErr.Message)
		}
		return
	}

	var decodeErr *mapper.DecodeError
	if errors.As(err, &decodeErr) {
		writeError(w, http.StatusBadGateway, decodeErr.Error())
		return
	}

	writeError(w, http.StatusInternalServerError, err.Error())
}

func validStatus(status string) bool {
	for _, s := range models.PlanStatuses {
		if s == status {
			return true
		}
	}
	return false
}
