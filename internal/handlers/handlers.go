// Package handlers exposes the sync engine to UI collaborators over HTTP.
// The facade is deliberately thin: the acting user arrives in the X-User-ID
// header and every response is the engine result mapped onto a status code.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"calendar-sync/internal/cache"
	"calendar-sync/internal/common/errors"
	"calendar-sync/internal/common/logging"
	"calendar-sync/internal/ical"
	"calendar-sync/internal/models"
	"calendar-sync/internal/recur"
	"calendar-sync/internal/remote"
	syncengine "calendar-sync/internal/sync"
)

type Handlers struct {
	engine *syncengine.Engine
	cache  *cache.Store
	remote *remote.Store
}

func New(engine *syncengine.Engine, cacheStore *cache.Store, remoteStore *remote.Store) *Handlers {
	return &Handlers{
		engine: engine,
		cache:  cacheStore,
		remote: remoteStore,
	}
}

// Router builds the full route table.
func (h *Handlers) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", h.HandleHealth).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/calendars", h.HandleCreateCalendar).Methods("POST")
	api.HandleFunc("/calendars", h.HandleListCalendars).Methods("GET")
	api.HandleFunc("/calendars/meeting", h.HandleEnsureMeetingCalendar).Methods("POST")
	api.HandleFunc("/calendars/{id}", h.HandleGetCalendar).Methods("GET")
	api.HandleFunc("/calendars/{id}", h.HandleDeleteCalendar).Methods("DELETE")

	api.HandleFunc("/calendars/{id}/holidays", h.HandleListHolidays).Methods("GET")
	api.HandleFunc("/calendars/{id}/holidays", h.HandleAddHoliday).Methods("POST")
	api.HandleFunc("/calendars/{id}/holidays/{holidayId}", h.HandleUpdateHoliday).Methods("PUT")
	api.HandleFunc("/calendars/{id}/holidays/{holidayId}", h.HandleDeleteHoliday).Methods("DELETE")

	api.HandleFunc("/calendars/{id}/share", h.HandleInvite).Methods("POST")
	api.HandleFunc("/calendars/{id}/share/accept", h.HandleAccept).Methods("POST")
	api.HandleFunc("/calendars/{id}/share/{userId}", h.HandleRevoke).Methods("DELETE")

	api.HandleFunc("/calendars/{id}/export.ics", h.HandleExportICS).Methods("GET")
	api.HandleFunc("/calendars/{id}/occurrences", h.HandleOccurrences).Methods("GET")
	return r
}

func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok", "cache": "ok", "remote": "ok"}
	code := http.StatusOK

	if err := h.cache.Health(); err != nil {
		status["status"], status["cache"] = "degraded", err.Error()
		code = http.StatusServiceUnavailable
	}
	if err := h.remote.Health(); err != nil {
		// Remote being down is survivable; reads fall back to the cache.
		status["remote"] = err.Error()
		if status["status"] == "ok" {
			status["status"] = "degraded"
		}
	}
	writeJSON(w, code, status)
}

type createCalendarRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (h *Handlers) HandleCreateCalendar(w http.ResponseWriter, r *http.Request) {
	actor := actorID(r)
	var req createCalendarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.ValidationError("invalid request body"))
		return
	}

	cal, err := h.engine.CreateCalendar(r.Context(), actor, req.Title, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cal)
}

func (h *Handlers) HandleListCalendars(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		userID = actorID(r)
	}

	calendars, err := h.engine.GetUserCalendars(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, calendars)
}

func (h *Handlers) HandleGetCalendar(w http.ResponseWriter, r *http.Request) {
	cal, err := h.engine.GetCalendar(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cal)
}

func (h *Handlers) HandleDeleteCalendar(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteCalendar(r.Context(), actorID(r), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) HandleEnsureMeetingCalendar(w http.ResponseWriter, r *http.Request) {
	cal, err := h.engine.EnsureMeetingCalendar(r.Context(), actorID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cal)
}

func (h *Handlers) HandleListHolidays(w http.ResponseWriter, r *http.Request) {
	holidays, err := h.engine.GetAllHolidays(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, holidays)
}

func (h *Handlers) HandleAddHoliday(w http.ResponseWriter, r *http.Request) {
	var holiday models.Holiday
	if err := json.NewDecoder(r.Body).Decode(&holiday); err != nil {
		writeError(w, errors.ValidationError("invalid request body"))
		return
	}

	added, err := h.engine.AddHoliday(r.Context(), actorID(r), mux.Vars(r)["id"], &holiday)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

func (h *Handlers) HandleUpdateHoliday(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var holiday models.Holiday
	if err := json.NewDecoder(r.Body).Decode(&holiday); err != nil {
		writeError(w, errors.ValidationError("invalid request body"))
		return
	}
	holiday.ID = vars["holidayId"]

	if err := h.engine.UpdateHoliday(r.Context(), actorID(r), vars["id"], &holiday); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &holiday)
}

func (h *Handlers) HandleDeleteHoliday(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.engine.DeleteHoliday(r.Context(), actorID(r), vars["id"], vars["holidayId"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type inviteRequest struct {
	TargetID string `json:"targetId"`
	CanEdit  bool   `json:"canEdit"`
	CanShare bool   `json:"canShare"`
}

func (h *Handlers) HandleInvite(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.ValidationError("invalid request body"))
		return
	}

	info, err := h.engine.Invite(r.Context(), mux.Vars(r)["id"], actorID(r), req.TargetID, req.CanEdit, req.CanShare)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

func (h *Handlers) HandleAccept(w http.ResponseWriter, r *http.Request) {
	info, err := h.engine.Accept(r.Context(), mux.Vars(r)["id"], actorID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *Handlers) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.engine.Revoke(r.Context(), vars["id"], actorID(r), vars["userId"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) HandleExportICS(w http.ResponseWriter, r *http.Request) {
	calendarID := mux.Vars(r)["id"]

	cal, err := h.engine.GetCalendar(r.Context(), calendarID)
	if err != nil {
		writeError(w, err)
		return
	}
	holidays, err := h.engine.GetAllHolidays(r.Context(), calendarID)
	if err != nil {
		writeError(w, err)
		return
	}

	data, err := ical.Export(cal, holidays)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="calendar.ics"`)
	w.Write(data)
}

func (h *Handlers) HandleOccurrences(w http.ResponseWriter, r *http.Request) {
	calendarID := mux.Vars(r)["id"]

	from, err := parseDateParam(r, "from")
	if err != nil {
		writeError(w, err)
		return
	}
	to, err := parseDateParam(r, "to")
	if err != nil {
		writeError(w, err)
		return
	}

	holidays, err := h.engine.GetAllHolidays(r.Context(), calendarID)
	if err != nil {
		writeError(w, err)
		return
	}

	occurrences, err := recur.Expand(holidays, recur.ExpandConfig{
		RangeStart: from,
		RangeEnd:   to,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, occurrences)
}

// actorID extracts the acting user from the request. Authentication is out
// of scope; the UI shell is trusted to identify its user.
func actorID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

func parseDateParam(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, errors.ValidationError(name + " query parameter is required")
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, errors.ValidationError(name + " must be an ISO date")
	}
	return t, nil
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode response", err)
	}
}

// writeError maps the error taxonomy onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch errors.GetType(err) {
	case errors.ErrTypeValidation:
		code = http.StatusBadRequest
	case errors.ErrTypePermission:
		code = http.StatusForbidden
	case errors.ErrTypeNotFound:
		code = http.StatusNotFound
	case errors.ErrTypeWrite:
		code = http.StatusBadGateway
	case errors.ErrTypeConnection, errors.ErrTypeReadDegraded:
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]string{
		"error": err.Error(),
		"type":  string(errors.GetType(err)),
	})
}
