package handler

import "net/http"

type clockInRequest struct {
	Notes string `json:"notes" validate:"max=1000"`
}

// ClockIn открывает смену текущего сотрудника.
func (h *Handler) ClockIn(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req clockInRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			h.writeError(w, r, "clock in", err)
			return
		}
	}

	wl, err := h.services.WorkLogs.ClockIn(r.Context(), claims.UserID, req.Notes)
	if err != nil {
		h.writeError(w, r, "clock in", err)
		return
	}

	writeJSON(w, http.StatusCreated, toWorkLogResponse(*wl))
}

type clockOutRequest struct {
	BreakDurationMinutes int    `json:"breakDurationMinutes" validate:"gte=0,lte=1440"`
	Notes                string `json:"notes" validate:"max=1000"`
}

// ClockOut закрывает активную смену текущего сотрудника.
func (h *Handler) ClockOut(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req clockOutRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			h.writeError(w, r, "clock out", err)
			return
		}
	}

	wl, err := h.services.WorkLogs.ClockOut(r.Context(), claims.UserID, req.BreakDurationMinutes, req.Notes)
	if err != nil {
		h.writeError(w, r, "clock out", err)
		return
	}

	writeJSON(w, http.StatusOK, toWorkLogResponse(*wl))
}

func (h *Handler) ActiveWorkLog(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	wl, err := h.services.WorkLogs.Active(r.Context(), claims.UserID)
	if err != nil {
		h.writeError(w, r, "active work log", err)
		return
	}

	writeJSON(w, http.StatusOK, toWorkLogResponse(*wl))
}

// MyWorkLogs возвращает смены текущего сотрудника за необязательный период from..to.
func (h *Handler) MyWorkLogs(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	h.listWorkLogs(w, r, claims.UserID)
}

func (h *Handler) UserWorkLogs(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		h.writeError(w, r, "list work logs", err)
		return
	}
	h.listWorkLogs(w, r, userID)
}

func (h *Handler) listWorkLogs(w http.ResponseWriter, r *http.Request, userID int64) {
	from, err := queryDate(r, "from")
	if err != nil {
		h.writeError(w, r, "list work logs", err)
		return
	}
	to, err := queryDate(r, "to")
	if err != nil {
		h.writeError(w, r, "list work logs", err)
		return
	}

	logs, err := h.services.WorkLogs.List(r.Context(), userID, from, to)
	if err != nil {
		h.writeError(w, r, "list work logs", err)
		return
	}

	resp := make([]workLogResponse, 0, len(logs))
	for _, wl := range logs {
		resp = append(resp, toWorkLogResponse(wl))
	}
	writeJSON(w, http.StatusOK, resp)
}
