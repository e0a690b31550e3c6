package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"saldo/internal/core"
	"saldo/internal/log"
	"saldo/internal/services"
)

const maxBodyBytes = 4 << 10

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	overview := s.reminders.Overview()
	resp := listResponse{
		Window:    s.reminders.Window().String(),
		Reminders: make([]reminderEntry, 0, len(overview)),
	}
	for _, c := range overview {
		resp.Reminders = append(resp.Reminders, reminderEntry{
			LastSentAt:     c.LastSentAt.UTC(),
			statusResponse: newStatusResponse(c.Status),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.reminders.Status(contactFrom(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newStatusResponse(status))
}

type remindRequest struct {
	Message string `json:"message"`
}

// handleRemind dispatches a reminder unless the contact is on cooldown.
func (s *Server) handleRemind(w http.ResponseWriter, r *http.Request) {
	var req remindRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	dispatcher := s.dispatcher
	if req.Message != "" {
		dispatcher = services.DispatcherFunc(func(ctx context.Context, rem services.Reminder) (string, error) {
			rem.Message = req.Message
			return s.dispatcher.Dispatch(ctx, rem)
		})
	}

	out, err := s.reminders.Remind(r.Context(), contactFrom(r), dispatcher)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, remindResponse{
		Link:   out.Link,
		Status: newStatusResponse(out.Status),
	})
}

// handleMarkSent records a reminder the client already dispatched.
func (s *Server) handleMarkSent(w http.ResponseWriter, r *http.Request) {
	status, err := s.reminders.MarkSent(r.Context(), contactFrom(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, remindResponse{Status: newStatusResponse(status)})
}

func contactFrom(r *http.Request) core.ContactID {
	return core.ContactID(r.PathValue("contact"))
}

func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var cooldownErr *services.CooldownError
	switch {
	case errors.As(err, &cooldownErr):
		st := newStatusResponse(cooldownErr.Status)
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Status: &st})
	case errors.Is(err, core.ErrEmptyContact),
		errors.Is(err, core.ErrContactTooLong),
		errors.Is(err, core.ErrInvalidContact):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNoPhoneNumber):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Reminder request failed",
			log.FieldContact, r.PathValue("contact"),
			log.FieldError, err)
		writeError(w, http.StatusBadGateway, "reminder dispatch failed")
	}
}

type statusResponse struct {
	Contact          string     `json:"contact"`
	OnCooldown       bool       `json:"on_cooldown"`
	TimeLeft         string     `json:"time_left"`
	RemainingSeconds int64      `json:"remaining_seconds"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
}

func newStatusResponse(st core.Status) statusResponse {
	resp := statusResponse{
		Contact:          string(st.ContactID),
		OnCooldown:       st.OnCooldown,
		TimeLeft:         st.TimeLeft,
		RemainingSeconds: int64(st.Remaining / time.Second),
	}
	if !st.ExpiresAt.IsZero() {
		exp := st.ExpiresAt.UTC()
		resp.ExpiresAt = &exp
	}
	return resp
}

type reminderEntry struct {
	statusResponse
	LastSentAt time.Time `json:"last_sent_at"`
}

type listResponse struct {
	Window    string          `json:"window"`
	Reminders []reminderEntry `json:"reminders"`
}

type remindResponse struct {
	Link   string         `json:"link,omitempty"`
	Status statusResponse `json:"status"`
}

type errorResponse struct {
	Error  string          `json:"error"`
	Status *statusResponse `json:"status,omitempty"`
}
