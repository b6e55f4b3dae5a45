package exam

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"quizrunner/internal/app/apiresp"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	svc sessionService
}

type sessionService interface {
	Create(ctx context.Context) (*Created, error)
	View(ctx context.Context, id string) (View, error)
	SelectExam(ctx context.Context, id string, entry int) (View, error)
	SubmitChoice(ctx context.Context, id string, button int) (View, error)
	SubmitText(ctx context.Context, id, text string) (View, error)
	Next(ctx context.Context, id string) (View, error)
}

type response struct {
	OK    bool
	Data  interface{}
	Code  string
	Error string
}

type selectExamRequest struct {
	Entry *int `json:"entry"`
}

type answerRequest struct {
	Option *int    `json:"option"`
	Text   *string `json:"text"`
}

func NewHandler(svc sessionService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	created, err := h.svc.Create(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, response{OK: true, Data: created})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionIDParam(w, r)
	if !ok {
		return
	}
	view, err := h.svc.View(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, response{OK: true, Data: view})
}

func (h *Handler) SelectExam(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionIDParam(w, r)
	if !ok {
		return
	}
	var req selectExamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "invalid request body"})
		return
	}
	if req.Entry == nil {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "entry is required"})
		return
	}

	view, err := h.svc.SelectExam(r.Context(), id, *req.Entry)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, response{OK: true, Data: view})
}

func (h *Handler) Answer(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionIDParam(w, r)
	if !ok {
		return
	}
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "invalid request body"})
		return
	}

	var (
		view View
		err  error
	)
	switch {
	case req.Option != nil && req.Text != nil:
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "send either option or text"})
		return
	case req.Option != nil:
		view, err = h.svc.SubmitChoice(r.Context(), id, *req.Option)
	case req.Text != nil:
		view, err = h.svc.SubmitText(r.Context(), id, *req.Text)
	default:
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "option or text is required"})
		return
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, response{OK: true, Data: view})
}

func (h *Handler) Next(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionIDParam(w, r)
	if !ok {
		return
	}
	view, err := h.svc.Next(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, response{OK: true, Data: view})
}

func sessionIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "invalid session id"})
		return "", false
	}
	return id, true
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		writeJSON(w, r, http.StatusNotFound, response{OK: false, Code: "session_not_found", Error: ErrSessionNotFound.Error()})
	case errors.Is(err, ErrInvalidTransition):
		writeJSON(w, r, http.StatusConflict, response{OK: false, Code: "invalid_transition", Error: ErrInvalidTransition.Error()})
	case errors.Is(err, ErrConcurrentUpdate):
		writeJSON(w, r, http.StatusConflict, response{OK: false, Code: "concurrent_update", Error: ErrConcurrentUpdate.Error()})
	case errors.Is(err, ErrEntryOutOfRange):
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Code: "entry_out_of_range", Error: ErrEntryOutOfRange.Error()})
	case errors.Is(err, ErrOptionOutOfRange):
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Code: "option_out_of_range", Error: ErrOptionOutOfRange.Error()})
	default:
		writeJSON(w, r, http.StatusInternalServerError, response{OK: false, Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, payload response) {
	if payload.OK {
		apiresp.WriteOK(w, r, code, payload.Data)
		return
	}
	apiresp.WriteErrorCode(w, r, code, payload.Code, payload.Error)
}
