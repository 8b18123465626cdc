package handlers

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/go-chi/chi"
	json "github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"

	"github.com/avvvet/variables-admin/internal/adminsvc/form"
	"github.com/avvvet/variables-admin/internal/adminsvc/store"
	"github.com/avvvet/variables-admin/internal/adminsvc/ws"
)

const maxBodyBytes = 64 << 10

type Handler struct {
	ctrl  *form.Controller
	store store.VariablesStore
	hub   *ws.Hub
}

func NewHandler(ctrl *form.Controller, st store.VariablesStore, hub *ws.Hub) *Handler {
	return &Handler{
		ctrl:  ctrl,
		store: st,
		hub:   hub,
	}
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error"`
}

type draftEdit struct {
	Value string `json:"value"`
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)
	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.CreateResponse(w, Response{
		Message: "admin service is running at port " + os.Getenv("ADMIN_SERVICE_PORT"),
		Code:    http.StatusOK,
	})
}

func (h *Handler) StateHandler(w http.ResponseWriter, r *http.Request) {
	h.CreateResponse(w, Response{
		Message: "ok",
		Code:    http.StatusOK,
		Data:    h.ctrl.Snapshot(),
	})
}

func (h *Handler) EditDraftHandler(w http.ResponseWriter, r *http.Request) {
	var body draftEdit
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		h.CreateResponse(w, Response{Message: "invalid request body", Code: http.StatusBadRequest, Error: err.Error()})
		return
	}

	if err := h.ctrl.Edit(chi.URLParam(r, "field"), body.Value); err != nil {
		h.CreateResponse(w, Response{Message: "invalid field", Code: http.StatusNotFound, Error: err.Error()})
		return
	}

	h.CreateResponse(w, Response{Message: "ok", Code: http.StatusOK, Data: h.ctrl.Snapshot()})
}

// CreateVariablesHandler takes both draft values as sent and submits them.
func (h *Handler) CreateVariablesHandler(w http.ResponseWriter, r *http.Request) {
	var body form.Fields
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		h.CreateResponse(w, Response{Message: "invalid request body", Code: http.StatusBadRequest, Error: err.Error()})
		return
	}

	if err := h.ctrl.ReplaceDraft(body); err != nil {
		h.submitError(w, err)
		return
	}
	rec, err := h.ctrl.Submit(detach(r))
	if err != nil {
		h.submitError(w, err)
		return
	}

	h.CreateResponse(w, Response{Message: "New record created successfully!", Code: http.StatusCreated, Data: rec})
}

func (h *Handler) submitError(w http.ResponseWriter, err error) {
	var verr *form.ValidationError
	var berr *store.BackendError

	switch {
	case errors.Is(err, form.ErrSubmitDisabled):
		h.CreateResponse(w, Response{Message: "submit disabled", Code: http.StatusConflict, Error: err.Error()})
	case errors.As(err, &verr):
		h.CreateResponse(w, Response{Message: "validation failed", Code: http.StatusUnprocessableEntity, Data: verr.Fields, Error: err.Error()})
	case errors.As(err, &berr):
		h.CreateResponse(w, Response{Message: "backend error", Code: http.StatusBadGateway, Error: berr.Error()})
	default:
		h.CreateResponse(w, Response{Message: "internal error", Code: http.StatusInternalServerError, Error: err.Error()})
	}
}

func (h *Handler) ListVariablesHandler(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.FetchAll(r.Context())
	if err != nil {
		h.CreateResponse(w, Response{Message: "backend error", Code: http.StatusBadGateway, Error: err.Error()})
		return
	}
	h.CreateResponse(w, Response{Message: "ok", Code: http.StatusOK, Data: list})
}

func (h *Handler) ReloadHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.Load(detach(r)); err != nil {
		h.CreateResponse(w, Response{Message: "backend error", Code: http.StatusBadGateway, Error: err.Error(), Data: h.ctrl.Snapshot()})
		return
	}
	h.CreateResponse(w, Response{Message: "ok", Code: http.StatusOK, Data: h.ctrl.Snapshot()})
}

// detach keeps request values but not its cancellation: a call that was
// issued always has its result applied.
func detach(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}
