package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/doglist-api/internal/dogs"
	"github.com/vyrodovalexey/doglist-api/internal/model"
)

// FlowHandler exposes photo-assisted add flows: a client starts a flow,
// polls it until the photo settles, retries on error and finally submits
// the dog.
type FlowHandler struct {
	responder
	flows *dogs.FlowRegistry
	svc   *dogs.Service
}

// NewFlowHandler creates a new FlowHandler instance.
func NewFlowHandler(flows *dogs.FlowRegistry, svc *dogs.Service, logger *zap.Logger) *FlowHandler {
	return &FlowHandler{
		responder: responder{logger: logger},
		flows:     flows,
		svc:       svc,
	}
}

// RegisterRoutes registers the flow routes with the router.
func (h *FlowHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/v1/flows", h.CreateFlow).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/flows/{id}", h.GetFlow).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/flows/{id}/retry", h.RetryFlow).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/flows/{id}/dogs", h.SubmitFlow).Methods(http.MethodPost)
}

// CreateFlow handles POST /api/v1/flows requests.
func (h *FlowHandler) CreateFlow(w http.ResponseWriter, _ *http.Request) {
	flow := h.flows.Create()
	h.writeJSON(w, http.StatusCreated, model.NewSuccessResponse(flow.View()))
}

// GetFlow handles GET /api/v1/flows/{id} requests. With ?wait=true it blocks
// until the pending fetch settles or the request is cancelled.
func (h *FlowHandler) GetFlow(w http.ResponseWriter, r *http.Request) {
	flow, err := h.flows.Get(mux.Vars(r)["id"])
	if err != nil {
		h.handleError(w, err, "get flow")
		return
	}

	if r.URL.Query().Get("wait") == "true" {
		// A cancelled wait still reports the current state.
		_, _ = flow.Wait(r.Context())
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(flow.View()))
}

// RetryFlow handles POST /api/v1/flows/{id}/retry requests.
func (h *FlowHandler) RetryFlow(w http.ResponseWriter, r *http.Request) {
	view, err := h.flows.Retry(mux.Vars(r)["id"])
	if err != nil {
		h.handleError(w, err, "retry flow")
		return
	}

	h.writeJSON(w, http.StatusAccepted, model.NewSuccessResponse(view))
}

// SubmitFlow handles POST /api/v1/flows/{id}/dogs requests. The flow is
// discarded once the dog is stored.
func (h *FlowHandler) SubmitFlow(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	flow, err := h.flows.Get(id)
	if err != nil {
		h.handleError(w, err, "submit flow")
		return
	}

	var input model.SubmitFlowRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&input); err != nil {
		h.logger.Warn("invalid request body", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	dog, err := h.svc.Submit(r.Context(), flow, input.Name, input.Breed)
	if err != nil && dog == nil {
		h.handleError(w, err, "submit flow")
		return
	}
	if err != nil {
		h.logger.Warn("dog stored but list not refreshed", zap.Int64("id", dog.ID), zap.Error(err))
	}

	h.flows.Remove(id)
	h.writeJSON(w, http.StatusCreated, model.NewSuccessResponse(dog))
}
