package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/doglist-api/internal/dogs"
	"github.com/vyrodovalexey/doglist-api/internal/model"
	"github.com/vyrodovalexey/doglist-api/internal/photo"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 64 << 10

// DogHandler handles the REST API of the dog list.
type DogHandler struct {
	responder
	svc *dogs.Service
}

// NewDogHandler creates a new DogHandler instance.
func NewDogHandler(svc *dogs.Service, logger *zap.Logger) *DogHandler {
	return &DogHandler{
		responder: responder{logger: logger},
		svc:       svc,
	}
}

// RegisterRoutes registers the REST API routes with the router.
func (h *DogHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/ready", h.ReadyCheck).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/dogs", h.ListDogs).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/dogs", h.CreateDog).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/dogs/stats", h.GetStats).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/dogs/{id}", h.GetDog).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/dogs/{id}", h.DeleteDog).Methods(http.MethodDelete)
	router.HandleFunc("/api/v1/dogs/{id}/favorite", h.ToggleFavorite).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/photos/random", h.RandomPhoto).Methods(http.MethodGet)
}

// HealthCheck handles GET /health requests.
func (h *DogHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(HealthResponse{
		Status:  "healthy",
		Version: Version,
	}))
}

// ReadyCheck handles GET /ready requests.
func (h *DogHandler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Ready(r.Context()); err != nil {
		h.logger.Warn("readiness check failed", zap.Error(err))
		h.writeJSON(w, http.StatusServiceUnavailable,
			model.NewErrorResponse[ReadyResponse]("store unavailable"))
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(ReadyResponse{Status: "ready"}))
}

// ListDogs handles GET /api/v1/dogs?q= requests.
func (h *DogHandler) ListDogs(w http.ResponseWriter, r *http.Request) {
	list := h.svc.Visible(r.URL.Query().Get("q"))
	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(list))
}

// GetStats handles GET /api/v1/dogs/stats requests.
func (h *DogHandler) GetStats(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(h.svc.Stats()))
}

// GetDog handles GET /api/v1/dogs/{id} requests.
func (h *DogHandler) GetDog(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(mux.Vars(r)["id"])
	if err != nil {
		h.handleError(w, err, "get dog")
		return
	}

	dog, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.handleError(w, err, "get dog")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(dog))
}

// CreateDog handles POST /api/v1/dogs requests.
func (h *DogHandler) CreateDog(w http.ResponseWriter, r *http.Request) {
	var input model.CreateDogRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&input); err != nil {
		h.logger.Warn("invalid request body", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	dog, err := h.svc.Add(r.Context(), dogs.AddInput{
		Name:       input.Name,
		Breed:      input.Breed,
		ImageRef:   input.ImageRef,
		FetchPhoto: input.FetchPhoto,
	})
	if err != nil && dog == nil {
		h.handleError(w, err, "create dog")
		return
	}
	if err != nil {
		// Stored, but the snapshot reload failed; the next mutation catches up.
		h.logger.Warn("dog stored but list not refreshed", zap.Int64("id", dog.ID), zap.Error(err))
	}

	h.writeJSON(w, http.StatusCreated, model.NewSuccessResponse(dog))
}

// DeleteDog handles DELETE /api/v1/dogs/{id} requests.
func (h *DogHandler) DeleteDog(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(mux.Vars(r)["id"])
	if err != nil {
		h.handleError(w, err, "delete dog")
		return
	}

	if err := h.svc.Remove(r.Context(), id); err != nil {
		h.handleError(w, err, "delete dog")
		return
	}

	h.writeJSON(w, http.StatusNoContent, nil)
}

// ToggleFavorite handles POST /api/v1/dogs/{id}/favorite requests.
func (h *DogHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(mux.Vars(r)["id"])
	if err != nil {
		h.handleError(w, err, "toggle favorite")
		return
	}

	if err := h.svc.ToggleFavorite(r.Context(), id); err != nil {
		h.handleError(w, err, "toggle favorite")
		return
	}

	h.writeJSON(w, http.StatusNoContent, nil)
}

// RandomPhoto handles GET /api/v1/photos/random requests.
func (h *DogHandler) RandomPhoto(w http.ResponseWriter, r *http.Request) {
	url, err := h.svc.FetchPhoto(r.Context())
	if err != nil {
		h.handleError(w, err, "random photo")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(model.Photo{
		URL:   url,
		Breed: photo.BreedFromURL(url),
	}))
}
