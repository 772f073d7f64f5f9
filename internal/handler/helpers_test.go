package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/doglist-api/internal/dogs"
	"github.com/vyrodovalexey/doglist-api/internal/store"
)

const testPhotoURL = "https://images.dog.ceo/breeds/hound-afghan/n02088094_1003.jpg"

// stubPhotos is a PhotoProvider returning a fixed result.
type stubPhotos struct {
	url string
	err error
}

func (s *stubPhotos) RandomPhoto(_ context.Context) (string, error) {
	return s.url, s.err
}

func newTestService(t *testing.T, photos dogs.PhotoProvider) *dogs.Service {
	t.Helper()

	svc, err := dogs.NewService(context.Background(), dogs.Deps{
		Store:  store.NewMemoryStore(),
		Photos: photos,
		Logger: zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return svc
}

func newTestRouter(t *testing.T, svc *dogs.Service, flows *dogs.FlowRegistry) *mux.Router {
	t.Helper()

	router := mux.NewRouter()
	NewDogHandler(svc, zap.NewNop()).RegisterRoutes(router)
	if flows != nil {
		NewFlowHandler(flows, svc, zap.NewNop()).RegisterRoutes(router)
	}
	return router
}

func doRequest(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// envelope decodes a success response, leaving Data raw.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func decodeData(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()

	var env envelope
	if err := json.NewDecoder(rr.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	if !env.Success {
		t.Fatalf("success = false, error = %q", env.Error)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("failed to decode data: %v", err)
	}
}

var errPhotoDown = errors.New("photo service down")
