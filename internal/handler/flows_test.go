package handler

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vyrodovalexey/doglist-api/internal/dogs"
	"github.com/vyrodovalexey/doglist-api/internal/model"
)

// flakyFetch fails the first n calls and then succeeds.
func flakyFetch(failures int32) dogs.FetchFunc {
	var calls atomic.Int32
	return func(context.Context) (string, error) {
		if calls.Add(1) <= failures {
			return "", &dogs.FetchError{Err: errPhotoDown}
		}
		return testPhotoURL, nil
	}
}

func newTestFlows(t *testing.T, fetch dogs.FetchFunc) *dogs.FlowRegistry {
	t.Helper()
	flows := dogs.NewFlowRegistry(fetch, time.Minute, nil)
	t.Cleanup(flows.Close)
	return flows
}

func TestFlowHandler_SuccessfulFlow(t *testing.T) {
	// Arrange
	svc := newTestService(t, nil)
	flows := newTestFlows(t, flakyFetch(0))
	router := newTestRouter(t, svc, flows)

	// Act
	created := doRequest(t, router, http.MethodPost, "/api/v1/flows", "")
	var view model.FlowView
	decodeData(t, created, &view)

	settled := doRequest(t, router, http.MethodGet, "/api/v1/flows/"+view.ID+"?wait=true", "")
	decodeData(t, settled, &view)

	submitted := doRequest(t, router, http.MethodPost, "/api/v1/flows/"+view.ID+"/dogs", `{"name":"Ada"}`)

	// Assert
	if created.Code != http.StatusCreated {
		t.Errorf("create status = %d, want %d", created.Code, http.StatusCreated)
	}
	if view.State != string(dogs.FlowSuccess) || view.Photo == nil || view.Photo.Breed != "Hound afghan" {
		t.Fatalf("view = %+v", view)
	}
	if submitted.Code != http.StatusCreated {
		t.Fatalf("submit status = %d, body = %s", submitted.Code, submitted.Body.String())
	}
	var dog model.Dog
	decodeData(t, submitted, &dog)
	if dog.ImageRef != testPhotoURL || dog.Breed != "Hound afghan" {
		t.Errorf("dog = %+v", dog)
	}
	if flows.Len() != 0 {
		t.Errorf("flows.Len() = %d, want 0 after submit", flows.Len())
	}
}

func TestFlowHandler_RetryAfterError(t *testing.T) {
	// Arrange
	flows := newTestFlows(t, flakyFetch(1))
	router := newTestRouter(t, newTestService(t, nil), flows)

	created := doRequest(t, router, http.MethodPost, "/api/v1/flows", "")
	var view model.FlowView
	decodeData(t, created, &view)
	id := view.ID

	// Act
	failed := doRequest(t, router, http.MethodGet, "/api/v1/flows/"+id+"?wait=true", "")
	decodeData(t, failed, &view)
	if view.State != string(dogs.FlowError) || view.Error == "" {
		t.Fatalf("after first fetch view = %+v, want error", view)
	}

	retried := doRequest(t, router, http.MethodPost, "/api/v1/flows/"+id+"/retry", "")
	settled := doRequest(t, router, http.MethodGet, "/api/v1/flows/"+id+"?wait=true", "")

	// Assert
	if retried.Code != http.StatusAccepted {
		t.Errorf("retry status = %d, want %d", retried.Code, http.StatusAccepted)
	}
	decodeData(t, settled, &view)
	if view.State != string(dogs.FlowSuccess) {
		t.Errorf("after retry view = %+v, want success", view)
	}

	again := doRequest(t, router, http.MethodPost, "/api/v1/flows/"+id+"/retry", "")
	if again.Code != http.StatusConflict {
		t.Errorf("retry after success status = %d, want %d", again.Code, http.StatusConflict)
	}
}

func TestFlowHandler_RetryReportsLoading(t *testing.T) {
	// Arrange
	router := newTestRouter(t, newTestService(t, nil), newTestFlows(t, flakyFetch(1)))
	created := doRequest(t, router, http.MethodPost, "/api/v1/flows", "")
	var view model.FlowView
	decodeData(t, created, &view)
	id := view.ID
	doRequest(t, router, http.MethodGet, "/api/v1/flows/"+id+"?wait=true", "")

	// Act
	// The retried fetch succeeds at once and may settle before the reply is
	// written.
	retried := doRequest(t, router, http.MethodPost, "/api/v1/flows/"+id+"/retry", "")

	// Assert
	if retried.Code != http.StatusAccepted {
		t.Fatalf("retry status = %d, want %d", retried.Code, http.StatusAccepted)
	}
	decodeData(t, retried, &view)
	if view.ID != id || view.State != string(dogs.FlowLoading) || view.Photo != nil || view.Error != "" {
		t.Errorf("retry view = %+v, want a bare loading view", view)
	}
}

func TestFlowHandler_UnknownFlow(t *testing.T) {
	router := newTestRouter(t, newTestService(t, nil), newTestFlows(t, flakyFetch(0)))

	tests := []struct {
		name   string
		method string
		target string
		body   string
	}{
		{name: "get", method: http.MethodGet, target: "/api/v1/flows/nope"},
		{name: "retry", method: http.MethodPost, target: "/api/v1/flows/nope/retry"},
		{name: "submit", method: http.MethodPost, target: "/api/v1/flows/nope/dogs", body: `{"name":"Rex"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, router, tt.method, tt.target, tt.body)

			if rr.Code != http.StatusNotFound {
				t.Errorf("status = %d, want %d", rr.Code, http.StatusNotFound)
			}
		})
	}
}

func TestFlowHandler_SubmitDuplicateKeepsFlow(t *testing.T) {
	// Arrange
	svc := newTestService(t, nil)
	flows := newTestFlows(t, flakyFetch(0))
	router := newTestRouter(t, svc, flows)
	doRequest(t, router, http.MethodPost, "/api/v1/dogs", `{"name":"Rex"}`)

	created := doRequest(t, router, http.MethodPost, "/api/v1/flows", "")
	var view model.FlowView
	decodeData(t, created, &view)

	// Act
	rr := doRequest(t, router, http.MethodPost, "/api/v1/flows/"+view.ID+"/dogs", `{"name":"REX"}`)

	// Assert
	if rr.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusConflict)
	}
	if flows.Len() != 1 {
		t.Errorf("flows.Len() = %d, want 1 so the user can pick another name", flows.Len())
	}
}
