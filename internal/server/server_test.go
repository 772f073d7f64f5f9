package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/doglist-api/internal/auth"
	"github.com/vyrodovalexey/doglist-api/internal/config"
	"github.com/vyrodovalexey/doglist-api/internal/dogs"
	"github.com/vyrodovalexey/doglist-api/internal/model"
	"github.com/vyrodovalexey/doglist-api/internal/store"
)

// testAuthenticator is a mock authenticator for server tests.
type testAuthenticator struct {
	info *auth.AuthInfo
	err  error
}

func (a *testAuthenticator) Authenticate(_ *http.Request) (*auth.AuthInfo, error) {
	return a.info, a.err
}

func (a *testAuthenticator) Method() auth.AuthMethod {
	return auth.AuthMethodAPIKey
}

func testConfig(port int, metrics bool) *config.Config {
	cfg := config.Default()
	cfg.ServerPort = port
	cfg.MetricsEnabled = metrics
	cfg.ShutdownTimeout = 5 * time.Second
	return cfg
}

func testDeps(t *testing.T, authenticator auth.Authenticator) Deps {
	t.Helper()

	svc, err := dogs.NewService(context.Background(), dogs.Deps{
		Store:  store.NewMemoryStore(),
		Logger: zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	flows := dogs.NewFlowRegistry(func(context.Context) (string, error) {
		return "https://images.dog.ceo/breeds/pug/1.jpg", nil
	}, time.Minute, nil)
	t.Cleanup(flows.Close)

	return Deps{Service: svc, Flows: flows, Authenticator: authenticator}
}

func freePort(t *testing.T) int {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func serve(s *Server, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func TestNew(t *testing.T) {
	// Arrange
	cfg := testConfig(8080, true)

	// Act
	server := New(cfg, zap.NewNop(), testDeps(t, nil))

	// Assert
	if server == nil {
		t.Fatal("New() returned nil")
	}
	if server.router == nil || server.httpServer == nil || server.feedHandler == nil {
		t.Errorf("server not fully initialised: %+v", server)
	}
	if server.Router() != server.router {
		t.Error("Router() should return the server's router")
	}
}

func TestNew_Metrics(t *testing.T) {
	tests := []struct {
		name       string
		enabled    bool
		wantStatus int
	}{
		{name: "enabled", enabled: true, wantStatus: http.StatusOK},
		{name: "disabled", enabled: false, wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := New(testConfig(8080, tt.enabled), zap.NewNop(), testDeps(t, nil))

			rr := serve(server, http.MethodGet, "/metrics", "", nil)

			if rr.Code != tt.wantStatus {
				t.Errorf("/metrics status = %d, want %d", rr.Code, tt.wantStatus)
			}
		})
	}
}

func TestServer_MetricsExposeDogGauges(t *testing.T) {
	// Arrange
	server := New(testConfig(8080, true), zap.NewNop(), testDeps(t, nil))
	serve(server, http.MethodPost, "/api/v1/dogs", `{"name":"Rex"}`, nil)

	// Act
	rr := serve(server, http.MethodGet, "/metrics", "", nil)

	// Assert
	body := rr.Body.String()
	for _, name := range []string{"doglist_dogs_total", "doglist_favorites_total", "doglist_mutations_total", "doglist_http_requests_total"} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}

func TestServer_HealthEndpoint(t *testing.T) {
	// Arrange
	server := New(testConfig(8080, true), zap.NewNop(), testDeps(t, nil))

	// Act
	rr := serve(server, http.MethodGet, "/health", "", nil)

	// Assert
	if rr.Code != http.StatusOK {
		t.Errorf("Health endpoint status = %d, want %d", rr.Code, http.StatusOK)
	}
	var response model.APIResponse[map[string]string]
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !response.Success {
		t.Error("Health check should return success")
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %s, want application/json", ct)
	}
}

func TestServer_DogAndFlowRoutes(t *testing.T) {
	server := New(testConfig(8080, false), zap.NewNop(), testDeps(t, nil))

	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		wantStatus int
	}{
		{name: "create dog", method: http.MethodPost, target: "/api/v1/dogs", body: `{"name":"Rex"}`, wantStatus: http.StatusCreated},
		{name: "list dogs", method: http.MethodGet, target: "/api/v1/dogs", wantStatus: http.StatusOK},
		{name: "stats", method: http.MethodGet, target: "/api/v1/dogs/stats", wantStatus: http.StatusOK},
		{name: "get dog", method: http.MethodGet, target: "/api/v1/dogs/1", wantStatus: http.StatusOK},
		{name: "toggle favorite", method: http.MethodPost, target: "/api/v1/dogs/1/favorite", wantStatus: http.StatusNoContent},
		{name: "delete dog", method: http.MethodDelete, target: "/api/v1/dogs/1", wantStatus: http.StatusNoContent},
		{name: "start flow", method: http.MethodPost, target: "/api/v1/flows", wantStatus: http.StatusCreated},
		{name: "ready", method: http.MethodGet, target: "/ready", wantStatus: http.StatusOK},
	}

	// Subtests run in order and share the server.
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(server, tt.method, tt.target, tt.body, nil)

			if rr.Code != tt.wantStatus {
				t.Errorf("%s %s status = %d, want %d", tt.method, tt.target, rr.Code, tt.wantStatus)
			}
		})
	}
}

func TestServer_WebSocketRouteExists(t *testing.T) {
	server := New(testConfig(8080, false), zap.NewNop(), testDeps(t, nil))

	rr := serve(server, http.MethodGet, "/ws", "", nil)

	if rr.Code == http.StatusNotFound {
		t.Error("WebSocket endpoint /ws not found")
	}
}

func TestServer_Auth(t *testing.T) {
	authenticator := &testAuthenticator{
		info: &auth.AuthInfo{Method: auth.AuthMethodAPIKey, Subject: "ops"},
	}
	rejecting := &testAuthenticator{err: auth.ErrUnauthenticated}

	tests := []struct {
		name          string
		authenticator auth.Authenticator
		target        string
		wantStatus    int
	}{
		{name: "accepted", authenticator: authenticator, target: "/api/v1/dogs", wantStatus: http.StatusOK},
		{name: "rejected", authenticator: rejecting, target: "/api/v1/dogs", wantStatus: http.StatusUnauthorized},
		{name: "health stays public", authenticator: rejecting, target: "/health", wantStatus: http.StatusOK},
		{name: "ready stays public", authenticator: rejecting, target: "/ready", wantStatus: http.StatusOK},
		{name: "metrics stay public", authenticator: rejecting, target: "/metrics", wantStatus: http.StatusOK},
		{name: "feed is guarded", authenticator: rejecting, target: "/ws", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := New(testConfig(8080, true), zap.NewNop(), testDeps(t, tt.authenticator))

			rr := serve(server, http.MethodGet, tt.target, "", nil)

			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
		})
	}
}

func TestServer_MiddlewareApplied(t *testing.T) {
	// Arrange
	server := New(testConfig(8080, true), zap.NewNop(), testDeps(t, nil))

	// Act
	rr := serve(server, http.MethodGet, "/health", "", map[string]string{"Origin": "http://localhost:3000"})

	// Assert
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header should be set by middleware")
	}
	if rr.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("CORS headers should be set by middleware")
	}
}

func TestServer_CORSPreflight(t *testing.T) {
	rejecting := &testAuthenticator{err: auth.ErrUnauthenticated}

	tests := []struct {
		name   string
		target string
		method string
	}{
		{name: "create dog", target: "/api/v1/dogs", method: http.MethodPost},
		{name: "delete dog", target: "/api/v1/dogs/3", method: http.MethodDelete},
		{name: "retry flow", target: "/api/v1/flows/abc/retry", method: http.MethodPost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			server := New(testConfig(8080, true), zap.NewNop(), testDeps(t, rejecting))

			// Act
			rr := serve(server, http.MethodOptions, tt.target, "", map[string]string{
				"Origin":                         "http://localhost:3000",
				"Access-Control-Request-Method":  tt.method,
				"Access-Control-Request-Headers": "Content-Type, X-API-Key",
			})

			// Assert
			if rr.Code != http.StatusNoContent {
				t.Fatalf("status = %d, want %d", rr.Code, http.StatusNoContent)
			}
			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
				t.Errorf("Allow-Origin = %q", got)
			}
			if got := rr.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, tt.method) {
				t.Errorf("Allow-Methods = %q, want it to contain %s", got, tt.method)
			}
			if got := rr.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(got, auth.APIKeyHeader) {
				t.Errorf("Allow-Headers = %q, want it to contain %s", got, auth.APIKeyHeader)
			}
		})
	}
}

func TestServer_HTTPServerConfiguration(t *testing.T) {
	// Arrange
	cfg := testConfig(8080, true)

	// Act
	server := New(cfg, zap.NewNop(), testDeps(t, nil))

	// Assert
	if server.httpServer.Addr != ":8080" {
		t.Errorf("httpServer.Addr = %s, want :8080", server.httpServer.Addr)
	}
	if server.httpServer.ReadTimeout != 15*time.Second {
		t.Errorf("httpServer.ReadTimeout = %v, want 15s", server.httpServer.ReadTimeout)
	}
	if server.httpServer.WriteTimeout != cfg.PhotoTimeout+15*time.Second {
		t.Errorf("httpServer.WriteTimeout = %v, want photo timeout + 15s", server.httpServer.WriteTimeout)
	}
	if server.httpServer.MaxHeaderBytes != 1<<20 {
		t.Errorf("httpServer.MaxHeaderBytes = %d, want %d", server.httpServer.MaxHeaderBytes, 1<<20)
	}
}

func TestServer_StartAndShutdown(t *testing.T) {
	// Arrange
	deps := testDeps(t, nil)
	server := New(testConfig(freePort(t), false), zap.NewNop(), deps)
	deps.Flows.Create()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()
	time.Sleep(100 * time.Millisecond)

	// Act
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := server.Shutdown(ctx)

	// Assert
	if err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
	if startErr := <-errCh; startErr != nil {
		t.Errorf("Start() error = %v", startErr)
	}
	if deps.Flows.Len() != 0 {
		t.Errorf("flows.Len() = %d, want 0 after shutdown", deps.Flows.Len())
	}
}
