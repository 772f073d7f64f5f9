//go:build functional

// Package functional runs the assembled server end to end over real sockets.
package functional

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/doglist-api/internal/auth"
	"github.com/vyrodovalexey/doglist-api/internal/config"
	"github.com/vyrodovalexey/doglist-api/internal/dogs"
	"github.com/vyrodovalexey/doglist-api/internal/model"
	"github.com/vyrodovalexey/doglist-api/internal/photo"
	"github.com/vyrodovalexey/doglist-api/internal/server"
	"github.com/vyrodovalexey/doglist-api/internal/store"
)

// Environment variable names for test configuration.
const (
	EnvTestServerHost = "TEST_SERVER_HOST"
	EnvTestLogLevel   = "TEST_LOG_LEVEL"
)

// Default test configuration values.
const (
	DefaultTestHost         = "127.0.0.1"
	DefaultReadyTimeout     = 10 * time.Second
	DefaultRequestTimeout   = 5 * time.Second
	DefaultWebSocketTimeout = 5 * time.Second
	DefaultShutdownTimeout  = 5 * time.Second
	TestAPIKey              = "functional-key"
)

// PhotoURL is what the stub photo API hands out.
const PhotoURL = "https://images.dog.ceo/breeds/hound-afghan/n02088094_1003.jpg"

// TestServer is a running doglist server backed by a temporary SQLite file.
type TestServer struct {
	Server  *server.Server
	Service *dogs.Service
	BaseURL string
	WSURL   string

	photoAPI *httptest.Server
	store    store.Store
	cancel   context.CancelFunc
}

// ServerOption tweaks the configuration before the server is built.
type ServerOption func(cfg *config.Config)

// WithAPIKeyAuth turns on API key authentication using TestAPIKey.
func WithAPIKeyAuth() ServerOption {
	return func(cfg *config.Config) {
		cfg.AuthMode = "apikey"
		cfg.APIKeys = TestAPIKey + ":functional"
	}
}

// StartTestServer builds and starts the full stack and stops it on cleanup.
func StartTestServer(t *testing.T, opts ...ServerOption) *TestServer {
	t.Helper()

	host := DefaultTestHost
	if h := os.Getenv(EnvTestServerHost); h != "" {
		host = h
	}

	logger := zap.NewNop()
	if lvl := os.Getenv(EnvTestLogLevel); lvl == "debug" {
		logger, _ = zap.NewDevelopment()
	}

	photoAPI := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"message":%q,"status":"success"}`,
			"http://images.dog.ceo/breeds/hound-afghan/n02088094_1003.jpg")
	}))

	cfg := config.Default()
	cfg.ServerPort = freePort(t, host)
	cfg.ShutdownTimeout = DefaultShutdownTimeout
	cfg.MetricsEnabled = true
	cfg.StoreDriver = store.DriverSQLite
	cfg.SQLitePath = filepath.Join(t.TempDir(), "doglist.db")
	cfg.PhotoAPIURL = photoAPI.URL
	cfg.PhotoRateLimit = 0
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("invalid test config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	dogStore, err := store.Open(ctx, store.Options{Driver: cfg.StoreDriver, SQLitePath: cfg.SQLitePath})
	if err != nil {
		cancel()
		t.Fatalf("opening store: %v", err)
	}

	photos, err := photo.NewClient(photo.Options{BaseURL: cfg.PhotoAPIURL, Timeout: cfg.PhotoTimeout}, logger)
	if err != nil {
		cancel()
		t.Fatalf("creating photo client: %v", err)
	}

	svc, err := dogs.NewService(ctx, dogs.Deps{Store: dogStore, Photos: photos, Logger: logger})
	if err != nil {
		cancel()
		t.Fatalf("creating service: %v", err)
	}

	authenticator, err := auth.New(cfg.AuthMode, cfg.BasicAuthUsers, cfg.APIKeys)
	if err != nil {
		cancel()
		t.Fatalf("creating authenticator: %v", err)
	}

	flows := dogs.NewFlowRegistry(svc.FetchPhoto, cfg.FlowTTL, logger)
	go flows.Run(ctx)

	srv := server.New(cfg, logger, server.Deps{
		Service:       svc,
		Flows:         flows,
		Authenticator: authenticator,
	})

	ts := &TestServer{
		Server:   srv,
		Service:  svc,
		BaseURL:  fmt.Sprintf("http://%s:%d", host, cfg.ServerPort),
		WSURL:    fmt.Sprintf("ws://%s:%d/ws", host, cfg.ServerPort),
		photoAPI: photoAPI,
		store:    dogStore,
		cancel:   cancel,
	}

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	t.Cleanup(ts.stop)
	ts.waitForReady(t)

	return ts
}

func (ts *TestServer) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()

	_ = ts.Server.Shutdown(ctx)
	ts.cancel()
	_ = ts.store.Close()
	ts.photoAPI.Close()
}

func (ts *TestServer) waitForReady(t *testing.T) {
	t.Helper()

	deadline := time.Now().Add(DefaultReadyTimeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(ts.BaseURL + "/ready")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("server did not become ready within %s", DefaultReadyTimeout)
}

func freePort(t *testing.T, host string) int {
	t.Helper()

	l, err := net.Listen("tcp", host+":0")
	if err != nil {
		t.Fatalf("finding free port: %v", err)
	}
	defer l.Close()

	return l.Addr().(*net.TCPAddr).Port
}

// Response is a buffered HTTP response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Do sends a request with an optional JSON body and headers.
func (ts *TestServer) Do(t *testing.T, method, path string, body any, headers map[string]string) *Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultRequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, ts.BaseURL+path, reader)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}

	return &Response{StatusCode: resp.StatusCode, Headers: resp.Header, Body: raw}
}

// APIResponse is the success envelope with raw data.
type APIResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// DecodeData unwraps the success envelope into v.
func DecodeData(t *testing.T, resp *Response, v any) {
	t.Helper()

	var env APIResponse
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		t.Fatalf("decoding envelope: %v (body %s)", err, resp.Body)
	}
	if !env.Success {
		t.Fatalf("expected success envelope, got %s", resp.Body)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decoding data: %v", err)
	}
}

// DecodeError parses an error body.
func DecodeError(t *testing.T, resp *Response) model.ErrorResponse {
	t.Helper()

	var e model.ErrorResponse
	if err := json.Unmarshal(resp.Body, &e); err != nil {
		t.Fatalf("decoding error body: %v (body %s)", err, resp.Body)
	}
	return e
}

// AssertStatusCode asserts that the response has the expected status code.
func AssertStatusCode(t *testing.T, resp *Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status code %d, got %d. Body: %s", expected, resp.StatusCode, string(resp.Body))
	}
}
