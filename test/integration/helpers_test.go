//go:build integration

package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"
)

// Environment variable names for integration test configuration.
const (
	EnvServerURL = "INTEGRATION_SERVER_URL"
	EnvAPIKey    = "INTEGRATION_API_KEY"
	EnvBasicUser = "INTEGRATION_BASIC_USER"
	EnvBasicPass = "INTEGRATION_BASIC_PASS"
)

// Default configuration values.
const (
	DefaultServerURL = "http://localhost:8080"
	DefaultTimeout   = 10 * time.Second
)

// getEnvOrDefault returns the value of the environment variable
// identified by key, or defaultVal if the variable is not set.
func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// skipIfServiceUnavailable skips the test when the deployed server does not
// answer its health check.
func skipIfServiceUnavailable(t *testing.T, baseURL string) {
	t.Helper()

	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		t.Skipf("Service unavailable at %s: %v", baseURL, err)
	}
	resp.Body.Close()
}

// apiClient talks to a deployed server with optional credentials.
type apiClient struct {
	baseURL string
	http    *http.Client
	apiKey  string
	user    string
	pass    string
}

func newAPIClient(t *testing.T) *apiClient {
	t.Helper()

	baseURL := getEnvOrDefault(EnvServerURL, DefaultServerURL)
	skipIfServiceUnavailable(t, baseURL)

	return &apiClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: DefaultTimeout},
		apiKey:  os.Getenv(EnvAPIKey),
		user:    os.Getenv(EnvBasicUser),
		pass:    os.Getenv(EnvBasicPass),
	}
}

func (c *apiClient) do(t *testing.T, method, path string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	switch {
	case c.apiKey != "":
		req.Header.Set("X-API-Key", c.apiKey)
	case c.user != "":
		req.SetBasicAuth(c.user, c.pass)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, raw
}

// decodeData unwraps {"success":true,"data":...} into v.
func decodeData(t *testing.T, raw []byte, v any) {
	t.Helper()

	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil || !env.Success {
		t.Fatalf("unexpected body %s (err %v)", raw, err)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func uniqueName(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
