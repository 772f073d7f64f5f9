package auth

import (
	"crypto/subtle"
	"net/http"
)

// APIKeyHeader is the HTTP header carrying the API key.
const APIKeyHeader = "X-API-Key"

// APIKeyQueryParam carries the API key for clients that cannot set headers,
// such as browser WebSocket connections to the live feed.
const APIKeyQueryParam = "api_key"

// APIKeyAuthenticator authenticates requests by API key.
type APIKeyAuthenticator struct {
	keys map[string]string // key value -> key name
}

// NewAPIKeyAuthenticator parses "key1:name1,key2:name2".
func NewAPIKeyAuthenticator(keysConfig string) (*APIKeyAuthenticator, error) {
	keys, err := parsePairs("apikey auth", keysConfig, "key:name")
	if err != nil {
		return nil, err
	}
	return &APIKeyAuthenticator{keys: keys}, nil
}

// Authenticate reads the key from the X-API-Key header, falling back to the
// api_key query parameter, and compares it in constant time against every
// configured key.
func (a *APIKeyAuthenticator) Authenticate(r *http.Request) (*AuthInfo, error) {
	apiKey := r.Header.Get(APIKeyHeader)
	if apiKey == "" {
		apiKey = r.URL.Query().Get(APIKeyQueryParam)
	}
	if apiKey == "" {
		return nil, ErrUnauthenticated
	}

	var subject string
	for key, name := range a.keys {
		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(key)) == 1 {
			subject = name
		}
	}
	if subject == "" {
		return nil, ErrInvalidAPIKey
	}

	return &AuthInfo{Method: AuthMethodAPIKey, Subject: subject}, nil
}

// Method returns the authentication method type.
func (a *APIKeyAuthenticator) Method() AuthMethod {
	return AuthMethodAPIKey
}
