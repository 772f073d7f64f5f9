// Package auth guards the dog list API with optional API key or Basic
// credentials.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// AuthMethod represents the authentication method used.
type AuthMethod string

const (
	// AuthMethodNone indicates no authentication.
	AuthMethodNone AuthMethod = "none"
	// AuthMethodBasic indicates HTTP Basic authentication.
	AuthMethodBasic AuthMethod = "basic"
	// AuthMethodAPIKey indicates API key authentication.
	AuthMethodAPIKey AuthMethod = "apikey"
	// AuthMethodMulti accepts either Basic or API key credentials.
	AuthMethodMulti AuthMethod = "multi"
)

// AuthInfo identifies the caller of a request.
type AuthInfo struct {
	Method  AuthMethod
	Subject string
}

// Authenticator validates a request and returns auth info.
type Authenticator interface {
	Authenticate(r *http.Request) (*AuthInfo, error)
	Method() AuthMethod
}

// Sentinel errors for authentication failures.
var (
	ErrUnauthenticated    = errors.New("unauthenticated: no credentials provided")
	ErrInvalidAPIKey      = errors.New("invalid API key")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnknownMode        = errors.New("unknown auth mode")
)

// New builds the authenticator for mode. It returns nil for mode "none",
// meaning the API is open.
func New(mode, basicUsers, apiKeys string) (Authenticator, error) {
	switch AuthMethod(mode) {
	case "", AuthMethodNone:
		return nil, nil
	case AuthMethodBasic:
		return NewBasicAuthenticator(basicUsers)
	case AuthMethodAPIKey:
		return NewAPIKeyAuthenticator(apiKeys)
	case AuthMethodMulti:
		var authenticators []Authenticator
		if strings.TrimSpace(apiKeys) != "" {
			a, err := NewAPIKeyAuthenticator(apiKeys)
			if err != nil {
				return nil, err
			}
			authenticators = append(authenticators, a)
		}
		if strings.TrimSpace(basicUsers) != "" {
			a, err := NewBasicAuthenticator(basicUsers)
			if err != nil {
				return nil, err
			}
			authenticators = append(authenticators, a)
		}
		return NewMultiAuthenticator(authenticators...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}

// parsePairs splits "a:b,c:d" into a map. The first colon of each entry
// separates the two halves, so values may contain further colons.
func parsePairs(prefix, config, shape string) (map[string]string, error) {
	trimmed := strings.TrimSpace(config)
	if trimmed == "" {
		return nil, fmt.Errorf("%s: config must not be empty", prefix)
	}

	pairs := make(map[string]string)
	for _, entry := range strings.Split(trimmed, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		left, right, ok := strings.Cut(entry, ":")
		if !ok {
			return nil, fmt.Errorf("%s: invalid entry format, expected %s", prefix, shape)
		}

		left = strings.TrimSpace(left)
		right = strings.TrimSpace(right)
		if left == "" || right == "" {
			return nil, fmt.Errorf("%s: both halves of %s must be set", prefix, shape)
		}

		pairs[left] = right
	}

	if len(pairs) == 0 {
		return nil, fmt.Errorf("%s: no valid entries found", prefix)
	}

	return pairs, nil
}

type contextKey string

const authInfoKey contextKey = "auth_info"

// FromContext retrieves AuthInfo from the context.
func FromContext(ctx context.Context) (*AuthInfo, bool) {
	info, ok := ctx.Value(authInfoKey).(*AuthInfo)
	return info, ok
}

// WithAuthInfo stores AuthInfo in the context.
func WithAuthInfo(ctx context.Context, info *AuthInfo) context.Context {
	return context.WithValue(ctx, authInfoKey, info)
}
