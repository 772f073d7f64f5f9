package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CORSPolicy describes which browser origins may call the API.
type CORSPolicy struct {
	// AllowedOrigins lists exact origins; "*" allows any origin without
	// credentials.
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	// ExposedHeaders are readable by browser scripts.
	ExposedHeaders []string
	MaxAge         time.Duration
}

// CORS applies policy. It is meant to wrap the whole router: a preflight
// (OPTIONS with Origin and Access-Control-Request-Method) is answered here
// with 204, or 403 for an origin outside the policy, and never reaches
// route matching or authentication. Other requests get the allow headers and
// pass through.
func CORS(policy CORSPolicy) Middleware {
	origins := make(map[string]bool, len(policy.AllowedOrigins))
	for _, origin := range policy.AllowedOrigins {
		origins[origin] = true
	}
	anyOrigin := origins["*"]

	methods := strings.Join(policy.AllowedMethods, ", ")
	headers := strings.Join(policy.AllowedHeaders, ", ")
	exposed := strings.Join(policy.ExposedHeaders, ", ")
	maxAge := strconv.Itoa(int(policy.MaxAge / time.Second))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			preflight := r.Method == http.MethodOptions &&
				origin != "" &&
				r.Header.Get("Access-Control-Request-Method") != ""

			h := w.Header()
			h.Add("Vary", "Origin")

			allowed := origin != "" && (anyOrigin || origins[origin])
			if allowed {
				h.Set("Access-Control-Allow-Origin", origin)
				if !anyOrigin {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
				if exposed != "" {
					h.Set("Access-Control-Expose-Headers", exposed)
				}
			}

			if !preflight {
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				w.WriteHeader(http.StatusForbidden)
				return
			}

			h.Set("Access-Control-Allow-Methods", methods)
			h.Set("Access-Control-Allow-Headers", headers)
			h.Set("Access-Control-Max-Age", maxAge)
			w.WriteHeader(http.StatusNoContent)
		})
	}
}
