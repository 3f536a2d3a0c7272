package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig configures the CORS middleware.
type CORSConfig struct {
	// AllowedOrigins lists permitted origins. "*" allows everything and
	// is only honored in development.
	AllowedOrigins []string

	// AllowedMethods defaults to GET, POST, OPTIONS if empty.
	AllowedMethods []string

	// AllowedHeaders defaults to Accept, Content-Type,
	// X-Correlation-ID if empty.
	AllowedHeaders []string

	// MaxAge is the preflight cache lifetime in seconds; defaults to
	// 3600 if 0.
	MaxAge int

	// Environment controls wildcard behavior: wildcards are accepted
	// when Environment is "development" or AllowedOrigins contains "*".
	Environment string
}

// DefaultCORSConfig returns a permissive configuration suitable for
// development.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Correlation-ID"},
		MaxAge:         3600,
		Environment:    "development",
	}
}

func (cfg *CORSConfig) fillDefaults() {
	if len(cfg.AllowedMethods) == 0 {
		cfg.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.AllowedHeaders) == 0 {
		cfg.AllowedHeaders = []string{"Accept", "Content-Type", "X-Correlation-ID"}
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = 3600
	}
}

// CORS handles Cross-Origin Resource Sharing headers. The public
// review form is served from a separate origin, so the submit endpoint
// has to answer preflights.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	cfg.fillDefaults()

	wildcard := cfg.Environment == "development"
	allowed := make(map[string]bool, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			wildcard = true
			continue
		}
		allowed[o] = true
	}

	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	maxAge := strconv.Itoa(cfg.MaxAge)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			switch origin := r.Header.Get("Origin"); {
			case wildcard:
				h.Set("Access-Control-Allow-Origin", "*")
			case origin != "" && allowed[origin]:
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Vary", "Origin")
			}

			h.Set("Access-Control-Allow-Methods", methods)
			h.Set("Access-Control-Allow-Headers", headers)
			h.Set("Access-Control-Max-Age", maxAge)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
