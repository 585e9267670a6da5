package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig controls the CORS middleware. Zero-value fields fall back to
// the defaults noted per field.
type CORSConfig struct {
	// AllowedOrigins lists origins allowed to call the API. A "*" entry
	// allows every origin regardless of Environment.
	AllowedOrigins []string

	// AllowedMethods defaults to GET, POST, PUT, PATCH, DELETE, OPTIONS.
	AllowedMethods []string

	// AllowedHeaders defaults to Accept, Authorization, Content-Type,
	// X-Correlation-ID.
	AllowedHeaders []string

	// ExposedHeaders lists response headers the browser may read.
	ExposedHeaders []string

	// MaxAge is the preflight cache lifetime in seconds. Defaults to 3600.
	MaxAge int

	// AllowCredentials permits cookies and Authorization headers.
	AllowCredentials bool

	// Environment widens origin matching: "development" behaves as if
	// AllowedOrigins contained "*".
	Environment string
}

// CORS returns middleware that answers preflight requests and stamps CORS
// headers on every response.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	h := newCORSHeaders(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h.apply(w, r.Header.Get("Origin"))

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// corsHeaders is the header set precomputed once at mount time.
type corsHeaders struct {
	wildcard    bool
	origins     map[string]struct{}
	methods     string
	headers     string
	exposed     string
	maxAge      string
	credentials bool
}

func newCORSHeaders(cfg CORSConfig) *corsHeaders {
	if len(cfg.AllowedMethods) == 0 {
		cfg.AllowedMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	}
	if len(cfg.AllowedHeaders) == 0 {
		cfg.AllowedHeaders = []string{"Accept", "Authorization", "Content-Type", "X-Correlation-ID"}
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = 3600
	}

	h := &corsHeaders{
		wildcard:    cfg.Environment == "development",
		origins:     make(map[string]struct{}, len(cfg.AllowedOrigins)),
		methods:     strings.Join(cfg.AllowedMethods, ", "),
		headers:     strings.Join(cfg.AllowedHeaders, ", "),
		exposed:     strings.Join(cfg.ExposedHeaders, ", "),
		maxAge:      strconv.Itoa(cfg.MaxAge),
		credentials: cfg.AllowCredentials,
	}
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			h.wildcard = true
		}
		h.origins[o] = struct{}{}
	}
	return h
}

// apply stamps the headers for one request. Origins outside the allowlist
// get no Allow-Origin header, which makes the browser block the response.
func (h *corsHeaders) apply(w http.ResponseWriter, origin string) {
	switch {
	case h.wildcard:
		w.Header().Set("Access-Control-Allow-Origin", "*")
	case origin != "":
		if _, ok := h.origins[origin]; ok {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}
	}

	w.Header().Set("Access-Control-Allow-Methods", h.methods)
	w.Header().Set("Access-Control-Allow-Headers", h.headers)
	if h.exposed != "" {
		w.Header().Set("Access-Control-Expose-Headers", h.exposed)
	}
	w.Header().Set("Access-Control-Max-Age", h.maxAge)
	if h.credentials {
		w.Header().Set("Access-Control-Allow-Credentials", "true")
	}
}
