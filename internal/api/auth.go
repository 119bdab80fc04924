package api

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"

	"termin/internal/config"

	"golang.org/x/time/rate"
)

var errAdminOnly = fmt.Errorf("admin access required")

type clientKeyContext struct{}

// clientName returns the authenticated API client's name, or empty
// when auth is disabled.
func clientName(ctx context.Context) string {
	name, _ := ctx.Value(clientKeyContext{}).(string)
	return name
}

// HTTPAuth provides API-key auth and per-key rate limiting. Admin-only
// endpoints additionally require a key marked admin in the config.
type HTTPAuth struct {
	cfg      config.APIConfig
	clients  map[string]config.APIClientKey
	limiters sync.Map // map[string]*rate.Limiter
}

func NewHTTPAuth(cfg config.APIConfig) *HTTPAuth {
	m := make(map[string]config.APIClientKey, len(cfg.Auth.APIKeys))
	for _, k := range cfg.Auth.APIKeys {
		m[k.Key] = k
	}
	return &HTTPAuth{cfg: cfg, clients: m}
}

func (a *HTTPAuth) headerName() string {
	h := strings.TrimSpace(strings.ToLower(a.cfg.Auth.HeaderAPIKey))
	if h == "" {
		h = "x-api-key"
	}
	return h
}

func (a *HTTPAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.cfg.Auth.Enabled {
			client, err := a.checkAuth(r)
			if err != nil {
				statusCode := http.StatusUnauthorized
				if err == errAdminOnly {
					statusCode = http.StatusForbidden
				}
				writeError(w, statusCode, err.Error())
				return
			}
			r = r.WithContext(context.WithValue(r.Context(), clientKeyContext{}, client.Name))
		}

		if err := a.checkRateLimit(r); err != nil {
			writeError(w, http.StatusTooManyRequests, err.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (a *HTTPAuth) checkAuth(r *http.Request) (config.APIClientKey, error) {
	apiKey := strings.TrimSpace(r.Header.Get(a.headerName()))
	if apiKey == "" {
		return config.APIClientKey{}, fmt.Errorf("missing api key header")
	}

	// Constant-time scan so key validity never leaks through timing.
	var found config.APIClientKey
	var ok bool
	for key, client := range a.clients {
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1 {
			found, ok = client, true
		}
	}
	if !ok {
		return config.APIClientKey{}, fmt.Errorf("invalid api key")
	}

	if adminOnly(r) && !found.Admin {
		return config.APIClientKey{}, errAdminOnly
	}
	return found, nil
}

// adminOnly marks the moderation surface: everything a customer app
// never calls.
func adminOnly(r *http.Request) bool {
	path := r.URL.Path
	switch {
	case strings.HasPrefix(path, "/api/v1/blocks"):
		return true
	case strings.HasPrefix(path, "/api/v1/export"):
		return true
	case strings.HasPrefix(path, "/api/v1/bookings/") && r.Method == http.MethodPost:
		// POST /api/v1/bookings/{id}/{action} is moderation; plain
		// POST /api/v1/bookings is customer submission.
		return true
	}
	return false
}

func (a *HTTPAuth) checkRateLimit(r *http.Request) error {
	if a.cfg.RateLimit.RPS <= 0 {
		return nil
	}

	lim := a.getLimiter(a.clientKey(r))
	if !lim.Allow() {
		return fmt.Errorf("rate limit exceeded")
	}
	return nil
}

func (a *HTTPAuth) clientKey(r *http.Request) string {
	if apiKey := strings.TrimSpace(r.Header.Get(a.headerName())); apiKey != "" {
		return apiKey
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return "unknown"
}

func (a *HTTPAuth) getLimiter(key string) *rate.Limiter {
	if v, ok := a.limiters.Load(key); ok {
		return v.(*rate.Limiter)
	}

	burst := a.cfg.RateLimit.Burst
	if burst <= 0 {
		burst = 5
	}

	lim := rate.NewLimiter(rate.Limit(a.cfg.RateLimit.RPS), burst)
	actual, loaded := a.limiters.LoadOrStore(key, lim)
	if loaded {
		return actual.(*rate.Limiter)
	}
	return lim
}
