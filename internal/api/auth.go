package api

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"stolik/internal/config"
	"stolik/internal/domain"
	"stolik/internal/models"

	"golang.org/x/time/rate"
)

const (
	permReadReservations  = "read:reservations"
	permWriteReservations = "write:reservations"
	permReadResources     = "read:resources"
	permReadOccupancy     = "read:occupancy"
)

// HTTPAuth provides API-key auth and per-key rate limiting for HTTP endpoints.
// Request budgets are counted in the shared occupancy cache when one is
// wired, so limits hold across instances and survive a Redis failover; the
// in-process limiter serves deployments without a cache.
type HTTPAuth struct {
	cfg      config.APIConfig
	clients  map[string]config.APIClientKey
	cache    domain.OccupancyCache
	limiters sync.Map // map[string]*rate.Limiter
}

func NewHTTPAuth(cfg config.APIConfig, cache domain.OccupancyCache) *HTTPAuth {
	m := make(map[string]config.APIClientKey, len(cfg.Auth.APIKeys))
	for _, k := range cfg.Auth.APIKeys {
		m[k.Key] = k
	}
	return &HTTPAuth{cfg: cfg, clients: m, cache: cache}
}

func (a *HTTPAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.cfg.Enabled || !a.cfg.HTTP.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		if a.cfg.Auth.Enabled {
			if err := a.checkAuth(r); err != nil {
				statusCode := http.StatusUnauthorized
				if err == errPermissionDenied {
					statusCode = http.StatusForbidden
				}
				writeError(w, statusCode, err.Error())
				return
			}
		}

		if err := a.checkRateLimit(r); err != nil {
			writeError(w, http.StatusTooManyRequests, err.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}

var errPermissionDenied = fmt.Errorf("permission denied")

func (a *HTTPAuth) checkAuth(r *http.Request) error {
	apiKey := strings.TrimSpace(r.Header.Get(headerOrDefault(a.cfg.Auth.HeaderAPIKey, "x-api-key")))
	if apiKey == "" {
		return fmt.Errorf("missing api key header")
	}

	client, ok := a.clients[apiKey]
	if !ok {
		return fmt.Errorf("invalid api key")
	}

	return a.checkPermissions(client, r)
}

func (a *HTTPAuth) checkPermissions(client config.APIClientKey, r *http.Request) error {
	required := requiredPermission(r)
	if required == "" {
		return nil
	}
	// If permissions list is empty, treat as allow-all.
	if len(client.Permissions) == 0 {
		return nil
	}
	for _, p := range client.Permissions {
		if strings.TrimSpace(p) == required {
			return nil
		}
	}
	return errPermissionDenied
}

func requiredPermission(r *http.Request) string {
	path := r.URL.Path
	switch {
	case strings.HasPrefix(path, "/api/v1/reservations"):
		if r.Method == http.MethodGet {
			return permReadReservations
		}
		return permWriteReservations
	case strings.HasPrefix(path, "/api/v1/resources"):
		return permReadResources
	case strings.HasPrefix(path, "/api/v1/occupancy"):
		return permReadOccupancy
	default:
		return ""
	}
}

func (a *HTTPAuth) checkRateLimit(r *http.Request) error {
	if a.cfg.RateLimit.RPS <= 0 {
		return nil
	}

	key := a.clientKey(r)

	if a.cache != nil {
		limit, window := a.rateBudget()
		allowed, err := a.cache.CheckRateLimit(r.Context(), key, limit, window)
		if err == nil {
			if !allowed {
				return fmt.Errorf("rate limit exceeded")
			}
			return nil
		}
		// Cache unreachable; fall through to the local limiter.
	}

	lim := a.getLimiter(key)
	if !lim.Allow() {
		return fmt.Errorf("rate limit exceeded")
	}
	return nil
}

// rateBudget converts the RPS/burst pair into the counter form the cache
// limiter uses: at most `limit` requests per refill window.
func (a *HTTPAuth) rateBudget() (int, time.Duration) {
	limit := a.cfg.RateLimit.Burst
	if limit <= 0 {
		limit = models.RateLimitRequests
	}

	window := time.Duration(float64(limit) / a.cfg.RateLimit.RPS * float64(time.Second))
	if window <= 0 {
		window = time.Duration(models.RateLimitWindow) * time.Second
	}
	return limit, window
}

func (a *HTTPAuth) clientKey(r *http.Request) string {
	if apiKey := strings.TrimSpace(r.Header.Get(headerOrDefault(a.cfg.Auth.HeaderAPIKey, "x-api-key"))); apiKey != "" {
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

func headerOrDefault(name, fallback string) string {
	if trimmed := strings.TrimSpace(strings.ToLower(name)); trimmed != "" {
		return trimmed
	}
	return fallback
}

// actorFrom reads the acting identity from request headers. Unauthenticated
// or header-less requests act as an anonymous client; role escalation is only
// honored for the configured headers, trusted because the API key gate sits
// in front.
func actorFrom(r *http.Request, cfg config.APIAuthConfig) models.Actor {
	userID := strings.TrimSpace(r.Header.Get(headerOrDefault(cfg.HeaderActorID, "x-actor-id")))
	role := strings.TrimSpace(strings.ToLower(r.Header.Get(headerOrDefault(cfg.HeaderActorRole, "x-actor-role"))))

	if userID == "" {
		userID = "anonymous"
	}
	switch role {
	case models.RoleManager, models.RoleAdmin, models.RoleSuperuser:
	default:
		role = models.RoleClient
	}

	return models.Actor{UserID: userID, Role: role}
}
