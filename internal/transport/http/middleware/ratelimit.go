package middleware

import (
	"bytes"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"fieldpay/internal/transport/http/api"
	"fieldpay/internal/transport/http/shared"
)

type RateLimitKeyFunc func(r *http.Request) string

const limiterIdleTTL = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type rateLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	keyFn     RateLimitKeyFunc
	visitors  map[string]*visitor
	lastSweep time.Time
}

// RateLimit applies a token bucket of perSecond refill and burst capacity per caller.
func RateLimit(perSecond float64, burst int) func(http.Handler) http.Handler {
	rl := newRateLimiter(perSecond, burst, actorOrIPKey)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.enforce(w, r) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SensitiveMutationRateLimit adds tighter buckets for login attempts and for the
// mutations that count accounts or lock sheets.
func SensitiveMutationRateLimit(perSecond float64, burst int) func(http.Handler) http.Handler {
	authByIP := newRateLimiter(perSecond/4, max(burst/4, 1), clientIPKey)
	authByEmail := newRateLimiter(perSecond/4, max(burst/4, 1), AuthEmailOrIPKey("email"))
	sensitiveByActor := newRateLimiter(perSecond/2, max(burst/2, 1), actorOrIPKey)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch sensitiveRateScope(r) {
			case sensitiveScopeAuth:
				if !authByIP.enforce(w, r) {
					return
				}
				if !authByEmail.enforce(w, r) {
					return
				}
			case sensitiveScopeActor:
				if !sensitiveByActor.enforce(w, r) {
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func AuthEmailOrIPKey(field string) RateLimitKeyFunc {
	normalizedField := strings.TrimSpace(field)
	if normalizedField == "" {
		normalizedField = "email"
	}
	return func(r *http.Request) string {
		email := extractJSONField(r, normalizedField)
		if email == "" {
			return clientIPKey(r)
		}
		return "email:" + strings.ToLower(email)
	}
}

func actorOrIPKey(r *http.Request) string {
	if user, ok := GetUser(r.Context()); ok && user.ID != "" {
		return "user:" + user.ID
	}
	return clientIPKey(r)
}

func clientIPKey(r *http.Request) string {
	return shared.ClientIP(r)
}

func newRateLimiter(perSecond float64, burst int, keyFn RateLimitKeyFunc) *rateLimiter {
	if keyFn == nil {
		keyFn = actorOrIPKey
	}
	return &rateLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		keyFn:    keyFn,
		visitors: map[string]*visitor{},
	}
}

func (rl *rateLimiter) get(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastSweep) > limiterIdleTTL {
		for k, v := range rl.visitors {
			if now.Sub(v.lastSeen) > limiterIdleTTL {
				delete(rl.visitors, k)
			}
		}
		rl.lastSweep = now
	}
	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter
}

func (rl *rateLimiter) enforce(w http.ResponseWriter, r *http.Request) bool {
	if rl.limit <= 0 || rl.burst <= 0 {
		return true
	}

	key := rl.keyFn(r)
	if key == "" {
		key = clientIPKey(r)
	}
	now := time.Now()
	limiter := rl.get(key, now)

	allowed := limiter.AllowN(now, 1)
	remaining := int(math.Max(0, math.Floor(limiter.TokensAt(now))))
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.burst))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	if allowed {
		return true
	}

	retryAfter := durationSeconds(time.Duration(float64(time.Second) / float64(rl.limit)))
	w.Header().Set("X-RateLimit-Reset", strconv.Itoa(retryAfter))
	w.Header().Set("Retry-After", strconv.Itoa(max(retryAfter, 1)))
	zap.L().Warn("rate limit exceeded",
		zap.String("key", key),
		zap.String("path", r.URL.Path),
		zap.String("method", r.Method),
		zap.Float64("per_second", float64(rl.limit)),
		zap.Int("burst", rl.burst),
		zap.String("request_id", GetRequestID(r.Context())),
	)
	api.Fail(w, http.StatusTooManyRequests, "rate_limited", "too many requests", GetRequestID(r.Context()))
	return false
}

func durationSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}

func extractJSONField(r *http.Request, field string) string {
	if r == nil || r.Body == nil {
		return ""
	}
	contentType := strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Type")))
	if !strings.Contains(contentType, "application/json") {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, 64*1024))
	if err != nil {
		return ""
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if len(raw) == 0 {
		return ""
	}
	payload := map[string]any{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	value, _ := payload[field].(string)
	return strings.TrimSpace(value)
}

type sensitiveScope string

const (
	sensitiveScopeNone  sensitiveScope = ""
	sensitiveScopeAuth  sensitiveScope = "auth"
	sensitiveScopeActor sensitiveScope = "actor"
)

func sensitiveRateScope(r *http.Request) sensitiveScope {
	if r == nil {
		return sensitiveScopeNone
	}
	method := strings.ToUpper(strings.TrimSpace(r.Method))
	if method != http.MethodPost && method != http.MethodPut && method != http.MethodPatch && method != http.MethodDelete {
		return sensitiveScopeNone
	}

	path := normalizedAPIPath(r.URL.Path)
	switch path {
	case "/auth/login":
		return sensitiveScopeAuth
	case "/sheets", "/sheets/generate-all", "/collections/import":
		return sensitiveScopeActor
	}
	if strings.HasPrefix(path, "/sheets/") && strings.HasSuffix(path, "/finalize") {
		return sensitiveScopeActor
	}
	if strings.HasPrefix(path, "/entries/") && strings.HasSuffix(path, "/scan") {
		return sensitiveScopeActor
	}
	return sensitiveScopeNone
}

func normalizedAPIPath(path string) string {
	cleaned := strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(path), "/api/v1"), "/")
	if cleaned == "" {
		return "/"
	}
	if !strings.HasPrefix(cleaned, "/") {
		return "/" + cleaned
	}
	return cleaned
}
