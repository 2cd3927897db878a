package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/HerbHall/artiscatalog/internal/metrics"
	"github.com/HerbHall/artiscatalog/internal/testutil"
)

func newTestGate(t *testing.T, cfg Config) (*Gate, *testutil.Clock, *prometheus.Registry) {
	t.Helper()
	v, err := NewVerifier("artis2026", "")
	require.NoError(t, err)
	clock := testutil.NewClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	reg := prometheus.NewRegistry()
	g := NewGate(cfg, testSecret, v, zaptest.NewLogger(t), WithClock(clock.Now), WithMetrics(metrics.New(reg)))
	return g, clock, reg
}

func loginCount(t *testing.T, reg *prometheus.Registry, result string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "artiscatalog_auth_logins_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "result" && l.GetValue() == result {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func protected() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("catalog"))
	})
}

func loginRequest(password string, accept string) *http.Request {
	form := url.Values{"password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	req.RemoteAddr = "192.0.2.10:5000"
	return req
}

func TestMiddleware_RejectsAnonymousAPI(t *testing.T) {
	g, _, _ := newTestGate(t, DefaultConfig())
	h := g.Middleware()(protected())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/catalog/products", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestMiddleware_ServesPasswordPageToBrowsers(t *testing.T) {
	g, _, _ := newTestGate(t, DefaultConfig())
	h := g.Middleware()(protected())

	req := httptest.NewRequest(http.MethodGet, "/?error=1", nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	assert.Contains(t, body, `name="password"`)
	assert.Contains(t, body, "Incorrect password")
}

func TestMiddleware_PublicPaths(t *testing.T) {
	g, _, _ := newTestGate(t, DefaultConfig())
	h := g.Middleware()(protected())

	for _, path := range []string{"/api/v1/health", "/metrics"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestMiddleware_LogoutWithExpiredSession(t *testing.T) {
	g, clock, _ := newTestGate(t, DefaultConfig())

	rec := httptest.NewRecorder()
	g.HandleLogin(rec, loginRequest("artis2026", ""))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	clock.Advance(8 * 24 * time.Hour)

	h := g.Middleware()(http.HandlerFunc(g.HandleLogout))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("Accept", "text/html")
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Less(t, cleared[0].MaxAge, 0)
}

func TestMiddleware_Disabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false
	g, _, _ := newTestGate(t, cfg)

	rec := httptest.NewRecorder()
	g.Middleware()(protected()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/catalog/products", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogin_FormSuccessSetsCookie(t *testing.T) {
	g, _, reg := newTestGate(t, DefaultConfig())

	rec := httptest.NewRecorder()
	g.HandleLogin(rec, loginRequest("artis2026", ""))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, "artis_catalog_auth", c.Name)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, 7*24*60*60, c.MaxAge)
	assert.NotEqual(t, "artis2026", c.Value, "cookie must not carry the password")

	// The cookie opens the gate.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog/products", nil)
	req.AddCookie(c)
	rec = httptest.NewRecorder()
	g.Middleware()(protected()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 1.0, loginCount(t, reg, "success"))
}

func TestLogin_FormFailureRedirects(t *testing.T) {
	g, _, _ := newTestGate(t, DefaultConfig())

	rec := httptest.NewRecorder()
	g.HandleLogin(rec, loginRequest("wrong", ""))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?error=1", rec.Header().Get("Location"))
	assert.Empty(t, rec.Result().Cookies())
}

func TestLogin_JSONClient(t *testing.T) {
	g, clock, _ := newTestGate(t, DefaultConfig())

	rec := httptest.NewRecorder()
	g.HandleLogin(rec, loginRequest("artis2026", "application/json"))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp LoginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.Token)
	assert.True(t, resp.ExpiresAt.Equal(clock.Now().Add(7*24*time.Hour)))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog/stats", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	assert.True(t, g.Authenticated(req))

	rec = httptest.NewRecorder()
	g.HandleLogin(rec, loginRequest("nope", "application/json"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogin_SessionExpires(t *testing.T) {
	g, clock, _ := newTestGate(t, DefaultConfig())

	rec := httptest.NewRecorder()
	g.HandleLogin(rec, loginRequest("artis2026", ""))
	c := rec.Result().Cookies()[0]

	clock.Advance(7*24*time.Hour + time.Second)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)
	assert.False(t, g.Authenticated(req))
}

func TestLogin_RateLimited(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RatePerMinute = 1
	cfg.Burst = 2
	g, clock, reg := newTestGate(t, cfg)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		g.HandleLogin(rec, loginRequest("wrong", ""))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
	}

	rec := httptest.NewRecorder()
	g.HandleLogin(rec, loginRequest("artis2026", ""))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, 1.0, loginCount(t, reg, "throttled"))
	assert.Equal(t, 2.0, loginCount(t, reg, "failure"))

	// Another address has its own bucket.
	other := loginRequest("artis2026", "")
	other.RemoteAddr = "198.51.100.7:4000"
	rec = httptest.NewRecorder()
	g.HandleLogin(rec, other)
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	clock.Advance(time.Minute)
	rec = httptest.NewRecorder()
	g.HandleLogin(rec, loginRequest("artis2026", ""))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	g.HandleLogin(rec, loginRequest("artis2026", ""))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestLogout_ClearsCookie(t *testing.T) {
	g, _, _ := newTestGate(t, DefaultConfig())

	rec := httptest.NewRecorder()
	g.HandleLogout(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "artis_catalog_auth", cookies[0].Name)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestIPLimiter_SweepsIdleBuckets(t *testing.T) {
	clock := testutil.NewClock()
	l := newIPLimiter(60, 1, clock.Now)

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))
	assert.Len(t, l.buckets, 2)

	clock.Advance(11 * time.Minute)
	assert.True(t, l.Allow("c"))
	assert.Len(t, l.buckets, 1)
}

func TestIPLimiter_ZeroRateAllows(t *testing.T) {
	l := newIPLimiter(0, 0, time.Now)
	for i := 0; i < 100; i++ {
		require.True(t, l.Allow("a"))
	}
}
