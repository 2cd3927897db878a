package auth

import (
	"html/template"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/artiscatalog/internal/metrics"
	"github.com/HerbHall/artiscatalog/internal/server"
)

// Config holds the gate settings from the auth.* configuration keys.
type Config struct {
	Enabled       bool
	CookieName    string
	TTL           time.Duration
	SecureCookie  bool
	RatePerMinute int
	Burst         int
}

// DefaultConfig returns the gate defaults: a seven-day cookie named
// artis_catalog_auth.
func DefaultConfig() Config {
	return Config{
		Enabled:       true,
		CookieName:    "artis_catalog_auth",
		TTL:           7 * 24 * time.Hour,
		RatePerMinute: 10,
		Burst:         5,
	}
}

// publicPaths are reachable without a session.
var publicPaths = map[string]bool{
	"/api/v1/health":      true,
	"/api/v1/auth":        true,
	"/api/v1/auth/logout": true,
	"/metrics":            true,
}

// Gate is the shared-password access control for the whole service.
type Gate struct {
	cfg      Config
	secret   []byte
	verifier *Verifier
	limiter  *ipLimiter
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// Option configures a Gate.
type Option func(*Gate)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// WithMetrics records login attempts in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gate) { g.metrics = m }
}

// NewGate returns a gate that signs sessions with secret.
func NewGate(cfg Config, secret []byte, verifier *Verifier, logger *zap.Logger, opts ...Option) *Gate {
	def := DefaultConfig()
	if cfg.CookieName == "" {
		cfg.CookieName = def.CookieName
	}
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	g := &Gate{
		cfg:      cfg,
		secret:   secret,
		verifier: verifier,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.limiter = newIPLimiter(cfg.RatePerMinute, cfg.Burst, g.now)
	return g
}

// Middleware rejects requests without a valid session. Browsers asking for
// HTML get the password page; API clients get a 401 problem. The request is
// passed on unchanged.
func (g *Gate) Middleware() server.Middleware {
	return func(next http.Handler) http.Handler {
		if !g.cfg.Enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] || g.Authenticated(r) {
				next.ServeHTTP(w, r)
				return
			}
			if wantsHTML(r) {
				g.renderLogin(w, http.StatusUnauthorized, r.URL.Query().Get("error") == "1")
				return
			}
			server.Unauthorized(w, "a valid catalog session is required", r.URL.Path)
		})
	}
}

// Authenticated reports whether r carries a valid session cookie or bearer
// token.
func (g *Gate) Authenticated(r *http.Request) bool {
	token := bearerToken(r)
	if token == "" {
		c, err := r.Cookie(g.cfg.CookieName)
		if err != nil {
			return false
		}
		token = c.Value
	}
	_, err := ParseToken(g.secret, token, g.now())
	return err == nil
}

// LoginResponse is returned to API clients on a successful login.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HandleLogin checks the submitted password.
//
// Form posts are redirected to / on success (with the session cookie set) and
// to /?error=1 on failure. Clients that accept JSON get the token in the body
// or a 401 problem.
//
//	@Summary		Log in
//	@Tags			auth
//	@Accept			x-www-form-urlencoded
//	@Param			password formData string true "Shared catalog password"
//	@Success		200 {object} LoginResponse
//	@Success		303
//	@Failure		401 {object} server.Problem
//	@Failure		429 {object} server.Problem
//	@Router			/auth [post]
func (g *Gate) HandleLogin(w http.ResponseWriter, r *http.Request) {
	jsonClient := wantsJSON(r)

	if !g.limiter.Allow(clientIP(r)) {
		g.metrics.IncLogin("throttled")
		g.logger.Warn("login throttled", zap.String("ip", clientIP(r)))
		w.Header().Set("Retry-After", "60")
		server.RateLimited(w, "too many login attempts, try again later", r.URL.Path)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 4<<10)
	if err := r.ParseForm(); err != nil {
		server.BadRequest(w, "invalid form body", r.URL.Path)
		return
	}

	if !g.verifier.Verify(r.PostForm.Get("password")) {
		g.metrics.IncLogin("failure")
		g.logger.Info("login failed", zap.String("ip", clientIP(r)))
		if jsonClient {
			server.Unauthorized(w, "incorrect password", r.URL.Path)
			return
		}
		http.Redirect(w, r, "/?error=1", http.StatusSeeOther)
		return
	}

	now := g.now()
	token, err := MintToken(g.secret, now, g.cfg.TTL)
	if err != nil {
		g.logger.Error("failed to mint session token", zap.Error(err))
		server.InternalError(w, "could not start a session", r.URL.Path)
		return
	}
	g.metrics.IncLogin("success")

	http.SetCookie(w, &http.Cookie{
		Name:     g.cfg.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(g.cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   g.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	if jsonClient {
		server.WriteJSON(w, http.StatusOK, LoginResponse{Token: token, ExpiresAt: now.Add(g.cfg.TTL).UTC()})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleLogout clears the session cookie.
func (g *Gate) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     g.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   g.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	if wantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

var loginPage = template.Must(template.New("login").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Artis Catalog</title>
</head>
<body>
<main>
<h1>Artis Catalog</h1>
<p>Enter the catalog password to continue.</p>
{{if .Error}}<p role="alert">Incorrect password. Please try again.</p>{{end}}
<form method="POST" action="/api/v1/auth">
<input type="password" name="password" placeholder="Password" required autofocus>
<button type="submit">Enter</button>
</form>
</main>
</body>
</html>
`))

func (g *Gate) renderLogin(w http.ResponseWriter, status int, failed bool) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := loginPage.Execute(w, struct{ Error bool }{failed}); err != nil {
		g.logger.Warn("failed to render login page", zap.Error(err))
	}
}
