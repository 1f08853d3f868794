// Package http wires the journal's HTTP surface: session-authenticated
// server-rendered pages over the storage layer, with the report builder
// producing the dashboard aggregates.
package http

import (
	"context"
	"errors"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"tradejournal/internal/auth"
	"tradejournal/internal/cache"
	"tradejournal/internal/core"
	"tradejournal/internal/report"
	appweb "tradejournal/web"
)

// UserStore is the part of the repository the auth handlers need.
type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash string) (core.User, error)
	GetUserByUsername(ctx context.Context, username string) (core.User, error)
	GetUserByID(ctx context.Context, id int64) (core.User, error)
}

// TransactionStore is the part of the repository the journal handlers need.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	ListTransactionsByUser(ctx context.Context, userID int64) ([]core.Transaction, error)
}

type ctxKey int

const (
	ctxKeyRequestID ctxKey = iota
	ctxKeyUser
)

type Server struct {
	http.Server
	templates    *template.Template
	users        UserStore
	transactions TransactionStore
	sessions     *auth.SessionStore
	rateLimiter  *rateLimiter
	bcryptCost   int
	cookieSecure bool

	// Dashboard reports are cheap to rebuild but rendered on every page
	// load; cache per user and invalidate on writes.
	reportCache *cache.TTLCache[report.Report]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// Options carries the knobs NewServer needs beyond its collaborators.
type Options struct {
	BcryptCost   int
	CookieSecure bool
}

// NewServer configures routes and templates, returning a ready-to-run
// http.Server.
func NewServer(addr string, users UserStore, txs TransactionStore, sessions *auth.SessionStore, opts Options) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		users:            users,
		transactions:     txs,
		sessions:         sessions,
		rateLimiter:      newRateLimiter(60),
		bcryptCost:       opts.BcryptCost,
		cookieSecure:     opts.CookieSecure,
		reportCache:      cache.New[report.Report](5 * time.Minute),
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/", s.withMiddleware(s.handleIndex))
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)
	mux.HandleFunc("/register", s.withMiddleware(s.handleRegister))
	mux.HandleFunc("/login", s.withMiddleware(s.handleLogin))
	mux.HandleFunc("/logout", s.withMiddleware(s.requireAuth(s.handleLogout)))
	mux.HandleFunc("/dashboard", s.withMiddleware(s.requireAuth(s.handleDashboard)))
	mux.HandleFunc("/add-entry", s.withMiddleware(s.requireAuth(s.handleAddEntry)))

	return s
}

// startCacheCleanup periodically drops expired report cache entries.
func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if cleaned := s.reportCache.CleanExpired(); cleaned > 0 {
				slog.Debug("Report cache cleanup completed", "entries_removed", cleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		close(s.stopCacheCleanup)
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withMiddleware adds request tracing, rate limiting, security headers and
// request logging around a handler.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ip := clientIP(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), ctxKeyRequestID, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", ip,
			"user_agent", r.Header.Get("User-Agent"))

		// Rate limit mutating requests only; this covers login, register
		// and add-entry.
		if r.Method == http.MethodPost && !s.rateLimiter.allow(ip) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", ip, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'; img-src 'self' data:; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", ip)
	}
}

// requireAuth resolves the session cookie to a user and passes it along in
// the request context. Unauthenticated requests are redirected to the login
// page with the original path in the next parameter.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.authenticate(r)
		if err != nil {
			http.Redirect(w, r, "/login?next="+r.URL.Path, http.StatusSeeOther)
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeyUser, user)
		next(w, r.WithContext(ctx))
	}
}

func (s *Server) authenticate(r *http.Request) (core.User, error) {
	c, err := r.Cookie(auth.CookieName)
	if err != nil {
		return core.User{}, core.ErrSessionNotFound
	}
	userID, err := s.sessions.Resolve(c.Value)
	if err != nil {
		return core.User{}, err
	}
	user, err := s.users.GetUserByID(r.Context(), userID)
	if err != nil {
		// Session for a user that no longer resolves; treat as logged out.
		if errors.Is(err, core.ErrUserNotFound) {
			s.sessions.Revoke(c.Value)
			return core.User{}, core.ErrSessionNotFound
		}
		return core.User{}, err
	}
	return user, nil
}

// userFrom returns the authenticated user placed in the context by
// requireAuth.
func userFrom(ctx context.Context) core.User {
	u, _ := ctx.Value(ctxKeyUser).(core.User)
	return u
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// handleIndex renders the landing page, pointing at login or the dashboard
// depending on whether the visitor is signed in.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	signedIn := false
	username := ""
	if user, err := s.authenticate(r); err == nil {
		signedIn = true
		username = user.Username
	}

	data := struct {
		SignedIn bool
		Username string
	}{SignedIn: signedIn, Username: username}

	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Index template execution failed", "error", err, "template", "index.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
