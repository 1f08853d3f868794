package http

import (
	"errors"
	"log/slog"
	"net/http"

	"tradejournal/internal/auth"
	"tradejournal/internal/core"
)

// handleRegister serves the registration form and creates the account on
// POST. Duplicate usernames are rejected without leaking anything else.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.renderAuthPage(w, r, "register.html")
	case http.MethodPost:
		s.registerUser(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) registerUser(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		slog.ErrorContext(r.Context(), "Parse form error", "error", err, "url", r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	username := sanitizeInput(r.Form.Get("username"))
	password := r.Form.Get("password")

	if username == "" || password == "" {
		s.setFlash(w, "Username and password are required.")
		http.Redirect(w, r, "/register", http.StatusSeeOther)
		return
	}
	if err := (core.User{Username: username}).Validate(); err != nil {
		s.setFlash(w, "Invalid username: "+err.Error())
		http.Redirect(w, r, "/register", http.StatusSeeOther)
		return
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		slog.ErrorContext(r.Context(), "Password hash error", "error", err)
		http.Error(w, "registration failed", http.StatusInternalServerError)
		return
	}

	user, err := s.users.CreateUser(r.Context(), username, hash)
	if err != nil {
		if errors.Is(err, core.ErrUsernameTaken) {
			s.setFlash(w, "Username already taken.")
			http.Redirect(w, r, "/register", http.StatusSeeOther)
			return
		}
		slog.ErrorContext(r.Context(), "Create user error", "error", err, "username", username)
		http.Error(w, "registration failed", http.StatusInternalServerError)
		return
	}

	slog.InfoContext(r.Context(), "User registered", "user_id", user.ID, "username", user.Username)
	s.setFlash(w, "Registration successful. Please log in.")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// handleLogin serves the login form and opens a session on POST.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.renderAuthPage(w, r, "login.html")
	case http.MethodPost:
		s.loginUser(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) loginUser(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		slog.ErrorContext(r.Context(), "Parse form error", "error", err, "url", r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	username := sanitizeInput(r.Form.Get("username"))
	password := r.Form.Get("password")

	user, err := s.users.GetUserByUsername(r.Context(), username)
	if err != nil || !auth.CheckPassword(user.PasswordHash, password) {
		// Same message for unknown user and wrong password.
		if err != nil && !errors.Is(err, core.ErrUserNotFound) {
			slog.ErrorContext(r.Context(), "User lookup error", "error", err, "username", username)
		}
		s.setFlash(w, "Invalid username or password.")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	token := s.sessions.Create(user.ID)
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.cookieSecure,
	})

	slog.InfoContext(r.Context(), "User logged in", "user_id", user.ID, "username", user.Username)
	s.setFlash(w, "Logged in successfully.")
	http.Redirect(w, r, safeNext(r.URL.Query().Get("next")), http.StatusSeeOther)
}

// handleLogout revokes the session and clears the cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(auth.CookieName); err == nil {
		s.sessions.Revoke(c.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.cookieSecure,
	})

	user := userFrom(r.Context())
	slog.InfoContext(r.Context(), "User logged out", "user_id", user.ID)
	s.setFlash(w, "Logged out.")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// renderAuthPage renders the login or register template with any pending
// flash message.
func (s *Server) renderAuthPage(w http.ResponseWriter, r *http.Request, name string) {
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	data := struct {
		Flash string
		Next  string
	}{
		Flash: s.popFlash(w, r),
		Next:  r.URL.Query().Get("next"),
	}
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution failed", "error", err, "template", name)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
