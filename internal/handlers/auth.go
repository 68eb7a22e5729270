package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"debttrack/internal/auth"
)

// LoginViewModel holds data for the login page.
type LoginViewModel struct {
	Page
	Error string
}

// LoginForm renders the login page.
func (h *Handlers) LoginForm(w http.ResponseWriter, r *http.Request) {
	// If already logged in, redirect to the dashboard
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if _, err := h.db.ValidateSession(cookie.Value); err == nil {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
	}
	h.render(w, r, "login.html", LoginViewModel{Page: h.page(w, r)})
}

// Login handles the login form submission.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, r, "login.html", LoginViewModel{Page: h.page(w, r), Error: "Invalid form submission"})
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	if username == "" || password == "" {
		h.render(w, r, "login.html", LoginViewModel{Page: h.page(w, r), Error: "Username and password are required"})
		return
	}

	user, err := h.db.GetUserByUsername(username)
	if err != nil || !auth.CheckPassword(password, user.PasswordHash) {
		h.render(w, r, "login.html", LoginViewModel{Page: h.page(w, r), Error: "Invalid username or password"})
		return
	}

	token, err := auth.GenerateSessionToken()
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to generate session token", "error", err)
		h.render(w, r, "login.html", LoginViewModel{Page: h.page(w, r), Error: "An error occurred. Please try again."})
		return
	}

	expiresAt := time.Now().Add(SessionDuration)
	if err := h.db.CreateSession(token, user.ID, expiresAt); err != nil {
		slog.ErrorContext(r.Context(), "Failed to create session", "error", err)
		h.render(w, r, "login.html", LoginViewModel{Page: h.page(w, r), Error: "An error occurred. Please try again."})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(SessionDuration.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	h.setFlash(w, "success", "Welcome back, "+user.Username+"!")
	http.Redirect(w, r, "/", http.StatusFound)
}

// Logout handles user logout.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	username := "User"
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if user, err := h.db.ValidateSession(cookie.Value); err == nil {
			username = user.Username
		}
		if err := h.db.DeleteSession(cookie.Value); err != nil {
			slog.ErrorContext(r.Context(), "Failed to delete session", "error", err)
		}
	}
	h.clearSessionCookie(w)
	h.setFlash(w, "info", "Goodbye, "+username+"!")
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (h *Handlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
