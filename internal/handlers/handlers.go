package handlers

import (
	"context"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"debttrack/internal/models"
	"debttrack/internal/storage"
	"debttrack/web"
)

// Context key type to avoid collisions.
type contextKey string

const (
	// UserContextKey is the context key for the authenticated user.
	UserContextKey contextKey = "user"
	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "session"
	// FlashCookieName is the name of the one-shot flash message cookie.
	FlashCookieName = "flash"
	// SessionDuration is how long sessions last (30 days).
	SessionDuration = 30 * 24 * time.Hour
)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	db           *storage.DB
	secureCookie bool
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *storage.DB, secureCookie bool) *Handlers {
	return &Handlers{db: db, secureCookie: secureCookie}
}

// Routes returns the application mux. Everything except the login page and
// static assets sits behind the auth middleware.
func (h *Handlers) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /login", h.LoginForm)
	mux.HandleFunc("POST /login", h.Login)
	mux.HandleFunc("GET /logout", h.Logout)
	mux.Handle("GET /static/", http.FileServerFS(web.StaticFS))

	protected := http.NewServeMux()
	protected.HandleFunc("GET /{$}", h.Dashboard)
	protected.HandleFunc("GET /expenses", h.ListExpenses)
	protected.HandleFunc("GET /expenses/new", h.NewExpenseForm)
	protected.HandleFunc("POST /expenses/new", h.CreateExpense)
	protected.HandleFunc("GET /expenses/{id}/edit", h.EditExpenseForm)
	protected.HandleFunc("POST /expenses/{id}/edit", h.UpdateExpense)
	protected.HandleFunc("POST /expenses/{id}/delete", h.DeleteExpense)
	protected.HandleFunc("GET /debts", h.ListDebts)
	protected.HandleFunc("GET /summary", h.Summary)
	mux.Handle("/", h.AuthMiddleware(protected))

	return mux
}

// GetUserFromContext retrieves the authenticated user from request context.
func GetUserFromContext(r *http.Request) *models.User {
	if user, ok := r.Context().Value(UserContextKey).(*models.User); ok {
		return user
	}
	return nil
}

// AuthMiddleware wraps handlers to require authentication.
// It also implements rolling sessions: if a session is past the halfway point
// of its lifetime, it automatically renews the session.
func (h *Handlers) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil || cookie.Value == "" {
			h.setFlash(w, "warning", "Please log in first")
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}

		sessionInfo, err := h.db.ValidateSessionWithInfo(cookie.Value)
		if err != nil {
			// Invalid or expired session, clear the cookie
			h.clearSessionCookie(w)
			h.setFlash(w, "warning", "Please log in first")
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}

		// Rolling session: renew once past the halfway point. Keeps active
		// users logged in while inactive sessions still expire.
		now := time.Now()
		if sessionInfo.ExpiresAt.Sub(now) < SessionDuration/2 {
			newExpiresAt := now.Add(SessionDuration)
			if err := h.db.RenewSession(cookie.Value, newExpiresAt); err == nil {
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookieName,
					Value:    cookie.Value,
					Path:     "/",
					MaxAge:   int(SessionDuration.Seconds()),
					HttpOnly: true,
					Secure:   h.secureCookie,
					SameSite: http.SameSiteLaxMode,
				})
			}
			// If renewal fails, just continue with the current session
		}

		ctx := context.WithValue(r.Context(), UserContextKey, sessionInfo.User)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Flash is a one-shot message carried across a redirect.
type Flash struct {
	Level   string
	Message string
}

func (h *Handlers) setFlash(w http.ResponseWriter, level, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookieName,
		Value:    url.QueryEscape(level + "|" + message),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) popFlash(w http.ResponseWriter, r *http.Request) *Flash {
	cookie, err := r.Cookie(FlashCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	value, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return nil
	}
	level, message, ok := strings.Cut(value, "|")
	if !ok {
		return &Flash{Level: "info", Message: value}
	}
	return &Flash{Level: level, Message: message}
}

// Page holds the fields shared by every view.
type Page struct {
	Username string
	IsAdmin  bool
	Flash    *Flash
}

func (h *Handlers) page(w http.ResponseWriter, r *http.Request) Page {
	p := Page{Flash: h.popFlash(w, r)}
	if user := GetUserFromContext(r); user != nil {
		p.Username = user.Username
		p.IsAdmin = user.IsAdmin
	}
	return p
}

var templateFuncs = template.FuncMap{
	"money": func(amount float64) string {
		return "$" + trimMoney(amount)
	},
	"shortDate": func(t time.Time) string {
		return t.Format("Jan 02, 2006")
	},
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, viewName string, data any) {
	tmpl, err := template.New("base.html").Funcs(templateFuncs).
		ParseFS(web.TemplatesFS, "templates/base.html", "templates/"+viewName)
	if err != nil {
		slog.ErrorContext(r.Context(), "Template parse failed", "view", viewName, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if err := tmpl.ExecuteTemplate(w, "base", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution failed", "view", viewName, "error", err)
	}
}

func trimMoney(amount float64) string {
	return strconv.FormatFloat(amount, 'f', 2, 64)
}

// serverError logs the fault and answers 500. The storage layer has already
// rolled back by the time this runs.
func (h *Handlers) serverError(w http.ResponseWriter, r *http.Request, op string, err error) {
	slog.ErrorContext(r.Context(), "Handler failed", "operation", op, "error", err)
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}
