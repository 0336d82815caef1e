package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"wallet-ledger/internal/attachments"
	"wallet-ledger/internal/auth"
	"wallet-ledger/internal/events"
	"wallet-ledger/internal/ledger"
	"wallet-ledger/internal/models"
	"wallet-ledger/internal/notes"
	"wallet-ledger/internal/obligations"
	"wallet-ledger/internal/savings"
	"wallet-ledger/internal/storage"
	"wallet-ledger/internal/summary"
)

// Context key type to avoid collisions.
type contextKey string

const (
	// UserContextKey is the context key for the authenticated user.
	UserContextKey contextKey = "user"
	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "session"
	// SessionDuration is how long sessions last (30 days).
	SessionDuration = 30 * 24 * time.Hour
)

// Deps are the services the HTTP layer is built on.
type Deps struct {
	DB           *storage.DB
	Ledger       *ledger.Ledger
	Obligations  *obligations.Tracker
	Savings      *savings.Vault
	Notes        *notes.Checklist
	Summary      *summary.Aggregator
	Uploader     *attachments.Uploader
	Broker       events.Broker
	Tokens       *auth.TokenIssuer
	Logger       *slog.Logger
	SecureCookie bool
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	db           *storage.DB
	ledger       *ledger.Ledger
	obligations  *obligations.Tracker
	savings      *savings.Vault
	notes        *notes.Checklist
	summary      *summary.Aggregator
	uploader     *attachments.Uploader
	broker       events.Broker
	tokens       *auth.TokenIssuer
	logger       *slog.Logger
	secureCookie bool
	now          func() time.Time
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(d Deps) *Handlers {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		db:           d.DB,
		ledger:       d.Ledger,
		obligations:  d.Obligations,
		savings:      d.Savings,
		notes:        d.Notes,
		summary:      d.Summary,
		uploader:     d.Uploader,
		broker:       d.Broker,
		tokens:       d.Tokens,
		logger:       logger,
		secureCookie: d.SecureCookie,
		now:          time.Now,
	}
}

// GetUserFromContext retrieves the authenticated user from request context.
func GetUserFromContext(r *http.Request) *models.User {
	if user, ok := r.Context().Value(UserContextKey).(*models.User); ok {
		return user
	}
	return nil
}

func userID(r *http.Request) string {
	if u := GetUserFromContext(r); u != nil {
		return u.ID
	}
	return ""
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// AuthMiddleware requires either a bearer token or a session cookie.
// Cookie sessions are rolling: past the halfway point of their lifetime
// they are renewed.
func (h *Handlers) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := bearerToken(r); token != "" {
			h.authenticateBearer(w, r, token, next)
			return
		}

		cookie, err := r.Cookie(SessionCookieName)
		if err != nil || cookie.Value == "" {
			sendError(w, "Authentication required", http.StatusUnauthorized, nil)
			return
		}

		sessionInfo, err := h.db.ValidateSessionWithInfo(r.Context(), cookie.Value)
		if err != nil {
			// Invalid or expired session, clear the cookie
			h.clearSessionCookie(w)
			sendError(w, "Session expired", http.StatusUnauthorized, nil)
			return
		}

		now := h.now()
		if sessionInfo.ExpiresAt.Sub(now) < SessionDuration/2 {
			newExpiresAt := now.Add(SessionDuration)
			if err := h.db.RenewSession(r.Context(), cookie.Value, newExpiresAt); err == nil {
				h.setSessionCookie(w, cookie.Value)
			} else {
				h.logger.Warn("failed to renew session", "user_id", sessionInfo.User.ID, "error", err)
			}
		}

		ctx := context.WithValue(r.Context(), UserContextKey, sessionInfo.User)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handlers) authenticateBearer(w http.ResponseWriter, r *http.Request, token string, next http.Handler) {
	if h.tokens == nil {
		sendError(w, "Bearer tokens are not enabled", http.StatusUnauthorized, nil)
		return
	}
	id, err := h.tokens.Verify(token)
	if err != nil {
		sendError(w, "Invalid token", http.StatusUnauthorized, nil)
		return
	}
	user, err := h.db.GetUserByID(r.Context(), id)
	if err != nil {
		sendError(w, "Invalid token", http.StatusUnauthorized, nil)
		return
	}
	ctx := context.WithValue(r.Context(), UserContextKey, user)
	next.ServeHTTP(w, r.WithContext(ctx))
}

type loginRequest struct {
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token,omitempty"`
	ExpiresAt *time.Time   `json:"expiresAt,omitempty"`
}

// Login checks credentials, starts a cookie session and, when bearer tokens
// are enabled, returns a signed token.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if err := models.Validate(req); err != nil {
		h.fail(w, r, err)
		return
	}

	user, err := h.db.GetUserByUsername(r.Context(), req.Username)
	if err != nil || !auth.CheckPassword(req.Password, user.PasswordHash) {
		sendError(w, "Invalid username or password", http.StatusUnauthorized, nil)
		return
	}

	token, err := auth.GenerateSessionToken()
	if err != nil {
		h.logger.Error("failed to generate session token", "error", err)
		sendError(w, "An error occurred. Please try again.", http.StatusInternalServerError, nil)
		return
	}

	now := h.now()
	if err := h.db.CreateSession(r.Context(), token, user.ID, now.Add(SessionDuration)); err != nil {
		h.logger.Error("failed to create session", "error", err)
		sendError(w, "An error occurred. Please try again.", http.StatusInternalServerError, nil)
		return
	}
	h.setSessionCookie(w, token)

	resp := loginResponse{User: user}
	if h.tokens != nil {
		signed, expiresAt, err := h.tokens.Issue(user.ID, now)
		if err != nil {
			h.logger.Error("failed to sign token", "error", err)
			sendError(w, "An error occurred. Please try again.", http.StatusInternalServerError, nil)
			return
		}
		resp.Token = signed
		resp.ExpiresAt = &expiresAt
	}

	h.logger.Info("user logged in", "user_id", user.ID)
	writeJSON(w, http.StatusOK, resp)
}

// Logout ends the cookie session. Bearer tokens simply expire.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if err := h.db.DeleteSession(r.Context(), cookie.Value); err != nil {
			h.logger.Warn("failed to delete session", "error", err)
		}
	}
	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the authenticated user.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, GetUserFromContext(r))
}

func (h *Handlers) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(SessionDuration.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
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
