package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/sessions"

	"github.com/aiokaizen/bear-vision/internal/lava/views"
	"github.com/aiokaizen/bear-vision/internal/storage"
)

// SessionName is the cookie session holding the signed-in user.
const SessionName = "bearvision_session"

// LoginURL is where anonymous visitors are sent.
const LoginURL = "/login"

const userIDKey = "user_id"

type contextKey struct{}

// WithUser returns a copy of ctx carrying u.
func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}

// UserFromContext returns the user stored by RequireLogin, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(contextKey{}).(*User)
	return u
}

// Sessions tracks signed-in users in a cookie session.
type Sessions struct {
	store   sessions.Store
	service *Service
	logger  *slog.Logger
}

// NewSessions creates Sessions over store.
func NewSessions(store sessions.Store, service *Service, logger *slog.Logger) *Sessions {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Sessions{store: store, service: service, logger: logger}
}

// Login records u as the signed-in user.
func (s *Sessions) Login(w http.ResponseWriter, r *http.Request, u *User) error {
	session, err := s.store.Get(r, SessionName)
	if session == nil {
		return err
	}
	session.Values[userIDKey] = u.ID
	return session.Save(r, w)
}

// Logout forgets the signed-in user.
func (s *Sessions) Logout(w http.ResponseWriter, r *http.Request) error {
	session, err := s.store.Get(r, SessionName)
	if session == nil {
		return err
	}
	delete(session.Values, userIDKey)
	return session.Save(r, w)
}

// UserID returns the signed-in user id stored in the session.
func (s *Sessions) UserID(r *http.Request) (int64, bool) {
	session, _ := s.store.Get(r, SessionName)
	if session == nil {
		return 0, false
	}
	id, ok := session.Values[userIDKey].(int64)
	return id, ok && id > 0
}

// CurrentUser returns the signed-in user id. It fits
// views.Capabilities.CurrentUser.
func (s *Sessions) CurrentUser(r *http.Request) *int64 {
	if u := UserFromContext(r.Context()); u != nil {
		id := u.ID
		return &id
	}
	if id, ok := s.UserID(r); ok {
		return &id
	}
	return nil
}

// RequireLogin serves next only to active signed-in users. Others are
// redirected to the login page, or get 401 when they asked for JSON.
func (s *Sessions) RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.UserID(r)
		if !ok {
			s.deny(w, r)
			return
		}
		u, err := s.service.GetUser(r.Context(), id)
		if err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				s.logger.Error("failed to load session user", "id", id, "error", err)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			s.deny(w, r)
			return
		}
		if !u.IsActive {
			_ = s.Logout(w, r)
			s.deny(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}

func (s *Sessions) deny(w http.ResponseWriter, r *http.Request) {
	if views.WantsJSON(r) {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	target := LoginURL + "?next=" + url.QueryEscape(r.URL.RequestURI())
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// SafeNext returns next when it is a local path, "/" otherwise.
func SafeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}
