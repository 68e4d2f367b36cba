package auth

import (
	"context"
	"io"
	"net/http"

	"github.com/a-h/templ"

	"github.com/aiokaizen/bear-vision/internal/lava/i18n"
	"github.com/aiokaizen/bear-vision/internal/lava/markup"
	"github.com/aiokaizen/bear-vision/internal/lava/result"
	"github.com/aiokaizen/bear-vision/internal/lava/views"
)

// Handlers serves the login and logout pages.
type Handlers struct {
	sessions *Sessions
	service  *Service
	caps     views.Capabilities
}

// NewHandlers creates login handlers rendering through caps.
func NewHandlers(sessions *Sessions, service *Service, caps views.Capabilities) *Handlers {
	return &Handlers{sessions: sessions, service: service, caps: caps}
}

func (h *Handlers) localizer(r *http.Request) *i18n.Localizer {
	if h.caps.Localizer != nil {
		return h.caps.Localizer(r)
	}
	return i18n.Default().Localizer(i18n.BaseLocale)
}

// LoginPage renders the sign-in form. Signed-in users go straight to next.
func (h *Handlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	next := SafeNext(r.URL.Query().Get("next"))
	if _, ok := h.sessions.UserID(r); ok {
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}
	h.render(w, r, next, "", "", http.StatusOK)
}

// Login checks the posted credentials and starts a session.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	username := r.PostForm.Get("username")
	next := SafeNext(r.PostForm.Get("next"))

	res := h.service.WithLocalizer(h.localizer(r)).Authenticate(r.Context(), username, r.PostForm.Get("password"))
	if !res.IsSuccess() {
		if views.WantsJSON(r) {
			views.WriteResult(w, views.StatusFor(res), res)
			return
		}
		h.render(w, r, next, username, res.Message(), views.StatusFor(res))
		return
	}

	u := res.Payload().(*User)
	if err := h.sessions.Login(w, r, u); err != nil {
		h.sessions.logger.Error("failed to save session", "user", u.Username, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if views.WantsJSON(r) {
		views.WriteResult(w, http.StatusOK, res)
		return
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

// Logout ends the session and returns to the login page.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(w, r); err != nil {
		h.sessions.logger.Warn("failed to clear session", "error", err)
	}
	if h.caps.Flash != nil {
		h.caps.Flash(w, r, result.Success(h.localizer(r).T("lava.auth.signed_out"), nil))
	}
	http.Redirect(w, r, LoginURL, http.StatusSeeOther)
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, next, username, failure string, status int) {
	l := h.localizer(r)
	body := templ.ComponentFunc(func(_ context.Context, out io.Writer) error {
		mw := markup.New(out)
		mw.Open("div", "class", "login-card").
			Elem("h1", l.T("lava.auth.login_title"))
		if failure != "" {
			mw.Elem("div", failure, "class", "alert alert-danger", "role", "alert")
		}
		mw.Open("form", "method", "post", "action", LoginURL).
			Open("input", "type", "hidden", "name", "next", "value", next).
			Open("div", "class", "form-group").
			Elem("label", l.T("lava.auth.username"), "for", "id_username").
			Open("input", "type", "text", "id", "id_username", "name", "username", "class", "form-control", "value", username, "autofocus", "autofocus").
			Close("div").
			Open("div", "class", "form-group").
			Elem("label", l.T("lava.auth.password"), "for", "id_password").
			Open("input", "type", "password", "id", "id_password", "name", "password", "class", "form-control").
			Close("div").
			Elem("button", l.T("lava.auth.sign_in"), "type", "submit", "class", "btn btn-primary").
			Close("form").
			Close("div")
		return mw.Err()
	})
	views.WritePage(w, r, h.caps, views.Page{Title: l.T("lava.auth.login_title"), Status: status, Body: body})
}
