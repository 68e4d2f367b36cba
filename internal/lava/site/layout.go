package site

import (
	"context"
	"io"
	"net/http"

	"github.com/a-h/templ"

	"github.com/aiokaizen/bear-vision/internal/lava/auth"
	"github.com/aiokaizen/bear-vision/internal/lava/markup"
	"github.com/aiokaizen/bear-vision/internal/lava/menu"
	"github.com/aiokaizen/bear-vision/internal/lava/messages"
	"github.com/aiokaizen/bear-vision/internal/lava/site/resources"
	"github.com/aiokaizen/bear-vision/internal/lava/views"
)

// Render writes p inside the site layout: the navigation for signed-in
// users, the pending flash messages and the page body.
func (s *Site) Render(w http.ResponseWriter, r *http.Request, p views.Page) {
	// popping saves the session, which must happen before the status is written
	msgs := s.messages.Pop(w, r)
	l := s.Localizer(r)
	user := auth.UserFromContext(r.Context())

	var nav []menu.Item
	if user != nil {
		nav = s.menu.Items(l)
	}

	title := Title
	if p.Title != "" {
		title = p.Title + " | " + Title
	}

	page := templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		mw := markup.New(out)
		mw.Raw("<!doctype html>").
			Open("html", "lang", l.Locale()).
			Raw("<head>").
			Raw(`<meta charset="utf-8">`).
			Raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`).
			Elem("title", title).
			Open("link", "rel", "stylesheet", "href", resources.StaticPath("site.css")).
			Open("script", "type", "module", "src", resources.DatastarScript).Close("script").
			Raw("</head><body>")

		if user == nil {
			mw.Component(ctx, messages.Component(msgs)).Component(ctx, p.Body)
			return mw.Raw("</body></html>").Err()
		}

		mw.Open("div", "class", "app").
			Open("aside", "class", "side-nav").
			Elem("div", Title, "class", "brand").
			Component(ctx, menu.Component(nav, r.URL.Path)).
			Close("aside").
			Open("main", "class", "main").
			Open("div", "class", "header").
			Elem("span", displayName(user), "class", "user").
			Open("form", "method", "post", "action", "/logout").
			Elem("button", l.T("lava.auth.sign_out"), "type", "submit", "class", "btn").
			Close("form").
			Close("div").
			Component(ctx, messages.Component(msgs)).
			Component(ctx, p.Body).
			Close("main").
			Close("div")
		return mw.Raw("</body></html>").Err()
	})

	if p.Status == 0 {
		p.Status = http.StatusOK
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(p.Status)
	if err := page.Render(r.Context(), w); err != nil {
		s.logger.Error("failed to render page", "path", r.URL.Path, "error", err)
	}
}

func displayName(u *auth.User) string {
	if name := u.FullName(); name != "" {
		return name
	}
	return u.Username
}
