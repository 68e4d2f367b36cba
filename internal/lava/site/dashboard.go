package site

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/a-h/templ"

	"github.com/aiokaizen/bear-vision/internal/lava/auth"
	"github.com/aiokaizen/bear-vision/internal/lava/markup"
	"github.com/aiokaizen/bear-vision/internal/lava/views"
)

type stat struct {
	title string
	icon  string
	url   string
	count int64
}

// Dashboard shows the number of stored entities per menu entry.
func (s *Site) Dashboard(w http.ResponseWriter, r *http.Request) {
	l := s.Localizer(r)
	var stats []stat
	for _, item := range s.menu.Items(l) {
		if item.Key == "" {
			continue
		}
		desc, ok := s.Lookup(item.Key)
		if !ok {
			continue
		}
		n, err := s.store.Count(r.Context(), desc)
		if err != nil {
			s.logger.Error("failed to count entities", "entity", item.Key, "error", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		stats = append(stats, stat{title: desc.VerbosePlural(), icon: item.Icon, url: item.URL, count: n})
	}

	welcome := ""
	if u := auth.UserFromContext(r.Context()); u != nil {
		welcome = l.T("lava.dashboard.welcome", displayName(u))
	}

	title := l.T("lava.menu.dashboard")
	body := templ.ComponentFunc(func(_ context.Context, out io.Writer) error {
		mw := markup.New(out)
		mw.Elem("h1", title)
		if welcome != "" {
			mw.Elem("p", welcome, "class", "lead")
		}
		if len(stats) == 0 {
			return mw.Elem("p", l.T("lava.dashboard.empty"), "class", "text-muted").Err()
		}
		mw.Open("div", "class", "stats")
		for _, st := range stats {
			mw.Open("a", "class", "stat", "href", st.url).
				Open("i", "class", st.icon).Close("i").
				Elem("div", strconv.FormatInt(st.count, 10), "class", "count").
				Elem("div", st.title, "class", "title").
				Close("a")
		}
		return mw.Close("div").Err()
	})
	views.WritePage(w, r, s.Capabilities(), views.Page{Title: title, Body: body})
}
