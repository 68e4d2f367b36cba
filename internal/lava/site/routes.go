package site

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aiokaizen/bear-vision/internal/lava/auth"
	"github.com/aiokaizen/bear-vision/internal/lava/resolver"
	"github.com/aiokaizen/bear-vision/internal/lava/site/resources"
	"github.com/aiokaizen/bear-vision/internal/lava/views"
)

// SetupRoutes mounts the site on router.
//
//	/                                dashboard
//	/login, /logout                  sign in and out
//	/{app}/{model}/                  list
//	/{app}/{model}/updates           live list updates
//	/{app}/{model}/create/           create form
//	/{app}/{model}/{pk}/             detail and delete
//	/{app}/{model}/{pk}/update/      update form
//
// Entity routes only answer for entity types listed in the menu.
func (s *Site) SetupRoutes(router chi.Router) {
	router.Handle("/static/*", resources.Handler())

	router.Get(auth.LoginURL, s.login.LoginPage)
	router.Post(auth.LoginURL, s.login.Login)
	router.HandleFunc("/logout", s.login.Logout)

	router.Group(func(r chi.Router) {
		if caps := s.Capabilities(); caps.Authorize != nil {
			r.Use(caps.Authorize)
		}
		r.Get("/", s.Dashboard)
		r.Route("/{app}/{model}", func(r chi.Router) {
			r.Get("/", s.entity(resolver.ListView))
			r.Get("/updates", s.updates)
			r.HandleFunc("/create/", s.entity(resolver.CreateView))
			r.HandleFunc("/{pk}/", s.entity(resolver.DetailView))
			r.HandleFunc("/{pk}/update/", s.entity(resolver.UpdateView))
		})
	})
}

// entityKey returns the key of the entity addressed by the request, when it
// is reachable from the menu.
func (s *Site) entityKey(r *http.Request) (string, bool) {
	key := chi.URLParam(r, "app") + "." + chi.URLParam(r, "model")
	return key, s.menu.Contains(key)
}

func (s *Site) entity(role resolver.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, ok := s.entityKey(r)
		if !ok {
			http.NotFound(w, r)
			return
		}
		h, err := s.Handler(key, role)
		if err != nil {
			s.fail(w, r, key, err)
			return
		}
		h.ServeHTTP(w, r)
	}
}

func (s *Site) updates(w http.ResponseWriter, r *http.Request) {
	key, ok := s.entityKey(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	h, err := s.Handler(key, resolver.ListView)
	if err != nil {
		s.fail(w, r, key, err)
		return
	}
	streamer, ok := h.(views.Streamer)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	streamer.ServeUpdates(w, r)
}

func (s *Site) fail(w http.ResponseWriter, r *http.Request, key string, err error) {
	if errors.Is(err, ErrNotRegistered) {
		http.NotFound(w, r)
		return
	}
	s.logger.Error("failed to build handler", "entity", key, "path", r.URL.Path, "error", err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
