// Package site is the application context: it registers entity types,
// resolves their handlers once, owns the menu cache and mounts the routes.
package site

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/sessions"

	"github.com/aiokaizen/bear-vision/internal/lava/auth"
	"github.com/aiokaizen/bear-vision/internal/lava/i18n"
	"github.com/aiokaizen/bear-vision/internal/lava/menu"
	"github.com/aiokaizen/bear-vision/internal/lava/messages"
	"github.com/aiokaizen/bear-vision/internal/lava/model"
	"github.com/aiokaizen/bear-vision/internal/lava/notifier"
	"github.com/aiokaizen/bear-vision/internal/lava/resolver"
	"github.com/aiokaizen/bear-vision/internal/lava/schema"
	"github.com/aiokaizen/bear-vision/internal/lava/views"
	"github.com/aiokaizen/bear-vision/internal/storage"
)

// ErrNotRegistered is returned for entity keys no descriptor was
// registered under.
var ErrNotRegistered = errors.New("entity not registered")

// Title is appended to every page title.
const Title = "Bear Vision"

// Config configures a Site.
type Config struct {
	Store *storage.Store
	// Sessions backs the login session and the flash messages.
	Sessions sessions.Store
	// Resolver holds the app overrides. A nil Resolver gets an empty one.
	Resolver *resolver.Resolver
	Bundle   *i18n.Bundle
	// Locale is used when Accept-Language matches no loaded locale.
	Locale string
	// MenuItems are the entity keys reachable from the navigation, in order.
	MenuItems []string
	PageSize  int
	Logger    *slog.Logger
	Clock     func() time.Time
}

type handlerKey struct {
	entity string
	role   resolver.Role
}

// Site serves the registered entity types.
type Site struct {
	store    *storage.Store
	resolver *resolver.Resolver
	bundle   *i18n.Bundle
	locale   string
	pageSize int
	logger   *slog.Logger

	notifier *notifier.Notifier
	manager  *model.Manager
	menu     *menu.Menu
	messages *messages.Store
	auth     *auth.Service
	sessions *auth.Sessions
	login    *auth.Handlers

	mu          sync.RWMutex
	descriptors map[string]*schema.Descriptor
	order       []string
	handlers    map[handlerKey]http.Handler

	localizers sync.Map
}

// New creates a Site. The user and group entity types are registered.
func New(cfg Config) (*Site, error) {
	if cfg.Store == nil {
		return nil, errors.New("site requires a store")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("site requires a session store")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	bundle := cfg.Bundle
	if bundle == nil {
		bundle = i18n.Default()
	}
	locale := cfg.Locale
	if !bundle.HasLocale(locale) {
		locale = i18n.BaseLocale
	}
	res := cfg.Resolver
	if res == nil {
		res = resolver.New(logger)
	}

	s := &Site{
		store:       cfg.Store,
		resolver:    res,
		bundle:      bundle,
		locale:      locale,
		pageSize:    cfg.PageSize,
		logger:      logger,
		notifier:    notifier.New(),
		descriptors: make(map[string]*schema.Descriptor),
		handlers:    make(map[handlerKey]http.Handler),
	}
	s.manager = model.NewManager(model.Config{
		Persister: cfg.Store,
		Localizer: bundle.Localizer(locale),
		Logger:    logger,
		Clock:     cfg.Clock,
		OnChange:  s.changed,
	})
	s.menu = menu.New(s.Lookup, cfg.MenuItems, logger)
	s.messages = messages.New(cfg.Sessions, logger)
	s.auth = auth.NewService(auth.Config{
		Store:     cfg.Store,
		Manager:   s.manager,
		Localizer: bundle.Localizer(locale),
		Logger:    logger,
		Clock:     cfg.Clock,
	})
	s.sessions = auth.NewSessions(cfg.Sessions, s.auth, logger)
	s.login = auth.NewHandlers(s.sessions, s.auth, s.Capabilities())

	res.OverrideForm(auth.App, "UserForm", auth.NewUserForm)
	if err := s.Register(auth.UserDescriptor, auth.GroupDescriptor); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Site) changed(c model.Change) {
	s.logger.Debug("entity changed", "entity", c.Entity, "id", c.PK)
	s.notifier.Broadcast(c.Entity)
}

// Register adds entity types. Every role is resolved immediately so that a
// broken descriptor or override fails here rather than on first request.
func (s *Site) Register(descs ...*schema.Descriptor) error {
	for _, d := range descs {
		if _, err := s.resolver.ResolveAll(d); err != nil {
			return fmt.Errorf("failed to register entity: %w", err)
		}
	}

	s.mu.Lock()
	for _, d := range descs {
		key := d.Key()
		if _, ok := s.descriptors[key]; !ok {
			s.order = append(s.order, key)
		}
		s.descriptors[key] = d
	}
	clear(s.handlers)
	s.mu.Unlock()

	s.menu.Invalidate()
	for _, d := range descs {
		s.logger.Debug("entity registered", "entity", d.Key())
	}
	return nil
}

// Lookup returns the descriptor registered under key.
func (s *Site) Lookup(key string) (*schema.Descriptor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.descriptors[key]
	return d, ok
}

// Descriptors returns the registered descriptors in registration order.
func (s *Site) Descriptors() []*schema.Descriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*schema.Descriptor, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.descriptors[key])
	}
	return out
}

// SetMenuItems replaces the navigation entries. Every key must be registered.
func (s *Site) SetMenuItems(keys []string) error {
	for _, key := range keys {
		if _, ok := s.Lookup(key); !ok {
			return fmt.Errorf("menu item %q: %w", key, ErrNotRegistered)
		}
	}
	if slices.Equal(keys, s.menu.Keys()) {
		return nil
	}
	s.menu.SetKeys(keys)
	s.logger.Info("menu updated", "items", strings.Join(keys, ","))
	return nil
}

// MenuItems returns the configured navigation entity keys.
func (s *Site) MenuItems() []string {
	return s.menu.Keys()
}

// Invalidate drops every cached handler and menu entry, for example after
// overrides were registered on the resolver.
func (s *Site) Invalidate() {
	s.resolver.Invalidate()
	s.mu.Lock()
	clear(s.handlers)
	s.mu.Unlock()
	s.menu.Invalidate()
}

// Resolver returns the override resolver.
func (s *Site) Resolver() *resolver.Resolver { return s.resolver }

// Store returns the entity store.
func (s *Site) Store() *storage.Store { return s.store }

// Manager returns the lifecycle manager bound to the default locale.
func (s *Site) Manager() *model.Manager { return s.manager }

// Auth returns the user service.
func (s *Site) Auth() *auth.Service { return s.auth }

// Notifier returns the change notifier feeding live list updates.
func (s *Site) Notifier() *notifier.Notifier { return s.notifier }

// Localizer returns the localizer matching the request Accept-Language.
func (s *Site) Localizer(r *http.Request) *i18n.Localizer {
	locale := s.bundle.Match(r.Header.Get("Accept-Language"), s.locale)
	if l, ok := s.localizers.Load(locale); ok {
		return l.(*i18n.Localizer)
	}
	l, _ := s.localizers.LoadOrStore(locale, s.bundle.Localizer(locale))
	return l.(*i18n.Localizer)
}

// Capabilities returns the services generated handlers are composed with.
func (s *Site) Capabilities() views.Capabilities {
	return views.Capabilities{
		Authorize:   s.sessions.RequireLogin,
		Localizer:   s.Localizer,
		Render:      s.Render,
		Flash:       s.messages.Flash,
		CurrentUser: s.sessions.CurrentUser,
	}
}

// Handler returns the handler serving role for the entity key. Handlers are
// built once per registration.
func (s *Site) Handler(key string, role resolver.Role) (http.Handler, error) {
	hk := handlerKey{entity: key, role: role}
	s.mu.RLock()
	h, ok := s.handlers[hk]
	s.mu.RUnlock()
	if ok {
		return h, nil
	}

	desc, ok := s.Lookup(key)
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrNotRegistered)
	}
	view, err := s.resolver.Resolve(desc, role)
	if err != nil {
		return nil, err
	}
	form, err := s.resolver.Resolve(desc, resolver.Form)
	if err != nil {
		return nil, err
	}

	h = view.NewView(views.Deps{
		Descriptor: desc,
		Form:       form.NewForm,
		Repo:       s.store,
		Manager:    s.manager,
		Lookup:     s.Lookup,
		Caps:       s.Capabilities(),
		Notifier:   s.notifier,
		Logger:     s.logger.With("entity", key, "handler", view.Name),
		PageSize:   s.pageSize,
	})

	s.mu.Lock()
	if cached, ok := s.handlers[hk]; ok {
		h = cached
	} else {
		s.handlers[hk] = h
	}
	s.mu.Unlock()
	return h, nil
}
