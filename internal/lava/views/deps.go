// Package views provides the generated list, detail, create and update
// handlers of an entity type. Each handler is built from Deps and can be
// replaced per entity through the resolver.
package views

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"

	"github.com/aiokaizen/bear-vision/internal/lava/forms"
	"github.com/aiokaizen/bear-vision/internal/lava/i18n"
	"github.com/aiokaizen/bear-vision/internal/lava/model"
	"github.com/aiokaizen/bear-vision/internal/lava/notifier"
	"github.com/aiokaizen/bear-vision/internal/lava/result"
	"github.com/aiokaizen/bear-vision/internal/lava/schema"
	"github.com/aiokaizen/bear-vision/internal/storage"
)

// DefaultPageSize is the number of rows per list page.
const DefaultPageSize = 20

// Repository reads entities. storage.Store implements it.
type Repository interface {
	List(ctx context.Context, desc *schema.Descriptor, opts storage.ListOptions) ([]schema.Entity, error)
	Count(ctx context.Context, desc *schema.Descriptor, filters ...storage.Filter) (int64, error)
	Get(ctx context.Context, desc *schema.Descriptor, pk int64) (schema.Entity, error)
}

// Page is a rendered response body plus its chrome metadata.
type Page struct {
	Title  string
	Status int
	Body   templ.Component
}

// Capabilities are the cross-cutting services handlers are composed with.
// Every member is optional.
type Capabilities struct {
	// Authorize wraps the handler, typically to require a login.
	Authorize func(http.Handler) http.Handler
	// Localizer returns the request localizer.
	Localizer func(r *http.Request) *i18n.Localizer
	// Render writes a page inside the site layout.
	Render func(w http.ResponseWriter, r *http.Request, p Page)
	// Flash queues a result for display on the next page.
	Flash func(w http.ResponseWriter, r *http.Request, res result.Result)
	// CurrentUser returns the signed-in user id.
	CurrentUser func(r *http.Request) *int64
}

// Deps is everything a generated handler needs.
type Deps struct {
	Descriptor *schema.Descriptor
	// Form returns the resolved form for an action.
	Form    func(action forms.Action) forms.Form
	Repo    Repository
	Manager *model.Manager
	// Lookup returns the descriptor registered under an entity key.
	Lookup   func(key string) (*schema.Descriptor, bool)
	Caps     Capabilities
	Notifier *notifier.Notifier
	Logger   *slog.Logger
	PageSize int
}

// Factory builds a handler from Deps.
type Factory func(d Deps) (http.Handler, error)

// Default factories.
var (
	ListFactory   Factory = func(d Deps) (http.Handler, error) { return NewList(d), nil }
	DetailFactory Factory = func(d Deps) (http.Handler, error) { return NewDetail(d), nil }
	CreateFactory Factory = func(d Deps) (http.Handler, error) { return NewCreate(d), nil }
	UpdateFactory Factory = func(d Deps) (http.Handler, error) { return NewUpdate(d), nil }
)

// Streamer is implemented by handlers serving live updates.
type Streamer interface {
	ServeUpdates(w http.ResponseWriter, r *http.Request)
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = slog.New(slog.DiscardHandler)
	}
	if d.PageSize <= 0 {
		d.PageSize = DefaultPageSize
	}
	if d.Form == nil {
		desc := d.Descriptor
		d.Form = func(action forms.Action) forms.Form { return forms.NewGeneric(desc, action) }
	}
	return d
}

func (d Deps) localizer(r *http.Request) *i18n.Localizer {
	if d.Caps.Localizer != nil {
		return d.Caps.Localizer(r)
	}
	return i18n.Default().Localizer(i18n.BaseLocale)
}

func (d Deps) manager(r *http.Request) *model.Manager {
	return d.Manager.WithLocalizer(d.localizer(r))
}

func (d Deps) currentUser(r *http.Request) *int64 {
	if d.Caps.CurrentUser != nil {
		return d.Caps.CurrentUser(r)
	}
	return nil
}

func (d Deps) flash(w http.ResponseWriter, r *http.Request, res result.Result) {
	if d.Caps.Flash != nil {
		d.Caps.Flash(w, r, res)
	}
}

// load returns the entity type key with identity pk, for hydration and
// foreign key labels.
func (d Deps) load(ctx context.Context, key string, pk int64) (schema.Entity, error) {
	if d.Lookup == nil {
		return nil, storage.ErrNotFound
	}
	desc, ok := d.Lookup(key)
	if !ok {
		return nil, storage.ErrNotFound
	}
	e, err := d.Repo.Get(ctx, desc, pk)
	if err != nil {
		return nil, err
	}
	d.hydrate(ctx, e)
	return e, nil
}

func (d Deps) hydrate(ctx context.Context, e schema.Entity) {
	h, ok := e.(schema.Hydrator)
	if !ok {
		return
	}
	if err := h.Hydrate(ctx, d.load); err != nil {
		d.Logger.Warn("failed to load related entities", "entity", d.Descriptor.Key(), "id", e.PK(), "error", err)
	}
}
