// Package resolver decides which handler serves each role of an entity type.
// Apps register overrides under conventional names at start-up; every role
// without an override is served by the generated default.
package resolver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"

	"github.com/aiokaizen/bear-vision/internal/lava/forms"
	"github.com/aiokaizen/bear-vision/internal/lava/schema"
	"github.com/aiokaizen/bear-vision/internal/lava/views"
)

// ErrUnknownRole is returned when resolving a role outside the known set.
var ErrUnknownRole = errors.New("unknown role")

// Role is the purpose a handler serves for an entity type.
type Role int

const (
	ListView Role = iota
	DetailView
	CreateView
	UpdateView
	Form
)

// Roles lists every role in resolution order.
var Roles = []Role{ListView, DetailView, CreateView, UpdateView, Form}

// ViewRoles lists the roles served by an HTTP handler.
var ViewRoles = []Role{ListView, DetailView, CreateView, UpdateView}

// Suffix returns the type name suffix of overrides for r.
func (r Role) Suffix() string {
	switch r {
	case ListView:
		return "ListView"
	case DetailView:
		return "DetailView"
	case CreateView:
		return "CreateView"
	case UpdateView:
		return "UpdateView"
	case Form:
		return "Form"
	default:
		return ""
	}
}

// Namespace returns the app namespace overrides for r are registered in.
func (r Role) Namespace() string {
	if r == Form {
		return "forms"
	}
	return "views"
}

// IsView reports whether r is served by an HTTP handler.
func (r Role) IsView() bool {
	return r >= ListView && r <= UpdateView
}

func (r Role) String() string {
	if s := r.Suffix(); s != "" {
		return s
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

func (r Role) valid() bool {
	return r >= ListView && r <= Form
}

// OverrideName returns the lookup name of an override type:
// {app}.{views|forms}.{TypeName}{RoleSuffix}.
func OverrideName(app, typeName string, role Role) string {
	return app + "." + role.Namespace() + "." + typeName + role.Suffix()
}

// Resolution is the handler chosen for one (entity type, role) pair.
type Resolution struct {
	Role   Role
	Entity string
	// Name is the override type name, or Generic{RoleSuffix} for defaults.
	Name     string
	Override bool

	desc   *schema.Descriptor
	view   views.Factory
	form   forms.Factory
	logger *slog.Logger
}

// NewView instantiates the view handler. A failing override is logged and
// replaced by the generated default.
func (res Resolution) NewView(d views.Deps) http.Handler {
	if d.Descriptor == nil {
		d.Descriptor = res.desc
	}
	if res.Override {
		h, err := callView(res.view, d)
		if err == nil && h != nil {
			return h
		}
		res.logger.Warn("override view failed, using generated default",
			"override", res.Name, "entity", res.Entity, "error", err)
	}
	h, err := defaultView(res.Role)(d)
	if err != nil {
		// generated factories do not fail
		panic(fmt.Sprintf("generated %s for %s: %v", res.Role, res.Entity, err))
	}
	return h
}

// NewForm instantiates the form for action. A failing override is logged and
// replaced by the generated default.
func (res Resolution) NewForm(action forms.Action) forms.Form {
	if res.Override {
		f, err := callForm(res.form, res.desc, action)
		if err == nil && f != nil {
			return f
		}
		res.logger.Warn("override form failed, using generated default",
			"override", res.Name, "entity", res.Entity, "action", action.String(), "error", err)
	}
	return forms.NewGeneric(res.desc, action)
}

func callView(f views.Factory, d views.Deps) (h http.Handler, err error) {
	defer func() {
		if p := recover(); p != nil {
			h, err = nil, fmt.Errorf("override panicked: %v", p)
		}
	}()
	return f(d)
}

func callForm(f forms.Factory, desc *schema.Descriptor, action forms.Action) (form forms.Form, err error) {
	defer func() {
		if p := recover(); p != nil {
			form, err = nil, fmt.Errorf("override panicked: %v", p)
		}
	}()
	return f(desc, action)
}

func defaultView(role Role) views.Factory {
	switch role {
	case DetailView:
		return views.DetailFactory
	case CreateView:
		return views.CreateFactory
	case UpdateView:
		return views.UpdateFactory
	default:
		return views.ListFactory
	}
}

type cacheKey struct {
	entity string
	role   Role
}

// Resolver holds the override registry and the resolution cache.
type Resolver struct {
	mu sync.RWMutex

	// views maps override names to factories: "trading_insights.views.ScenarioListView" → factory
	views map[string]views.Factory
	forms map[string]forms.Factory

	cache  map[cacheKey]Resolution
	logger *slog.Logger
}

// New creates an empty resolver.
func New(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{
		views:  make(map[string]views.Factory),
		forms:  make(map[string]forms.Factory),
		cache:  make(map[cacheKey]Resolution),
		logger: logger,
	}
}

// OverrideView registers f under {app}.views.{typeName}. typeName carries
// the role suffix, e.g. "ScenarioListView". The last registration wins.
func (r *Resolver) OverrideView(app, typeName string, f views.Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views[app+".views."+typeName] = f
	r.invalidateLocked()
}

// OverrideForm registers f under {app}.forms.{typeName}, e.g. "ScenarioForm".
func (r *Resolver) OverrideForm(app, typeName string, f forms.Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forms[app+".forms."+typeName] = f
	r.invalidateLocked()
}

// Invalidate drops every cached resolution.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidateLocked()
}

func (r *Resolver) invalidateLocked() {
	clear(r.cache)
}

// Overrides returns the registered override names, sorted.
func (r *Resolver) Overrides() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.views)+len(r.forms))
	for name := range r.views {
		names = append(names, name)
	}
	for name := range r.forms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the handler serving role for desc. The override registered
// under the conventional name wins over the generated default. Only an
// invalid descriptor or role is an error.
func (r *Resolver) Resolve(desc *schema.Descriptor, role Role) (Resolution, error) {
	if !role.valid() {
		return Resolution{}, fmt.Errorf("%w: %d", ErrUnknownRole, int(role))
	}
	if err := desc.Validate(); err != nil {
		return Resolution{}, err
	}

	key := cacheKey{entity: desc.Key(), role: role}
	r.mu.RLock()
	res, ok := r.cache[key]
	r.mu.RUnlock()
	if ok && res.desc == desc {
		return res, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := OverrideName(desc.App, desc.Name, role)
	res = Resolution{
		Role:   role,
		Entity: desc.Key(),
		Name:   "Generic" + role.Suffix(),
		desc:   desc,
		logger: r.logger,
	}
	if role.IsView() {
		if f, ok := r.views[name]; ok && f != nil {
			res.view, res.Override, res.Name = f, true, desc.Name+role.Suffix()
		}
	} else if f, ok := r.forms[name]; ok && f != nil {
		res.form, res.Override, res.Name = f, true, desc.Name+role.Suffix()
	}

	r.cache[key] = res
	r.logger.Debug("resolved handler", "entity", res.Entity, "role", role.String(), "handler", res.Name, "override", res.Override)
	return res, nil
}

// ResolveAll resolves every role of desc.
func (r *Resolver) ResolveAll(desc *schema.Descriptor) (map[Role]Resolution, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	out := make(map[Role]Resolution, len(Roles))
	for _, role := range Roles {
		res, err := r.Resolve(desc, role)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s for %s: %w", role, desc.Key(), err)
		}
		out[role] = res
	}
	return out, nil
}
