// Package schema describes admin entities: their app namespace, type name,
// fields and list display, plus a struct-tag binder that reads and writes
// entity values by field name.
package schema

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidDescriptor is returned by Validate for unusable descriptors.
var ErrInvalidDescriptor = errors.New("invalid entity descriptor")

// Entity is a persisted domain object managed by the admin layer.
type Entity interface {
	Descriptor() *Descriptor
	PK() int64
	SetPK(id int64)
	String() string
}

// Descriptor is the type-level metadata of an entity.
type Descriptor struct {
	// App is the namespace owning the entity, e.g. "trading_insights".
	App string
	// Name is the entity type name, e.g. "Scenario".
	Name              string
	VerboseName       string
	VerboseNamePlural string
	MenuIcon          string
	Fields            []Field
	// ListDisplay names the list columns; all fields are shown when empty.
	ListDisplay []string
	// Ordering lists field names for list queries, "-" prefix for descending.
	Ordering []string
	// New returns a zero entity of this type.
	New func() Entity
}

// Key returns the "app.model" identifier.
func (d *Descriptor) Key() string {
	return d.App + "." + d.ModelName()
}

// ModelName returns the lowercase type name.
func (d *Descriptor) ModelName() string {
	return strings.ToLower(d.Name)
}

// Table returns the storage table name.
func (d *Descriptor) Table() string {
	return d.App + "_" + d.ModelName()
}

// Verbose returns VerboseName, falling back to Name.
func (d *Descriptor) Verbose() string {
	if d.VerboseName != "" {
		return d.VerboseName
	}
	return d.Name
}

// VerbosePlural returns VerboseNamePlural, falling back to Verbose()+"s".
func (d *Descriptor) VerbosePlural() string {
	if d.VerboseNamePlural != "" {
		return d.VerboseNamePlural
	}
	return d.Verbose() + "s"
}

// Field returns the named field.
func (d *Descriptor) Field(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FieldNames returns every field name in declaration order.
func (d *Descriptor) FieldNames() []string {
	names := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		names[i] = f.Name
	}
	return names
}

// EditableFields returns the names of fields marked editable.
func (d *Descriptor) EditableFields() []string {
	var names []string
	for _, f := range d.Fields {
		if f.Editable {
			names = append(names, f.Name)
		}
	}
	return names
}

// ListDisplayFields returns the list columns.
func (d *Descriptor) ListDisplayFields() []Field {
	if len(d.ListDisplay) == 0 {
		out := make([]Field, len(d.Fields))
		copy(out, d.Fields)
		return out
	}
	out := make([]Field, 0, len(d.ListDisplay))
	for _, name := range d.ListDisplay {
		if f, ok := d.Field(name); ok {
			out = append(out, f)
		}
	}
	return out
}

// ListURL returns the list page path.
func (d *Descriptor) ListURL() string {
	return "/" + d.App + "/" + d.ModelName() + "/"
}

// CreateURL returns the create page path.
func (d *Descriptor) CreateURL() string {
	return d.ListURL() + "create/"
}

// DetailURL returns the detail page path for pk.
func (d *Descriptor) DetailURL(pk int64) string {
	return d.ListURL() + strconv.FormatInt(pk, 10) + "/"
}

// UpdateURL returns the update page path for pk.
func (d *Descriptor) UpdateURL(pk int64) string {
	return d.DetailURL(pk) + "update/"
}

// UpdatesURL returns the live list updates stream path.
func (d *Descriptor) UpdatesURL() string {
	return d.ListURL() + "updates"
}

// Validate reports configuration errors that make the entity unusable.
func (d *Descriptor) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: nil descriptor", ErrInvalidDescriptor)
	}
	if d.App == "" || d.Name == "" {
		return fmt.Errorf("%w: app and name are required (got %q.%q)", ErrInvalidDescriptor, d.App, d.Name)
	}
	if len(d.Fields) == 0 {
		return fmt.Errorf("%w: %s has no fields", ErrInvalidDescriptor, d.Key())
	}
	if d.New == nil {
		return fmt.Errorf("%w: %s has no instance factory", ErrInvalidDescriptor, d.Key())
	}

	seen := make(map[string]struct{}, len(d.Fields))
	for _, f := range d.Fields {
		if f.Name == "" {
			return fmt.Errorf("%w: %s has a field without name", ErrInvalidDescriptor, d.Key())
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("%w: %s declares field %q twice", ErrInvalidDescriptor, d.Key(), f.Name)
		}
		seen[f.Name] = struct{}{}
		if f.Kind == KindChoice && len(f.Choices) == 0 {
			return fmt.Errorf("%w: %s.%s is a choice field without choices", ErrInvalidDescriptor, d.Key(), f.Name)
		}
		if f.Kind == KindForeignKey && f.Related == "" {
			return fmt.Errorf("%w: %s.%s is a foreign key without related entity", ErrInvalidDescriptor, d.Key(), f.Name)
		}
	}

	for _, name := range d.ListDisplay {
		if _, ok := seen[name]; !ok {
			return fmt.Errorf("%w: %s list display references unknown field %q", ErrInvalidDescriptor, d.Key(), name)
		}
	}
	for _, name := range d.Ordering {
		if _, ok := seen[strings.TrimPrefix(name, "-")]; !ok {
			return fmt.Errorf("%w: %s ordering references unknown field %q", ErrInvalidDescriptor, d.Key(), name)
		}
	}

	if _, err := indexFor(d.New()); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidDescriptor, d.Key(), err)
	}
	for _, f := range d.Fields {
		if _, err := lookup(d.New(), f.Name); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidDescriptor, d.Key(), err)
		}
	}

	return nil
}

// Loader fetches the entity with identity pk of the entity type key.
type Loader func(ctx context.Context, key string, pk int64) (Entity, error)

// Hydrator is implemented by entities whose display needs related entities.
type Hydrator interface {
	Hydrate(ctx context.Context, load Loader) error
}
