// Package model holds the audit fields shared by every entity and the
// Manager enforcing the create/update/delete lifecycle.
package model

import (
	"time"

	"github.com/aiokaizen/bear-vision/internal/lava/schema"
)

// Base is embedded by every managed entity.
type Base struct {
	ID            int64      `field:"id"`
	CreatedAt     *time.Time `field:"created_at"`
	CreatedBy     *int64     `field:"created_by"`
	LastUpdatedAt *time.Time `field:"last_updated_at"`
	DeletedAt     *time.Time `field:"deleted_at"`

	deleted bool
}

// PK returns the persistence identity, zero while transient.
func (b *Base) PK() int64 {
	if b == nil {
		return 0
	}
	return b.ID
}

// SetPK assigns the persistence identity.
func (b *Base) SetPK(id int64) { b.ID = id }

// IsPersisted reports whether the object has a stored identity.
func (b *Base) IsPersisted() bool { return b != nil && b.ID != 0 }

// IsDeleted reports whether the object was deleted through a Manager.
func (b *Base) IsDeleted() bool { return b != nil && b.deleted }

func (b *Base) base() *Base { return b }

type stateful interface {
	base() *Base
}

// BaseFields returns the schema of the embedded audit fields.
func BaseFields() []schema.Field {
	return []schema.Field{
		{Name: "id", Label: "ID", Kind: schema.KindInt},
		{Name: "created_at", Label: "Created at", Kind: schema.KindDateTime, Nullable: true},
		{Name: "created_by", Label: "Created by", Kind: schema.KindForeignKey, Related: "lava_light.user", Nullable: true},
		{Name: "last_updated_at", Label: "Last updated at", Kind: schema.KindDateTime, Nullable: true},
		{Name: "deleted_at", Label: "Deleted at", Kind: schema.KindDateTime, Nullable: true},
	}
}

// WithBaseFields prepends the audit fields to fields.
func WithBaseFields(fields ...schema.Field) []schema.Field {
	return append(BaseFields(), fields...)
}
