package model

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aiokaizen/bear-vision/internal/lava/i18n"
	"github.com/aiokaizen/bear-vision/internal/lava/result"
	"github.com/aiokaizen/bear-vision/internal/lava/schema"
	"github.com/aiokaizen/bear-vision/internal/storage"
)

// Persister writes entities. storage.Store implements it.
type Persister interface {
	Insert(ctx context.Context, e schema.Entity) (int64, error)
	Update(ctx context.Context, e schema.Entity) error
	Delete(ctx context.Context, e schema.Entity) error
}

// Validator is implemented by entities with cross-field rules checked
// before every write.
type Validator interface {
	Validate() []result.FieldError
}

// ChangeKind classifies a successful write.
type ChangeKind int

const (
	Created ChangeKind = iota
	Updated
	Deleted
)

// Change describes a successful write, delivered to Config.OnChange.
type Change struct {
	Kind   ChangeKind
	Entity string
	PK     int64
}

// Config configures a Manager.
type Config struct {
	Persister Persister
	Localizer *i18n.Localizer
	Logger    *slog.Logger
	Clock     func() time.Time
	OnChange  func(Change)
}

// Manager runs the lifecycle operations and reports them as results.
//
// Transient --Create--> Persisted --Update--> Persisted --Delete--> Deleted.
// Deleted is terminal.
type Manager struct {
	persister Persister
	localizer *i18n.Localizer
	logger    *slog.Logger
	clock     func() time.Time
	onChange  func(Change)
}

// NewManager creates a Manager.
func NewManager(cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Manager{
		persister: cfg.Persister,
		localizer: cfg.Localizer,
		logger:    logger,
		clock:     clock,
		onChange:  cfg.OnChange,
	}
}

// WithLocalizer returns a copy of m rendering messages with l.
func (m *Manager) WithLocalizer(l *i18n.Localizer) *Manager {
	cp := *m
	cp.localizer = l
	return &cp
}

// Create persists a transient entity. actor, when set, is recorded as creator.
func (m *Manager) Create(ctx context.Context, e schema.Entity, actor *int64) result.Result {
	desc := e.Descriptor()
	name := desc.Verbose()

	if b := baseOf(e); b != nil && b.deleted {
		return result.Error(m.localizer.T("lava.model.deleted", name), e, nil, result.CodeObjectDeleted)
	}
	if e.PK() != 0 {
		return result.Error(m.localizer.T("lava.model.already_created", name), e, nil, result.CodeAlreadyCreated)
	}
	if res, ok := m.validate(e); !ok {
		return res
	}

	now := m.clock().UTC()
	if b := baseOf(e); b != nil {
		b.CreatedAt = &now
		b.LastUpdatedAt = &now
		if actor != nil {
			id := *actor
			b.CreatedBy = &id
		}
	}

	id, err := m.persister.Insert(ctx, e)
	if err != nil {
		m.logger.Error("failed to create entity", "entity", desc.Key(), "error", err)
		if b := baseOf(e); b != nil {
			b.CreatedAt, b.LastUpdatedAt, b.CreatedBy = nil, nil, nil
		}
		return result.Error(m.localizer.T("lava.model.storage_error", name), e, nil, result.CodeStorage)
	}
	e.SetPK(id)

	m.logger.Debug("entity created", "entity", desc.Key(), "id", id)
	m.notify(Change{Kind: Created, Entity: desc.Key(), PK: id})
	return result.Success(m.localizer.T("lava.model.create_success", name), e)
}

// Update persists changes to a stored entity.
func (m *Manager) Update(ctx context.Context, e schema.Entity) result.Result {
	desc := e.Descriptor()
	name := desc.Verbose()

	if b := baseOf(e); b != nil && b.deleted {
		return result.Error(m.localizer.T("lava.model.deleted", name), e, nil, result.CodeObjectDeleted)
	}
	if e.PK() == 0 {
		return result.Error(m.localizer.T("lava.model.not_created", name), e, nil, result.CodeNotCreated)
	}
	if res, ok := m.validate(e); !ok {
		return res
	}

	var previous *time.Time
	if b := baseOf(e); b != nil {
		previous = b.LastUpdatedAt
		now := m.clock().UTC()
		b.LastUpdatedAt = &now
	}

	if err := m.persister.Update(ctx, e); err != nil {
		if b := baseOf(e); b != nil {
			b.LastUpdatedAt = previous
		}
		if errors.Is(err, storage.ErrNotFound) {
			return result.Error(m.localizer.T("lava.model.not_found", name), e, nil, result.CodeNotFound)
		}
		m.logger.Error("failed to update entity", "entity", desc.Key(), "id", e.PK(), "error", err)
		return result.Error(m.localizer.T("lava.model.storage_error", name), e, nil, result.CodeStorage)
	}

	m.logger.Debug("entity updated", "entity", desc.Key(), "id", e.PK())
	m.notify(Change{Kind: Updated, Entity: desc.Key(), PK: e.PK()})
	return result.Success(m.localizer.T("lava.model.update_success", name), e)
}

// Delete removes a stored entity. The in-memory object becomes terminal.
func (m *Manager) Delete(ctx context.Context, e schema.Entity) result.Result {
	desc := e.Descriptor()
	name := desc.Verbose()

	if b := baseOf(e); b != nil && b.deleted {
		return result.Error(m.localizer.T("lava.model.deleted", name), e, nil, result.CodeObjectDeleted)
	}
	if e.PK() == 0 {
		return result.Error(m.localizer.T("lava.model.not_created", name), e, nil, result.CodeNotCreated)
	}

	pk := e.PK()
	if err := m.persister.Delete(ctx, e); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return result.Error(m.localizer.T("lava.model.not_found", name), e, nil, result.CodeNotFound)
		}
		m.logger.Error("failed to delete entity", "entity", desc.Key(), "id", pk, "error", err)
		return result.Error(m.localizer.T("lava.model.storage_error", name), e, nil, result.CodeStorage)
	}

	if b := baseOf(e); b != nil {
		now := m.clock().UTC()
		b.DeletedAt = &now
		b.deleted = true
	}

	m.logger.Debug("entity deleted", "entity", desc.Key(), "id", pk)
	m.notify(Change{Kind: Deleted, Entity: desc.Key(), PK: pk})
	return result.Success(m.localizer.T("lava.model.delete_success", name), e)
}

func (m *Manager) validate(e schema.Entity) (result.Result, bool) {
	v, ok := e.(Validator)
	if !ok {
		return result.Result{}, true
	}
	errs := v.Validate()
	if len(errs) == 0 {
		return result.Result{}, true
	}
	return result.Error(m.localizer.T("lava.form.invalid"), e, errs, result.CodeValidationFailed), false
}

func (m *Manager) notify(c Change) {
	if m.onChange != nil {
		m.onChange(c)
	}
}

func baseOf(e schema.Entity) *Base {
	if s, ok := e.(stateful); ok {
		return s.base()
	}
	return nil
}
