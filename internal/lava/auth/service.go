package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/aiokaizen/bear-vision/internal/lava/i18n"
	"github.com/aiokaizen/bear-vision/internal/lava/model"
	"github.com/aiokaizen/bear-vision/internal/lava/result"
	"github.com/aiokaizen/bear-vision/internal/storage"
)

// dummyHash is compared against when the user does not exist so that
// unknown usernames take as long as wrong passwords.
var dummyHash = sync.OnceValue(func() []byte {
	hash, _ := bcrypt.GenerateFromPassword([]byte("bear-vision"), bcrypt.DefaultCost)
	return hash
})

// Config configures a Service.
type Config struct {
	Store     *storage.Store
	Manager   *model.Manager
	Localizer *i18n.Localizer
	Logger    *slog.Logger
	Clock     func() time.Time
}

// Service manages users, groups and credentials.
type Service struct {
	store     *storage.Store
	manager   *model.Manager
	localizer *i18n.Localizer
	logger    *slog.Logger
	clock     func() time.Time
}

// NewService creates a Service. A nil Manager gets one over Store.
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	mgr := cfg.Manager
	if mgr == nil {
		mgr = model.NewManager(model.Config{Persister: cfg.Store, Localizer: cfg.Localizer, Logger: logger, Clock: clock})
	}
	return &Service{
		store:     cfg.Store,
		manager:   mgr.WithLocalizer(cfg.Localizer),
		localizer: cfg.Localizer,
		logger:    logger,
		clock:     clock,
	}
}

// WithLocalizer returns a copy of s rendering messages with l.
func (s *Service) WithLocalizer(l *i18n.Localizer) *Service {
	cp := *s
	cp.localizer = l
	cp.manager = s.manager.WithLocalizer(l)
	return &cp
}

// CreateOptions tunes CreateUser.
type CreateOptions struct {
	// Password is validated and hashed when set.
	Password string
	// GeneratePassword assigns a random temporary password when Password is
	// empty. The clear text is kept in User.TmpPassword.
	GeneratePassword bool
	ForceActive      bool
	// Groups replaces the user's groups when not nil.
	Groups []*Group
	Actor  *int64
}

// CreateUser validates and stores a new user.
func (s *Service) CreateUser(ctx context.Context, u *User, opts CreateOptions) result.Result {
	l := s.localizer
	u.Username = strings.TrimSpace(u.Username)
	if u.Username == "" {
		return result.Error(l.T("lava.form.invalid"), u,
			[]result.FieldError{{Field: "username", Message: l.T("lava.auth.username_required")}},
			result.CodeValidationFailed)
	}
	if u.PK() == 0 {
		switch _, err := s.FindUser(ctx, u.Username); {
		case err == nil:
			return result.Error(l.T("lava.form.invalid"), u,
				[]result.FieldError{{Field: "username", Message: l.T("lava.auth.username_taken")}},
				result.CodeValidationFailed)
		case !errors.Is(err, storage.ErrNotFound):
			s.logger.Error("failed to look up user", "username", u.Username, "error", err)
			return result.Error(l.T("lava.model.storage_error", UserDescriptor.Verbose()), u, nil, result.CodeStorage)
		}
	}

	password := opts.Password
	if password != "" {
		if res := ValidatePassword(l, password, u); !res.IsSuccess() {
			return res
		}
	} else if opts.GeneratePassword {
		generated, err := GeneratePassword(TemporaryPasswordLength, true)
		if err != nil {
			s.logger.Error("failed to generate password", "error", err)
			return result.Error(l.T("lava.model.storage_error", UserDescriptor.Verbose()), u, nil, result.CodeStorage)
		}
		password = generated
		u.TmpPassword = generated
	}

	if opts.ForceActive {
		u.IsActive = true
	}
	if password != "" {
		if err := u.SetPassword(password); err != nil {
			s.logger.Error("failed to hash password", "error", err)
			return result.Error(l.T("lava.auth.invalid_password"), u, nil, result.CodeInvalidPassword)
		}
	}

	if res := s.manager.Create(ctx, u, opts.Actor); !res.IsSuccess() {
		return res
	}

	if opts.Groups != nil {
		if err := s.SetGroups(ctx, u.ID, opts.Groups); err != nil {
			s.logger.Error("failed to assign groups", "user", u.Username, "error", err)
			return result.Error(l.T("lava.model.storage_error", GroupDescriptor.VerbosePlural()), u, nil, result.CodeStorage)
		}
	}

	s.logger.Info("user created", "username", u.Username, "id", u.ID)
	return result.Success(l.T("lava.auth.user_created", u.Username), u)
}

// FindUser loads a user by username.
func (s *Service) FindUser(ctx context.Context, username string) (*User, error) {
	e, err := s.store.FindBy(ctx, UserDescriptor, "username", username)
	if err != nil {
		return nil, err
	}
	return e.(*User), nil
}

// GetUser loads a user by identity.
func (s *Service) GetUser(ctx context.Context, id int64) (*User, error) {
	e, err := s.store.Get(ctx, UserDescriptor, id)
	if err != nil {
		return nil, err
	}
	return e.(*User), nil
}

// Authenticate checks credentials. The success payload is the user.
func (s *Service) Authenticate(ctx context.Context, username, password string) result.Result {
	invalid := result.Error(s.localizer.T("lava.auth.invalid_credentials"), nil, nil, result.CodeInvalidCredentials)

	u, err := s.FindUser(ctx, strings.TrimSpace(username))
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Error("failed to look up user", "username", username, "error", err)
		}
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
		return invalid
	}
	if !u.CheckPassword(password) || !u.IsActive {
		return invalid
	}

	now := s.clock().UTC()
	u.LastLogin = &now
	if err := s.store.Update(ctx, u); err != nil {
		s.logger.Warn("failed to record last login", "user", u.Username, "error", err)
	}
	return result.Success("", u)
}

// ChangePassword validates and stores a new password for a stored user.
func (s *Service) ChangePassword(ctx context.Context, u *User, password string) result.Result {
	if res := ValidatePassword(s.localizer, password, u); !res.IsSuccess() {
		return res
	}
	if err := u.SetPassword(password); err != nil {
		return result.Error(s.localizer.T("lava.auth.invalid_password"), u, nil, result.CodeInvalidPassword)
	}
	u.TmpPassword = ""
	return s.manager.Update(ctx, u)
}

// EnsureGroup returns the group named name, creating it when missing.
func (s *Service) EnsureGroup(ctx context.Context, name string) (*Group, bool, error) {
	e, err := s.store.FindBy(ctx, GroupDescriptor, "name", name)
	if err == nil {
		return e.(*Group), false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, false, err
	}

	g := &Group{Name: name}
	if res := s.manager.Create(ctx, g, nil); !res.IsSuccess() {
		return nil, false, fmt.Errorf("failed to create group %s: %s", name, res.Message())
	}
	return g, true, nil
}

// SetGroups replaces the groups of a user.
func (s *Service) SetGroups(ctx context.Context, userID int64, groups []*Group) error {
	tx, err := s.store.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, s.store.Rebind(`DELETE FROM "lava_light_user_groups" WHERE "user_id" = ?`), userID); err != nil {
		return fmt.Errorf("failed to clear groups of user %d: %w", userID, err)
	}
	for _, g := range groups {
		if _, err := tx.ExecContext(ctx, s.store.Rebind(`INSERT INTO "lava_light_user_groups" ("user_id", "group_id") VALUES (?, ?)`), userID, g.ID); err != nil {
			return fmt.Errorf("failed to add user %d to group %s: %w", userID, g.Name, err)
		}
	}
	return tx.Commit()
}

// AddGroup adds a user to a group. Existing memberships are kept.
func (s *Service) AddGroup(ctx context.Context, userID int64, g *Group) error {
	_, err := s.store.DB().ExecContext(ctx,
		s.store.Rebind(`INSERT INTO "lava_light_user_groups" ("user_id", "group_id") VALUES (?, ?) ON CONFLICT DO NOTHING`),
		userID, g.ID)
	if err != nil {
		return fmt.Errorf("failed to add user %d to group %s: %w", userID, g.Name, err)
	}
	return nil
}

// UserGroups returns the names of a user's groups, sorted.
func (s *Service) UserGroups(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.store.DB().QueryContext(ctx, s.store.Rebind(`
		SELECT g."name" FROM "lava_light_group" g
		JOIN "lava_light_user_groups" ug ON ug."group_id" = g."id"
		WHERE ug."user_id" = ?
		ORDER BY g."name"`), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups of user %d: %w", userID, err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// DeleteAllUsers removes every user and returns how many were removed.
func (s *Service) DeleteAllUsers(ctx context.Context) (int64, error) {
	res, err := s.store.DB().ExecContext(ctx, `DELETE FROM "lava_light_user"`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete users: %w", err)
	}
	return res.RowsAffected()
}
