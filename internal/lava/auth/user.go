// Package auth provides the user and group entities, password rules,
// cookie sessions and the login pages.
package auth

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/aiokaizen/bear-vision/internal/lava/model"
	"github.com/aiokaizen/bear-vision/internal/lava/schema"
)

// App is the namespace of the auth entities.
const App = "lava_light"

// AdministratorGroup is the group created by the setup command.
const AdministratorGroup = "ADMINISTRATOR"

// User is an account allowed to sign in.
type User struct {
	model.Base
	Username    string     `field:"username"`
	FirstName   string     `field:"first_name"`
	LastName    string     `field:"last_name"`
	Email       string     `field:"email"`
	Password    string     `field:"password"`
	TmpPassword string     `field:"tmp_password"`
	IsActive    bool       `field:"is_active"`
	IsSuperuser bool       `field:"is_superuser"`
	LastLogin   *time.Time `field:"last_login"`
}

// UserDescriptor describes lava_light.user.
var UserDescriptor = &schema.Descriptor{
	App:               App,
	Name:              "User",
	VerboseName:       "User",
	VerboseNamePlural: "Users",
	MenuIcon:          "anticon anticon-user",
	Fields: model.WithBaseFields(
		schema.Field{Name: "username", Label: "Username", Kind: schema.KindString, Editable: true, Required: true, MaxLength: 150},
		schema.Field{Name: "first_name", Label: "First name", Kind: schema.KindString, Editable: true, MaxLength: 150},
		schema.Field{Name: "last_name", Label: "Last name", Kind: schema.KindString, Editable: true, MaxLength: 150},
		schema.Field{Name: "email", Label: "Email address", Kind: schema.KindString, Editable: true, MaxLength: 254},
		schema.Field{Name: "password", Label: "Password", Kind: schema.KindPassword, Editable: true, Required: true},
		schema.Field{Name: "tmp_password", Label: "Temporary password", Kind: schema.KindPassword},
		schema.Field{Name: "is_active", Label: "Active", Kind: schema.KindBool, Editable: true},
		schema.Field{Name: "is_superuser", Label: "Superuser status", Kind: schema.KindBool, Editable: true},
		schema.Field{Name: "last_login", Label: "Last login", Kind: schema.KindDateTime, Nullable: true},
	),
	ListDisplay: []string{"username", "first_name", "last_name", "email", "is_active"},
	Ordering:    []string{"-created_at", "last_name", "first_name"},
	New:         func() schema.Entity { return &User{} },
}

// Descriptor implements schema.Entity.
func (u *User) Descriptor() *schema.Descriptor { return UserDescriptor }

func (u *User) String() string { return u.Username }

// FullName returns the first and last name joined by a space.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// SetPassword stores the bcrypt hash of raw.
func (u *User) SetPassword(raw string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hash)
	return nil
}

// CheckPassword reports whether raw matches the stored hash.
func (u *User) CheckPassword(raw string) bool {
	if u.Password == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(raw))
	return err == nil
}

// HasUsablePassword reports whether the stored password is a bcrypt hash.
func (u *User) HasUsablePassword() bool {
	_, err := bcrypt.Cost([]byte(u.Password))
	return err == nil
}

// Group is a named set of users.
type Group struct {
	model.Base
	Name string `field:"name"`
}

// GroupDescriptor describes lava_light.group.
var GroupDescriptor = &schema.Descriptor{
	App:               App,
	Name:              "Group",
	VerboseName:       "Group",
	VerboseNamePlural: "Groups",
	MenuIcon:          "anticon anticon-team",
	Fields: model.WithBaseFields(
		schema.Field{Name: "name", Label: "Name", Kind: schema.KindString, Editable: true, Required: true, MaxLength: 150},
	),
	Ordering: []string{"name"},
	New:      func() schema.Entity { return &Group{} },
}

// Descriptor implements schema.Entity.
func (g *Group) Descriptor() *schema.Descriptor { return GroupDescriptor }

func (g *Group) String() string { return g.Name }
