package auth

import (
	"net/url"
	"strings"

	"github.com/aiokaizen/bear-vision/internal/lava/forms"
	"github.com/aiokaizen/bear-vision/internal/lava/i18n"
	"github.com/aiokaizen/bear-vision/internal/lava/result"
	"github.com/aiokaizen/bear-vision/internal/lava/schema"
)

// UserForm binds users. The posted password is checked against the password
// rules and stored hashed; a blank password on update keeps the stored hash.
type UserForm struct {
	*forms.Generic
}

// NewUserForm is the forms.Factory registered as lava_light.forms.UserForm.
func NewUserForm(desc *schema.Descriptor, action forms.Action) (forms.Form, error) {
	return &UserForm{Generic: forms.NewGeneric(desc, action,
		"username", "first_name", "last_name", "email", "password", "is_active", "is_superuser")}, nil
}

// Bind implements forms.Form.
func (f *UserForm) Bind(values url.Values, e schema.Entity, l *i18n.Localizer) []result.FieldError {
	u, ok := e.(*User)
	if !ok {
		return []result.FieldError{{Message: l.T("lava.form.invalid_value")}}
	}
	stored := u.Password
	errs := f.Generic.Bind(values, e, l)

	raw := strings.TrimSpace(values.Get("password"))
	if raw == "" {
		u.Password = stored
		return errs
	}
	if res := ValidatePassword(l, raw, u); !res.IsSuccess() {
		u.Password = stored
		return append(errs, res.Errors()...)
	}
	if err := u.SetPassword(raw); err != nil {
		u.Password = stored
		return append(errs, result.FieldError{Field: "password", Message: l.T("lava.auth.invalid_password")})
	}
	u.TmpPassword = ""
	return errs
}
