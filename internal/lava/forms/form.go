// Package forms binds request values onto entities and renders entity forms.
package forms

import (
	"context"
	"io"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/a-h/templ"

	"github.com/aiokaizen/bear-vision/internal/lava/i18n"
	"github.com/aiokaizen/bear-vision/internal/lava/markup"
	"github.com/aiokaizen/bear-vision/internal/lava/result"
	"github.com/aiokaizen/bear-vision/internal/lava/schema"
)

// Action is the purpose a form is built for.
type Action int

const (
	ActionCreate Action = iota
	ActionUpdate
)

// String returns "create" or "update".
func (a Action) String() string {
	if a == ActionUpdate {
		return "update"
	}
	return "create"
}

// Layout is the presentation metadata of a form.
type Layout struct {
	FormID     string
	FormClass  string
	LabelClass string
	FieldClass string
}

// DefaultLayout returns the conventional layout for an entity form.
func DefaultLayout(desc *schema.Descriptor) Layout {
	model := desc.ModelName()
	return Layout{
		FormID:     model + "_form",
		FormClass:  model + "_form form col-sm-12 col-md-12 col-lg-8 form-horizontal",
		LabelClass: "col-lg-2",
		FieldClass: "col-lg-10",
	}
}

// RenderData carries everything a form needs to render.
type RenderData struct {
	Entity    schema.Entity
	ActionURL string
	Errors    []result.FieldError
	Localizer *i18n.Localizer
	// Related holds the selectable options of foreign key fields, by field name.
	Related map[string][]schema.Choice
}

// Form binds and renders one entity type.
type Form interface {
	ID() string
	Action() Action
	Layout() Layout
	Fields() []schema.Field
	SubmitLabel(l *i18n.Localizer) string
	// Bind assigns values to e and returns validation errors.
	Bind(values url.Values, e schema.Entity, l *i18n.Localizer) []result.FieldError
	Render(data RenderData) templ.Component
}

// Factory builds a form for desc.
type Factory func(desc *schema.Descriptor, action Action) (Form, error)

// GenericFactory is the default Factory.
func GenericFactory(desc *schema.Descriptor, action Action) (Form, error) {
	return NewGeneric(desc, action), nil
}

// Generic is the form generated from a descriptor.
type Generic struct {
	desc   *schema.Descriptor
	action Action
	layout Layout
	fields []schema.Field
}

// NewGeneric builds a form over the editable fields of desc. When allow is
// non-empty only those editable fields are included, in allow order.
func NewGeneric(desc *schema.Descriptor, action Action, allow ...string) *Generic {
	var fields []schema.Field
	if len(allow) == 0 {
		for _, f := range desc.Fields {
			if f.Editable {
				fields = append(fields, f)
			}
		}
	} else {
		for _, name := range allow {
			if f, ok := desc.Field(name); ok && f.Editable {
				fields = append(fields, f)
			}
		}
	}
	return &Generic{desc: desc, action: action, layout: DefaultLayout(desc), fields: fields}
}

// ID returns the form element id.
func (g *Generic) ID() string { return g.layout.FormID }

// Action returns the form purpose.
func (g *Generic) Action() Action { return g.action }

// Layout returns the presentation metadata.
func (g *Generic) Layout() Layout { return g.layout }

// Fields returns the bound fields.
func (g *Generic) Fields() []schema.Field {
	out := make([]schema.Field, len(g.fields))
	copy(out, g.fields)
	return out
}

// SubmitLabel returns "Add" for create forms and "Edit" for update forms.
func (g *Generic) SubmitLabel(l *i18n.Localizer) string {
	if g.action == ActionUpdate {
		return l.T("lava.form.submit_update")
	}
	return l.T("lava.form.submit_create")
}

// Bind assigns values to e. Fields failing validation keep their previous value.
func (g *Generic) Bind(values url.Values, e schema.Entity, l *i18n.Localizer) []result.FieldError {
	var errs []result.FieldError
	for _, f := range g.fields {
		raw := strings.TrimSpace(values.Get(f.Name))

		// an empty password on update keeps the stored one
		if f.Kind == schema.KindPassword && raw == "" && g.action == ActionUpdate {
			continue
		}
		if raw == "" && f.Required && f.Kind != schema.KindBool {
			errs = append(errs, result.FieldError{Field: f.Name, Message: l.T("lava.form.required")})
			continue
		}
		if f.MaxLength > 0 && utf8.RuneCountInString(raw) > f.MaxLength {
			errs = append(errs, result.FieldError{Field: f.Name, Message: l.T("lava.form.max_length", f.MaxLength)})
			continue
		}
		if err := schema.Assign(e, f, raw); err != nil {
			errs = append(errs, result.FieldError{Field: f.Name, Message: l.T("lava.form.invalid_value")})
		}
	}
	return errs
}

// Render renders the form.
func (g *Generic) Render(data RenderData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := markup.New(out)
		byField := map[string][]string{}
		var global []string
		for _, fe := range data.Errors {
			if fe.Field == "" {
				global = append(global, fe.Message)
				continue
			}
			byField[fe.Field] = append(byField[fe.Field], fe.Message)
		}

		w.Open("form", "id", g.layout.FormID, "class", g.layout.FormClass, "method", "post", "action", data.ActionURL)
		for _, msg := range global {
			w.Elem("div", msg, "class", "alert alert-danger")
		}
		for _, f := range g.fields {
			renderField(w, g.layout, f, data, byField[f.Name])
		}
		w.Open("div", "class", "form-group row").
			Open("div", "class", markup.Classes("offset-lg-2", g.layout.FieldClass)).
			Elem("button", g.SubmitLabel(data.Localizer), "type", "submit", "class", "btn btn-primary").
			Close("div").Close("div")
		w.Close("form")
		return w.Err()
	})
}

func renderField(w *markup.Writer, layout Layout, f schema.Field, data RenderData, errs []string) {
	id := "id_" + f.Name
	inputClass := "form-control"
	if len(errs) > 0 {
		inputClass += " is-invalid"
	}
	value := ""
	if data.Entity != nil {
		value = schema.FormValue(data.Entity, f)
	}

	w.Open("div", "class", "form-group row")
	w.Elem("label", f.DisplayLabel(), "class", markup.Classes(layout.LabelClass, "col-form-label"), "for", id)
	w.Open("div", "class", layout.FieldClass)

	switch f.Kind {
	case schema.KindText:
		w.Open("textarea", "id", id, "name", f.Name, "class", inputClass, "rows", "4").Text(value).Close("textarea")
	case schema.KindBool:
		w.Raw(`<input type="checkbox" class="form-check-input"`).
			Rawf(` id="%s" name="%s"`, id, f.Name)
		if value != "" {
			w.Raw(" checked")
		}
		w.Raw(">")
	case schema.KindChoice:
		renderSelect(w, id, f, inputClass, value, f.Choices, data.Localizer)
	case schema.KindForeignKey:
		renderSelect(w, id, f, inputClass, value, data.Related[f.Name], data.Localizer)
	default:
		attrs := []string{"type", inputType(f.Kind), "id", id, "name", f.Name, "class", inputClass, "value", value}
		if f.Kind == schema.KindDecimal {
			attrs = append(attrs, "step", "any")
		}
		w.Open("input", attrs...)
	}

	for _, msg := range errs {
		w.Elem("div", msg, "class", "invalid-feedback")
	}
	if f.HelpText != "" {
		w.Elem("small", f.HelpText, "class", "form-text text-muted")
	}
	w.Close("div").Close("div")
}

func renderSelect(w *markup.Writer, id string, f schema.Field, class, value string, options []schema.Choice, l *i18n.Localizer) {
	w.Open("select", "id", id, "name", f.Name, "class", class)
	if !f.Required || value == "" {
		w.Elem("option", l.T("lava.form.choose"), "value", "")
	}
	for _, opt := range options {
		if opt.Value == value {
			w.Open("option", "value", opt.Value, "selected", "selected").Text(opt.Label).Close("option")
			continue
		}
		w.Elem("option", opt.Label, "value", opt.Value)
	}
	w.Close("select")
}

func inputType(k schema.Kind) string {
	switch k {
	case schema.KindInt, schema.KindDecimal:
		return "number"
	case schema.KindDate:
		return "date"
	case schema.KindDateTime:
		return "datetime-local"
	case schema.KindPassword:
		return "password"
	default:
		return "text"
	}
}
