package views

import (
	"net/http"

	"github.com/aiokaizen/bear-vision/internal/lava/forms"
	"github.com/aiokaizen/bear-vision/internal/lava/result"
	"github.com/aiokaizen/bear-vision/internal/lava/schema"
)

// Create serves the creation form of an entity type.
type Create struct {
	Deps
}

// NewCreate creates the generated create handler.
func NewCreate(d Deps) *Create {
	return &Create{Deps: d.withDefaults()}
}

// ServeHTTP renders the empty form on GET and creates the entity on POST.
func (h *Create) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	form := h.Form(forms.ActionCreate)
	action := h.Descriptor.CreateURL()

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		h.renderForm(w, r, form, h.Descriptor.New(), action, nil, http.StatusOK)
	case http.MethodPost:
		e := h.Descriptor.New()
		if !h.bind(w, r, form, e, action) {
			return
		}
		res := h.manager(r).Create(r.Context(), e, h.currentUser(r))
		h.finish(w, r, form, e, action, res, http.StatusCreated)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	}
}

// Update serves the edition form of an existing entity.
type Update struct {
	Deps
}

// NewUpdate creates the generated update handler.
func NewUpdate(d Deps) *Update {
	return &Update{Deps: d.withDefaults()}
}

// ServeHTTP renders the bound form on GET and saves the entity on POST.
func (h *Update) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead && r.Method != http.MethodPost {
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	e := h.object(w, r)
	if e == nil {
		return
	}
	form := h.Form(forms.ActionUpdate)
	action := h.Descriptor.UpdateURL(e.PK())

	if r.Method != http.MethodPost {
		h.renderForm(w, r, form, e, action, nil, http.StatusOK)
		return
	}
	if !h.bind(w, r, form, e, action) {
		return
	}
	res := h.manager(r).Update(r.Context(), e)
	h.finish(w, r, form, e, action, res, http.StatusOK)
}

// bind parses the request body onto e. On failure it writes the response
// and returns false.
func (d Deps) bind(w http.ResponseWriter, r *http.Request, form forms.Form, e schema.Entity, action string) bool {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return false
	}
	loc := d.localizer(r)
	errs := form.Bind(r.PostForm, e, loc)
	if len(errs) == 0 {
		return true
	}

	res := result.Error(loc.T("lava.form.invalid"), e, errs, result.CodeValidationFailed)
	if WantsJSON(r) {
		WriteResult(w, http.StatusUnprocessableEntity, res)
		return false
	}
	d.renderForm(w, r, form, e, action, errs, http.StatusUnprocessableEntity)
	return false
}

// finish reports a write result: redirect to the detail page on success,
// form with errors otherwise.
func (d Deps) finish(w http.ResponseWriter, r *http.Request, form forms.Form, e schema.Entity, action string, res result.Result, okStatus int) {
	if WantsJSON(r) {
		status := StatusFor(res)
		if res.IsSuccess() {
			status = okStatus
		}
		WriteResult(w, status, res)
		return
	}
	if res.IsSuccess() {
		d.flash(w, r, res)
		http.Redirect(w, r, d.Descriptor.DetailURL(e.PK()), http.StatusSeeOther)
		return
	}

	errs := res.Errors()
	if len(errs) == 0 {
		errs = []result.FieldError{{Message: res.Message()}}
	}
	d.renderForm(w, r, form, e, action, errs, StatusFor(res))
}

func (d Deps) renderForm(w http.ResponseWriter, r *http.Request, form forms.Form, e schema.Entity, action string, errs []result.FieldError, status int) {
	loc := d.localizer(r)
	title := loc.T("lava.view.create_title", d.Descriptor.Verbose())
	if form.Action() == forms.ActionUpdate {
		title = loc.T("lava.view.update_title", e.String())
	}
	body := form.Render(forms.RenderData{
		Entity:    e,
		ActionURL: action,
		Errors:    errs,
		Localizer: loc,
		Related:   d.relatedChoices(r.Context(), form.Fields()),
	})
	WritePage(w, r, d.Caps, Page{Title: title, Status: status, Body: body})
}
