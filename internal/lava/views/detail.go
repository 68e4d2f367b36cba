package views

import (
	"context"
	"io"
	"net/http"

	"github.com/a-h/templ"

	"github.com/aiokaizen/bear-vision/internal/lava/markup"
	"github.com/aiokaizen/bear-vision/internal/lava/result"
	"github.com/aiokaizen/bear-vision/internal/lava/schema"
)

// Detail shows one entity and handles its deletion.
type Detail struct {
	Deps
}

// NewDetail creates the generated detail handler.
func NewDetail(d Deps) *Detail {
	return &Detail{Deps: d.withDefaults()}
}

// ServeHTTP renders the entity on GET and runs actions on POST.
func (h *Detail) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		h.show(w, r)
	case http.MethodPost:
		h.post(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	}
}

func (h *Detail) show(w http.ResponseWriter, r *http.Request) {
	e := h.object(w, r)
	if e == nil {
		return
	}
	confirming := r.URL.Query().Get("delete") != ""
	WritePage(w, r, h.Caps, Page{Title: e.String(), Body: h.body(r, e, confirming)})
}

func (h *Detail) body(r *http.Request, e schema.Entity, confirming bool) templ.Component {
	loc := h.localizer(r)
	desc := h.Descriptor
	lbl := newLabels(h.Deps)

	type line struct{ label, value string }
	lines := make([]line, 0, len(desc.Fields))
	for _, f := range desc.Fields {
		if f.Kind == schema.KindPassword {
			continue
		}
		lines = append(lines, line{label: f.DisplayLabel(), value: lbl.display(r.Context(), e, f)})
	}

	return templ.ComponentFunc(func(_ context.Context, out io.Writer) error {
		w := markup.New(out)
		w.Elem("h1", e.String())
		w.Open("dl", "class", "row")
		for _, ln := range lines {
			w.Elem("dt", ln.label, "class", "col-sm-3").Elem("dd", ln.value, "class", "col-sm-9")
		}
		w.Close("dl")

		if confirming {
			w.Open("div", "class", "alert alert-danger").
				Elem("p", loc.T("lava.view.delete_confirm", e.String())).
				Open("form", "method", "post", "action", desc.DetailURL(e.PK())).
				Open("input", "type", "hidden", "name", "action", "value", "delete").
				Open("input", "type", "hidden", "name", "confirm", "value", "yes").
				Elem("button", loc.T("lava.view.delete"), "type", "submit", "class", "btn btn-danger").
				Raw(" ").
				Elem("a", loc.T("lava.view.cancel"), "class", "btn btn-link", "href", desc.DetailURL(e.PK())).
				Close("form").
				Close("div")
		}

		w.Open("div", "class", "d-flex gap-2").
			Elem("a", loc.T("lava.view.back"), "class", "btn btn-link", "href", desc.ListURL()).
			Elem("a", loc.T("lava.view.edit"), "class", "btn btn-secondary", "href", desc.UpdateURL(e.PK()))
		if !confirming {
			w.Elem("a", loc.T("lava.view.delete"), "class", "btn btn-outline-danger", "href", desc.DetailURL(e.PK())+"?delete=1")
		}
		return w.Close("div").Err()
	})
}

func (h *Detail) post(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	if r.PostForm.Get("action") != "delete" {
		http.Error(w, "unknown action", http.StatusBadRequest)
		return
	}

	e := h.object(w, r)
	if e == nil {
		return
	}
	desc := h.Descriptor
	loc := h.localizer(r)

	if r.PostForm.Get("confirm") != "yes" {
		res := result.Warning(loc.T("lava.view.delete_confirmation_required", e.String()), e, result.CodeConfirmationRequired)
		if WantsJSON(r) {
			WriteResult(w, StatusFor(res), res)
			return
		}
		h.flash(w, r, res)
		http.Redirect(w, r, desc.DetailURL(e.PK())+"?delete=1", http.StatusSeeOther)
		return
	}

	res := h.manager(r).Delete(r.Context(), e)
	if WantsJSON(r) {
		WriteResult(w, StatusFor(res), res)
		return
	}
	h.flash(w, r, res)
	if res.IsSuccess() {
		http.Redirect(w, r, desc.ListURL(), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, desc.DetailURL(e.PK()), http.StatusSeeOther)
}
