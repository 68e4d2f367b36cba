package views

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/aiokaizen/bear-vision/internal/lava/markup"
	"github.com/aiokaizen/bear-vision/internal/lava/result"
	"github.com/aiokaizen/bear-vision/internal/lava/schema"
	"github.com/aiokaizen/bear-vision/internal/storage"
)

// WantsJSON reports whether the client asked for a JSON response.
func WantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// StatusFor maps a result to an HTTP status.
func StatusFor(res result.Result) int {
	if res.IsSuccess() {
		return http.StatusOK
	}
	switch res.ErrorCode() {
	case result.CodeNotFound:
		return http.StatusNotFound
	case result.CodeValidationFailed, result.CodeInvalidPassword:
		return http.StatusUnprocessableEntity
	case result.CodeStorage:
		return http.StatusInternalServerError
	case result.CodeInvalidCredentials:
		return http.StatusUnauthorized
	default:
		return http.StatusConflict
	}
}

// WriteResult writes the structured form of res as JSON.
func WriteResult(w http.ResponseWriter, status int, res result.Result) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(res)
}

// WritePage renders p through caps, or as a bare document when no layout
// renderer is configured.
func WritePage(w http.ResponseWriter, r *http.Request, caps Capabilities, p Page) {
	if p.Status == 0 {
		p.Status = http.StatusOK
	}
	if p.Body == nil {
		p.Body = markup.Empty
	}
	if caps.Render != nil {
		caps.Render(w, r, p)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(p.Status)
	_ = templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		mw := markup.New(out)
		mw.Raw("<!doctype html><html><head>").Elem("title", p.Title).Raw("</head><body>")
		mw.Component(ctx, p.Body)
		mw.Raw("</body></html>")
		return mw.Err()
	}).Render(r.Context(), w)
}

func (d Deps) notFound(w http.ResponseWriter, r *http.Request) {
	l := d.localizer(r)
	msg := l.T("lava.model.not_found", d.Descriptor.Verbose())
	if WantsJSON(r) {
		WriteResult(w, http.StatusNotFound, result.Error(msg, nil, nil, result.CodeNotFound))
		return
	}
	WritePage(w, r, d.Caps, Page{
		Title:  msg,
		Status: http.StatusNotFound,
		Body: templ.ComponentFunc(func(_ context.Context, out io.Writer) error {
			return markup.New(out).Elem("p", msg, "class", "alert alert-warning").Err()
		}),
	})
}

func (d Deps) serverError(w http.ResponseWriter, r *http.Request, err error) {
	d.Logger.Error("request failed", "entity", d.Descriptor.Key(), "path", r.URL.Path, "error", err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// object loads the entity addressed by the pk URL parameter. It writes the
// error response itself and returns nil when the entity cannot be served.
func (d Deps) object(w http.ResponseWriter, r *http.Request) schema.Entity {
	pk, err := strconv.ParseInt(chi.URLParam(r, "pk"), 10, 64)
	if err != nil || pk <= 0 {
		d.notFound(w, r)
		return nil
	}
	e, err := d.Repo.Get(r.Context(), d.Descriptor, pk)
	if errors.Is(err, storage.ErrNotFound) {
		d.notFound(w, r)
		return nil
	}
	if err != nil {
		d.serverError(w, r, err)
		return nil
	}
	d.hydrate(r.Context(), e)
	return e
}

// labels resolves foreign key cells to the related entity's display string.
type labels struct {
	d     Deps
	cache map[string]string
}

func newLabels(d Deps) *labels {
	return &labels{d: d, cache: map[string]string{}}
}

func (l *labels) display(ctx context.Context, e schema.Entity, f schema.Field) string {
	if f.Kind != schema.KindForeignKey {
		return schema.Display(e, f)
	}
	v, err := schema.Get(e, f.Name)
	pk, ok := v.(int64)
	if err != nil || !ok || pk == 0 {
		return schema.Empty
	}
	key := f.Related + "#" + strconv.FormatInt(pk, 10)
	if label, ok := l.cache[key]; ok {
		return label
	}
	label := strconv.FormatInt(pk, 10)
	if related, err := l.d.load(ctx, f.Related, pk); err == nil {
		label = related.String()
	}
	l.cache[key] = label
	return label
}

// relatedChoices lists the selectable entities of every foreign key field.
func (d Deps) relatedChoices(ctx context.Context, fields []schema.Field) map[string][]schema.Choice {
	out := map[string][]schema.Choice{}
	for _, f := range fields {
		if f.Kind != schema.KindForeignKey || d.Lookup == nil {
			continue
		}
		desc, ok := d.Lookup(f.Related)
		if !ok {
			continue
		}
		items, err := d.Repo.List(ctx, desc, storage.ListOptions{})
		if err != nil {
			d.Logger.Warn("failed to list related entities", "field", f.Name, "related", f.Related, "error", err)
			continue
		}
		choices := make([]schema.Choice, 0, len(items))
		for _, it := range items {
			d.hydrate(ctx, it)
			choices = append(choices, schema.Choice{Value: strconv.FormatInt(it.PK(), 10), Label: it.String()})
		}
		out[f.Name] = choices
	}
	return out
}
