package views

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/aiokaizen/bear-vision/internal/lava/i18n"
	"github.com/aiokaizen/bear-vision/internal/lava/markup"
	"github.com/aiokaizen/bear-vision/internal/lava/schema"
	"github.com/aiokaizen/bear-vision/internal/storage"
)

// List is the paginated listing of an entity type.
type List struct {
	Deps
	// Filters restricts the listing for a request.
	Filters func(r *http.Request) []storage.Filter
	// Title overrides the page title.
	Title func(l *i18n.Localizer) string
}

// NewList creates the generated list handler.
func NewList(d Deps) *List {
	return &List{Deps: d.withDefaults()}
}

// ListPage is one page of a listing.
type ListPage struct {
	Items  []schema.Entity
	Number int
	Pages  int
	Total  int64
}

// HasPrevious reports whether a previous page exists.
func (p ListPage) HasPrevious() bool { return p.Number > 1 }

// HasNext reports whether a next page exists.
func (p ListPage) HasNext() bool { return p.Number < p.Pages }

// errPageOutOfRange marks a page number past the last page.
type errPageOutOfRange struct{}

func (errPageOutOfRange) Error() string { return "page out of range" }

// Fetch loads the page requested by the "page" query parameter. Page 1 of an
// empty listing exists; any other page past the end does not.
func (l *List) Fetch(r *http.Request) (ListPage, error) {
	number := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return ListPage{}, errPageOutOfRange{}
		}
		number = n
	}

	var filters []storage.Filter
	if l.Filters != nil {
		filters = l.Filters(r)
	}

	total, err := l.Repo.Count(r.Context(), l.Descriptor, filters...)
	if err != nil {
		return ListPage{}, err
	}
	pages := int((total + int64(l.PageSize) - 1) / int64(l.PageSize))
	if pages == 0 {
		pages = 1
	}
	if number > pages {
		return ListPage{}, errPageOutOfRange{}
	}

	items, err := l.Repo.List(r.Context(), l.Descriptor, storage.ListOptions{
		Filters: filters,
		Limit:   l.PageSize,
		Offset:  (number - 1) * l.PageSize,
	})
	if err != nil {
		return ListPage{}, err
	}
	for _, it := range items {
		l.hydrate(r.Context(), it)
	}
	return ListPage{Items: items, Number: number, Pages: pages, Total: total}, nil
}

func (l *List) title(loc *i18n.Localizer) string {
	if l.Title != nil {
		return l.Title(loc)
	}
	return l.Descriptor.VerbosePlural()
}

// ServeHTTP renders the list page.
func (l *List) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	page, err := l.Fetch(r)
	if _, ok := err.(errPageOutOfRange); ok {
		l.notFound(w, r)
		return
	}
	if err != nil {
		l.serverError(w, r, err)
		return
	}

	loc := l.localizer(r)
	title := l.title(loc)
	desc := l.Descriptor
	table := l.Table(r.Context(), page, loc)

	body := templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := markup.New(out)
		w.Open("div", "class", "d-flex justify-content-between align-items-center mb-3").
			Elem("h1", title).
			Elem("a", loc.T("lava.view.add"), "class", "btn btn-primary", "href", desc.CreateURL()).
			Close("div")
		w.Open("div", "id", l.containerID())
		if l.Notifier != nil {
			q := r.URL.Query()
			q.Set("page", strconv.Itoa(page.Number))
			w.Open("div", "data-init", "@get('"+desc.UpdatesURL()+"?"+q.Encode()+"')").Close("div")
		}
		w.Component(ctx, table)
		w.Close("div")
		return w.Err()
	})

	WritePage(w, r, l.Caps, Page{Title: title, Body: body})
}

func (l *List) containerID() string {
	return l.Descriptor.ModelName() + "-list"
}

// Table renders the rows of page, wrapped in an element whose id is stable
// across live updates.
func (l *List) Table(ctx context.Context, page ListPage, loc *i18n.Localizer) templ.Component {
	desc := l.Descriptor
	cols := desc.ListDisplayFields()
	lbl := newLabels(l.Deps)

	type row struct {
		pk    int64
		cells []string
	}
	rows := make([]row, len(page.Items))
	for i, it := range page.Items {
		cells := make([]string, len(cols))
		for j, f := range cols {
			cells[j] = lbl.display(ctx, it, f)
		}
		rows[i] = row{pk: it.PK(), cells: cells}
	}

	return templ.ComponentFunc(func(_ context.Context, out io.Writer) error {
		w := markup.New(out)
		w.Open("div", "id", l.containerID()+"-table")
		if len(rows) == 0 {
			w.Elem("p", loc.T("lava.view.list_empty", desc.VerbosePlural()), "class", "text-muted")
			return w.Close("div").Err()
		}

		w.Open("table", "class", "table table-hover").Raw("<thead><tr>")
		for _, f := range cols {
			w.Elem("th", f.DisplayLabel())
		}
		w.Raw("<th></th></tr></thead><tbody>")
		for _, rw := range rows {
			w.Raw("<tr>")
			for j, cell := range rw.cells {
				if j == 0 {
					w.Open("td").Elem("a", cell, "href", desc.DetailURL(rw.pk)).Close("td")
					continue
				}
				w.Elem("td", cell)
			}
			w.Open("td", "class", "text-end").
				Elem("a", loc.T("lava.view.edit"), "class", "btn btn-sm btn-outline-secondary", "href", desc.UpdateURL(rw.pk)).
				Raw(" ").
				Elem("a", loc.T("lava.view.delete"), "class", "btn btn-sm btn-outline-danger", "href", desc.DetailURL(rw.pk)+"?delete=1").
				Close("td")
			w.Raw("</tr>")
		}
		w.Raw("</tbody></table>")

		if page.Pages > 1 {
			w.Open("nav", "class", "pagination")
			if page.HasPrevious() {
				w.Elem("a", loc.T("lava.view.previous"), "class", "page-link", "href", desc.ListURL()+"?page="+strconv.Itoa(page.Number-1))
			}
			w.Elem("span", loc.T("lava.view.page", page.Number, page.Pages), "class", "page-item")
			if page.HasNext() {
				w.Elem("a", loc.T("lava.view.next"), "class", "page-link", "href", desc.ListURL()+"?page="+strconv.Itoa(page.Number+1))
			}
			w.Close("nav")
		}
		return w.Close("div").Err()
	})
}

// ServeUpdates streams a refreshed table whenever the entity type changes.
func (l *List) ServeUpdates(w http.ResponseWriter, r *http.Request) {
	if l.Notifier == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	sse := datastar.NewSSE(w, r)
	topic := l.Descriptor.Key()
	updates := l.Notifier.Subscribe(topic)
	defer l.Notifier.Unsubscribe(topic, updates)

	loc := l.localizer(r)
	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			page, err := l.Fetch(r)
			if _, ok := err.(errPageOutOfRange); ok {
				q := r.URL.Query()
				q.Del("page")
				r.URL.RawQuery = q.Encode()
				page, err = l.Fetch(r)
			}
			if err != nil {
				_ = sse.ConsoleError(err)
				continue
			}
			if err := sse.PatchElementTempl(l.Table(ctx, page, loc)); err != nil {
				_ = sse.ConsoleError(err)
			}
		}
	}
}
