// Package menu builds the main navigation: the dashboard followed by one
// entry per configured entity type.
package menu

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/a-h/templ"

	"github.com/aiokaizen/bear-vision/internal/lava/i18n"
	"github.com/aiokaizen/bear-vision/internal/lava/markup"
	"github.com/aiokaizen/bear-vision/internal/lava/schema"
)

// Dashboard entry constants.
const (
	DashboardURL  = "/"
	DashboardIcon = "anticon anticon-dashboard"
)

// Item is one navigation entry.
type Item struct {
	// Key is the entity key, empty for the dashboard.
	Key   string
	Title string
	Icon  string
	URL   string
}

// Lookup returns the descriptor registered under an entity key.
type Lookup func(key string) (*schema.Descriptor, bool)

// Menu caches the resolved entity entries. An empty menu is a valid cached
// value; only Invalidate or SetKeys trigger a rebuild.
type Menu struct {
	mu     sync.Mutex
	lookup Lookup
	keys   []string
	logger *slog.Logger

	valid   bool
	entries []*schema.Descriptor
	builds  int
}

// New creates a menu listing keys in order.
func New(lookup Lookup, keys []string, logger *slog.Logger) *Menu {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Menu{lookup: lookup, keys: slices.Clone(keys), logger: logger}
}

// SetKeys replaces the configured entity keys and invalidates the cache.
func (m *Menu) SetKeys(keys []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = slices.Clone(keys)
	m.valid = false
}

// Keys returns the configured entity keys.
func (m *Menu) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.keys)
}

// Invalidate drops the cached entries. The next read rebuilds them.
func (m *Menu) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.valid = false
}

func (m *Menu) descriptors() []*schema.Descriptor {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.valid {
		return m.entries
	}

	entries := make([]*schema.Descriptor, 0, len(m.keys))
	for _, key := range m.keys {
		desc, ok := m.lookup(key)
		if !ok {
			m.logger.Warn("menu item is not a registered entity", "key", key)
			continue
		}
		entries = append(entries, desc)
	}
	m.entries, m.valid = entries, true
	m.builds++
	return entries
}

// Contains reports whether the entity key is reachable from the menu.
func (m *Menu) Contains(key string) bool {
	return slices.ContainsFunc(m.descriptors(), func(d *schema.Descriptor) bool {
		return d.Key() == key
	})
}

// Items returns the dashboard entry followed by the entity entries.
func (m *Menu) Items(l *i18n.Localizer) []Item {
	descs := m.descriptors()
	items := make([]Item, 0, len(descs)+1)
	items = append(items, Item{
		Title: l.T("lava.menu.dashboard"),
		Icon:  DashboardIcon,
		URL:   DashboardURL,
	})
	for _, d := range descs {
		items = append(items, Item{
			Key:   d.Key(),
			Title: d.Verbose(),
			Icon:  d.MenuIcon,
			URL:   d.ListURL(),
		})
	}
	return items
}

// Active returns the index of the item serving path, or -1.
func Active(items []Item, path string) int {
	best, bestLen := -1, 0
	for i, it := range items {
		if it.URL == DashboardURL {
			if path == DashboardURL && best < 0 {
				best = i
			}
			continue
		}
		if strings.HasPrefix(path, it.URL) && len(it.URL) > bestLen {
			best, bestLen = i, len(it.URL)
		}
	}
	return best
}

// Component renders items as the sidebar navigation.
func Component(items []Item, path string) templ.Component {
	active := Active(items, path)
	return templ.ComponentFunc(func(_ context.Context, out io.Writer) error {
		w := markup.New(out)
		w.Open("ul", "class", "side-nav-menu")
		for i, it := range items {
			class := "nav-item"
			if i == active {
				class += " active"
			}
			w.Open("li", "class", class).
				Open("a", "href", it.URL).
				Open("i", "class", it.Icon).Close("i").
				Elem("span", it.Title, "class", "title").
				Close("a").
				Close("li")
		}
		return w.Close("ul").Err()
	})
}
