package tradinginsights

import (
	"net/http"
	"strconv"

	"github.com/aiokaizen/bear-vision/internal/lava/i18n"
	"github.com/aiokaizen/bear-vision/internal/lava/resolver"
	"github.com/aiokaizen/bear-vision/internal/lava/views"
	"github.com/aiokaizen/bear-vision/internal/storage"
)

// ScenarioPageSize is the number of scenarios per list page.
const ScenarioPageSize = 10

// ScenarioListView lists scenarios. ?account=<id> narrows the listing to the
// scenarios tracked against that account.
type ScenarioListView struct {
	*views.List
}

// NewScenarioListView is the views.Factory registered as
// trading_insights.views.ScenarioListView. It pages by ScenarioPageSize
// regardless of the configured page size.
func NewScenarioListView(d views.Deps) (http.Handler, error) {
	d.PageSize = ScenarioPageSize
	v := &ScenarioListView{List: views.NewList(d)}
	v.Filters = v.filters
	return v, nil
}

func accountFilter(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.URL.Query().Get("account"), 10, 64)
	return id, err == nil && id > 0
}

func (v *ScenarioListView) filters(r *http.Request) []storage.Filter {
	if id, ok := accountFilter(r); ok {
		return []storage.Filter{{Field: "account", Value: id}}
	}
	return nil
}

// ServeHTTP renders the listing, titled after the account when filtered.
func (v *ScenarioListView) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	list := *v.List
	list.Title = nil
	if id, ok := accountFilter(r); ok && v.Repo != nil {
		if e, err := v.Repo.Get(r.Context(), AccountDescriptor, id); err == nil {
			name := e.String()
			list.Title = func(l *i18n.Localizer) string {
				return l.T("trading_insights.scenario.account_title", name)
			}
		}
	}
	list.ServeHTTP(w, r)
}

// Register installs the trading overrides on r.
func Register(r *resolver.Resolver) {
	r.OverrideView(App, "ScenarioListView", NewScenarioListView)
}
