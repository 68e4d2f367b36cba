package tradinginsights_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiokaizen/bear-vision/internal/lava/model"
	"github.com/aiokaizen/bear-vision/internal/lava/resolver"
	"github.com/aiokaizen/bear-vision/internal/lava/schema"
	"github.com/aiokaizen/bear-vision/internal/lava/views"
	"github.com/aiokaizen/bear-vision/internal/storage"
	"github.com/aiokaizen/bear-vision/internal/testutil"
	ti "github.com/aiokaizen/bear-vision/internal/tradinginsights"
)

func newManager(t *testing.T, store *storage.Store) *model.Manager {
	t.Helper()
	return model.NewManager(model.Config{Persister: store, Logger: testutil.NewTestLogger(t)})
}

func create(t *testing.T, m *model.Manager, e schema.Entity) {
	t.Helper()
	res := m.Create(context.Background(), e, nil)
	require.True(t, res.IsSuccess(), res.String())
}

func lookup(key string) (*schema.Descriptor, bool) {
	for _, d := range ti.Descriptors() {
		if d.Key() == key {
			return d, true
		}
	}
	return nil, false
}

func TestDescriptorsAreValid(t *testing.T) {
	keys := make([]string, 0, len(ti.Descriptors()))
	for _, d := range ti.Descriptors() {
		require.NoError(t, d.Validate(), d.Key())
		keys = append(keys, d.Key())
	}
	assert.Equal(t, []string{
		"trading_insights.account",
		"trading_insights.position",
		"trading_insights.symbol",
		"trading_insights.scenario",
		"trading_insights.scenarioline",
	}, keys)
	assert.Equal(t, "/trading_insights/scenarioline/", ti.ScenarioLineDescriptor.ListURL())
}

func TestDisplayStrings(t *testing.T) {
	open := time.Date(2024, 2, 5, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name   string
		entity schema.Entity
		want   string
	}{
		{name: "symbol", entity: ti.NewSymbol("EURUSD"), want: "EURUSD"},
		{name: "symbol with display name", entity: &ti.Symbol{Name: "XAUUSD", DisplayName: "Gold"}, want: "XAUUSD (Gold)"},
		{name: "account", entity: &ti.Account{Name: "Main"}, want: "Main"},
		{name: "trade", entity: &ti.Position{PositionType: ti.PositionBuy, Profit: 120.5, Amount: 9, OpenTime: open}, want: "Buy - 120.50 - 05/02/2024 14:30"},
		{name: "deposit", entity: &ti.Position{PositionType: ti.PositionDeposit, Profit: 3, Amount: 1000, OpenTime: open}, want: "Deposit - 1000.00 - 05/02/2024 14:30"},
		{name: "scenario line without scenario", entity: &ti.ScenarioLine{Scenario: 4, StartDate: open}, want: "4 - 05/02/24"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.entity.String())
		})
	}
}

func TestNewSymbolDefaults(t *testing.T) {
	s := ti.SymbolDescriptor.New().(*ti.Symbol)
	assert.Equal(t, ti.SymbolForex, s.SymbolType)
	assert.InDelta(t, ti.DefaultPipValue, s.PipValue, 1e-12)
}

func TestValidate(t *testing.T) {
	open := time.Date(2024, 2, 5, 14, 30, 0, 0, time.UTC)

	p := &ti.Position{OpenTime: open, CloseTime: open.Add(-time.Minute), Volume: -1}
	errs := p.Validate()
	require.Len(t, errs, 2)
	assert.Equal(t, "close_time", errs[0].Field)
	assert.Equal(t, "volume", errs[1].Field)

	p = &ti.Position{OpenTime: open, CloseTime: open.Add(time.Hour), Volume: 0.1}
	assert.Empty(t, p.Validate())

	l := &ti.ScenarioLine{StartDate: open, EndDate: open.AddDate(0, 0, -1)}
	require.Len(t, l.Validate(), 1)
	assert.Equal(t, "end_date", l.Validate()[0].Field)
}

func TestScenarioLineHydrate(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	m := newManager(t, store)

	s := &ti.Scenario{Name: "Compounding"}
	create(t, m, s)
	line := &ti.ScenarioLine{
		StartDate:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		StartAmount:  1000,
		TargetAmount: 2000,
	}
	line.SetScenario(s)
	create(t, m, line)
	assert.Equal(t, "Compounding - 01/01/24", line.String())

	e, err := store.Get(ctx, ti.ScenarioLineDescriptor, line.ID)
	require.NoError(t, err)
	loaded := e.(*ti.ScenarioLine)
	assert.Equal(t, "1 - 01/01/24", loaded.String())

	load := func(ctx context.Context, key string, pk int64) (schema.Entity, error) {
		desc, _ := lookup(key)
		return store.Get(ctx, desc, pk)
	}
	require.NoError(t, loaded.Hydrate(ctx, load))
	assert.Equal(t, "Compounding - 01/01/24", loaded.String())

	loaded.Scenario = 99
	assert.Error(t, loaded.Hydrate(ctx, load))
}

func TestSeedSymbols(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	m := newManager(t, store)

	create(t, m, &ti.Symbol{Name: "EURUSD", SymbolType: ti.SymbolForex, PipValue: 0.001})

	n, err := ti.SeedSymbols(ctx, store, m, ti.Symbols, nil)
	require.NoError(t, err)
	assert.Equal(t, len(ti.Symbols)-1, n)

	n, err = ti.SeedSymbols(ctx, store, m, ti.Symbols, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	total, err := store.Count(ctx, ti.SymbolDescriptor)
	require.NoError(t, err)
	assert.EqualValues(t, len(ti.Symbols), total)

	e, err := store.FindBy(ctx, ti.SymbolDescriptor, "name", "EURUSD")
	require.NoError(t, err)
	assert.InDelta(t, 0.001, e.(*ti.Symbol).PipValue, 1e-12, "existing symbols are untouched")
}

func TestScenarioListViewOverride(t *testing.T) {
	store := testutil.NewStore(t)
	m := newManager(t, store)

	main := &ti.Account{Name: "Main"}
	create(t, m, main)
	demo := &ti.Account{Name: "Demo"}
	create(t, m, demo)
	mainID := main.ID
	create(t, m, &ti.Scenario{Name: "Aggressive", Account: &mainID})
	create(t, m, &ti.Scenario{Name: "Unassigned"})

	r := resolver.New(testutil.NewTestLogger(t))
	ti.Register(r)
	assert.Contains(t, r.Overrides(), "trading_insights.views.ScenarioListView")

	res, err := r.Resolve(ti.ScenarioDescriptor, resolver.ListView)
	require.NoError(t, err)
	assert.True(t, res.Override)
	assert.Equal(t, "ScenarioListView", res.Name)

	h := res.NewView(views.Deps{
		Descriptor: ti.ScenarioDescriptor,
		Repo:       store,
		Manager:    m,
		Lookup:     lookup,
		Logger:     testutil.NewTestLogger(t),
	})
	require.IsType(t, &ti.ScenarioListView{}, h)

	t.Run("unfiltered", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/trading_insights/scenario/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "<h1>Scenarios</h1>")
		assert.Contains(t, body, "Aggressive")
		assert.Contains(t, body, "Unassigned")
	})

	t.Run("by account", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/trading_insights/scenario/?account=1", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "<h1>Scenarios of Main</h1>")
		assert.Contains(t, body, "Aggressive")
		assert.NotContains(t, body, "Unassigned")
	})

	t.Run("account without scenarios", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/trading_insights/scenario/?account=2", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "<h1>Scenarios of Demo</h1>")
		assert.Contains(t, rec.Body.String(), "No Scenarios yet.")
	})

	t.Run("unknown account is ignored in the title", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/trading_insights/scenario/?account=abc", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "<h1>Scenarios</h1>")
		assert.Contains(t, rec.Body.String(), "Unassigned")
	})
}

func TestScenarioListViewPageSize(t *testing.T) {
	store := testutil.NewStore(t)
	m := newManager(t, store)
	for i := range ti.ScenarioPageSize + 1 {
		create(t, m, &ti.Scenario{Name: fmt.Sprintf("Scenario %02d", i+1)})
	}

	h, err := ti.NewScenarioListView(views.Deps{
		Descriptor: ti.ScenarioDescriptor,
		Repo:       store,
		Manager:    m,
		Lookup:     lookup,
		Logger:     testutil.NewTestLogger(t),
		PageSize:   20,
	})
	require.NoError(t, err)
	assert.Equal(t, ti.ScenarioPageSize, h.(*ti.ScenarioListView).PageSize)

	tests := []struct {
		page string
		want int
	}{
		{page: "1", want: http.StatusOK},
		{page: "2", want: http.StatusOK},
		{page: "3", want: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run("page "+tt.page, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/trading_insights/scenario/?page="+tt.page, nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
