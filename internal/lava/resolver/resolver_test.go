package resolver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiokaizen/bear-vision/internal/lava/forms"
	"github.com/aiokaizen/bear-vision/internal/lava/schema"
	"github.com/aiokaizen/bear-vision/internal/lava/views"
	"github.com/aiokaizen/bear-vision/internal/storage"
	"github.com/aiokaizen/bear-vision/internal/testutil"
)

type scenario struct {
	ID      int64  `field:"id"`
	Name    string `field:"name"`
	Account *int64 `field:"account"`
}

var scenarioDescriptor = &schema.Descriptor{
	App:  "trading_insights",
	Name: "Scenario",
	Fields: []schema.Field{
		{Name: "id", Kind: schema.KindInt},
		{Name: "name", Label: "Name", Kind: schema.KindString, Editable: true, Required: true},
		{Name: "account", Label: "Account", Kind: schema.KindForeignKey, Related: "trading_insights.account", Editable: true, Nullable: true},
	},
	ListDisplay: []string{"name", "account"},
	New:         func() schema.Entity { return &scenario{} },
}

func (s *scenario) Descriptor() *schema.Descriptor { return scenarioDescriptor }
func (s *scenario) PK() int64                      { return s.ID }
func (s *scenario) SetPK(id int64)                 { s.ID = id }
func (s *scenario) String() string                 { return s.Name }

// ScenarioListView is an app override of the scenario listing.
type ScenarioListView struct {
	*views.List
}

// emptyRepo is a backing collection without rows.
type emptyRepo struct{}

func (emptyRepo) List(context.Context, *schema.Descriptor, storage.ListOptions) ([]schema.Entity, error) {
	return nil, nil
}

func (emptyRepo) Count(context.Context, *schema.Descriptor, ...storage.Filter) (int64, error) {
	return 0, nil
}

func (emptyRepo) Get(context.Context, *schema.Descriptor, int64) (schema.Entity, error) {
	return nil, storage.ErrNotFound
}

func TestRole(t *testing.T) {
	tests := []struct {
		role      Role
		suffix    string
		namespace string
		view      bool
	}{
		{ListView, "ListView", "views", true},
		{DetailView, "DetailView", "views", true},
		{CreateView, "CreateView", "views", true},
		{UpdateView, "UpdateView", "views", true},
		{Form, "Form", "forms", false},
	}
	for _, tt := range tests {
		t.Run(tt.suffix, func(t *testing.T) {
			assert.Equal(t, tt.suffix, tt.role.Suffix())
			assert.Equal(t, tt.suffix, tt.role.String())
			assert.Equal(t, tt.namespace, tt.role.Namespace())
			assert.Equal(t, tt.view, tt.role.IsView())
		})
	}
	assert.Equal(t, "Role(9)", Role(9).String())
}

func TestOverrideName(t *testing.T) {
	assert.Equal(t, "trading_insights.views.ScenarioListView", OverrideName("trading_insights", "Scenario", ListView))
	assert.Equal(t, "trading_insights.forms.ScenarioForm", OverrideName("trading_insights", "Scenario", Form))
}

func TestResolveDefaults(t *testing.T) {
	r := New(testutil.NewTestLogger(t))

	for _, role := range Roles {
		t.Run(role.String(), func(t *testing.T) {
			res, err := r.Resolve(scenarioDescriptor, role)
			require.NoError(t, err)
			assert.False(t, res.Override)
			assert.Equal(t, "Generic"+role.Suffix(), res.Name)
			assert.Equal(t, "trading_insights.scenario", res.Entity)
			assert.Equal(t, role, res.Role)
		})
	}

	deps := views.Deps{Repo: emptyRepo{}}
	list, _ := r.Resolve(scenarioDescriptor, ListView)
	assert.IsType(t, &views.List{}, list.NewView(deps))
	detail, _ := r.Resolve(scenarioDescriptor, DetailView)
	assert.IsType(t, &views.Detail{}, detail.NewView(deps))
	create, _ := r.Resolve(scenarioDescriptor, CreateView)
	assert.IsType(t, &views.Create{}, create.NewView(deps))
	update, _ := r.Resolve(scenarioDescriptor, UpdateView)
	assert.IsType(t, &views.Update{}, update.NewView(deps))
	form, _ := r.Resolve(scenarioDescriptor, Form)
	assert.IsType(t, &forms.Generic{}, form.NewForm(forms.ActionCreate))
}

func TestDefaultListRendersEmptyCollection(t *testing.T) {
	r := New(testutil.NewTestLogger(t))
	res, err := r.Resolve(scenarioDescriptor, ListView)
	require.NoError(t, err)

	h := res.NewView(views.Deps{Repo: emptyRepo{}})
	list, ok := h.(*views.List)
	require.True(t, ok)

	cols := list.Descriptor.ListDisplayFields()
	require.Len(t, cols, 2)
	assert.Equal(t, "name", cols[0].Name)
	assert.Equal(t, "account", cols[1].Name)

	page, err := list.Fetch(httptest.NewRequest(http.MethodGet, "/trading_insights/scenario/", nil))
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 1, page.Number)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/trading_insights/scenario/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<tr>")
}

func TestResolveOverride(t *testing.T) {
	r := New(testutil.NewTestLogger(t))
	r.OverrideView("trading_insights", "ScenarioListView", func(d views.Deps) (http.Handler, error) {
		return &ScenarioListView{List: views.NewList(d)}, nil
	})

	res, err := r.Resolve(scenarioDescriptor, ListView)
	require.NoError(t, err)
	assert.True(t, res.Override)
	assert.Equal(t, "ScenarioListView", res.Name)
	assert.IsType(t, &ScenarioListView{}, res.NewView(views.Deps{Repo: emptyRepo{}}))

	// other roles keep their defaults
	detail, err := r.Resolve(scenarioDescriptor, DetailView)
	require.NoError(t, err)
	assert.False(t, detail.Override)

	// overrides of another app are not picked up
	other := New(testutil.NewTestLogger(t))
	other.OverrideView("accounting", "ScenarioListView", func(d views.Deps) (http.Handler, error) {
		return &ScenarioListView{List: views.NewList(d)}, nil
	})
	res, err = other.Resolve(scenarioDescriptor, ListView)
	require.NoError(t, err)
	assert.False(t, res.Override)
}

type scenarioForm struct {
	*forms.Generic
}

func TestResolveFormOverride(t *testing.T) {
	r := New(testutil.NewTestLogger(t))
	r.OverrideForm("trading_insights", "ScenarioForm", func(desc *schema.Descriptor, action forms.Action) (forms.Form, error) {
		return scenarioForm{Generic: forms.NewGeneric(desc, action, "name")}, nil
	})

	res, err := r.Resolve(scenarioDescriptor, Form)
	require.NoError(t, err)
	assert.True(t, res.Override)
	assert.Equal(t, "ScenarioForm", res.Name)

	f := res.NewForm(forms.ActionUpdate)
	require.IsType(t, scenarioForm{}, f)
	assert.Len(t, f.Fields(), 1)
	assert.Equal(t, forms.ActionUpdate, f.Action())
}

func TestFailingOverrideFallsBack(t *testing.T) {
	tests := []struct {
		name string
		view views.Factory
		form forms.Factory
	}{
		{
			name: "error",
			view: func(views.Deps) (http.Handler, error) { return nil, errors.New("broken") },
			form: func(*schema.Descriptor, forms.Action) (forms.Form, error) { return nil, errors.New("broken") },
		},
		{
			name: "panic",
			view: func(views.Deps) (http.Handler, error) { panic("boom") },
			form: func(*schema.Descriptor, forms.Action) (forms.Form, error) { panic("boom") },
		},
		{
			name: "nil handler",
			view: func(views.Deps) (http.Handler, error) { return nil, nil },
			form: func(*schema.Descriptor, forms.Action) (forms.Form, error) { return nil, nil },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(testutil.NewTestLogger(t))
			r.OverrideView("trading_insights", "ScenarioListView", tt.view)
			r.OverrideForm("trading_insights", "ScenarioForm", tt.form)

			list, err := r.Resolve(scenarioDescriptor, ListView)
			require.NoError(t, err)
			assert.True(t, list.Override)
			assert.NotPanics(t, func() {
				assert.IsType(t, &views.List{}, list.NewView(views.Deps{Repo: emptyRepo{}}))
			})

			form, err := r.Resolve(scenarioDescriptor, Form)
			require.NoError(t, err)
			assert.NotPanics(t, func() {
				assert.IsType(t, &forms.Generic{}, form.NewForm(forms.ActionCreate))
			})
		})
	}
}

func TestResolveConfigurationErrors(t *testing.T) {
	r := New(nil)

	_, err := r.Resolve(nil, ListView)
	assert.ErrorIs(t, err, schema.ErrInvalidDescriptor)

	noFields := &schema.Descriptor{App: "trading_insights", Name: "Empty", New: scenarioDescriptor.New}
	_, err = r.Resolve(noFields, DetailView)
	assert.ErrorIs(t, err, schema.ErrInvalidDescriptor)

	badList := *scenarioDescriptor
	badList.ListDisplay = []string{"missing"}
	_, err = r.Resolve(&badList, ListView)
	assert.ErrorIs(t, err, schema.ErrInvalidDescriptor)

	_, err = r.Resolve(scenarioDescriptor, Role(42))
	assert.ErrorIs(t, err, ErrUnknownRole)

	_, err = r.ResolveAll(nil)
	assert.ErrorIs(t, err, schema.ErrInvalidDescriptor)
}

func TestRegistrationInvalidatesCache(t *testing.T) {
	r := New(testutil.NewTestLogger(t))

	before, err := r.Resolve(scenarioDescriptor, ListView)
	require.NoError(t, err)
	require.False(t, before.Override)

	r.OverrideView("trading_insights", "ScenarioListView", func(d views.Deps) (http.Handler, error) {
		return &ScenarioListView{List: views.NewList(d)}, nil
	})

	after, err := r.Resolve(scenarioDescriptor, ListView)
	require.NoError(t, err)
	assert.True(t, after.Override)
	assert.Equal(t, []string{"trading_insights.views.ScenarioListView"}, r.Overrides())
}

func TestResolveAll(t *testing.T) {
	r := New(nil)
	all, err := r.ResolveAll(scenarioDescriptor)
	require.NoError(t, err)
	assert.Len(t, all, len(Roles))
	for role, res := range all {
		assert.Equal(t, role, res.Role)
	}
}

func TestConcurrentResolve(t *testing.T) {
	r := New(nil)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%4 == 0 {
				r.Invalidate()
			}
			res, err := r.Resolve(scenarioDescriptor, Roles[i%len(Roles)])
			assert.NoError(t, err)
			assert.False(t, res.Override)
		}(i)
	}
	wg.Wait()
}
