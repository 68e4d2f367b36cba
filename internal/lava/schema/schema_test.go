package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type embeddedID struct {
	ID int64 `field:"id"`
}

type widget struct {
	embeddedID
	Name      string     `field:"name"`
	Kind      string     `field:"kind"`
	Weight    float64    `field:"weight"`
	Count     int64      `field:"count"`
	Active    bool       `field:"active"`
	OwnerID   *int64     `field:"owner"`
	MadeOn    *time.Time `field:"made_on"`
	UpdatedAt time.Time  `field:"updated_at"`
	internal  string
}

var widgetDescriptor = &Descriptor{
	App:         "shop",
	Name:        "Widget",
	VerboseName: "widget",
	Fields: []Field{
		{Name: "id", Kind: KindInt},
		{Name: "name", Label: "Name", Kind: KindString, Editable: true, Required: true},
		{Name: "kind", Kind: KindChoice, Editable: true, Choices: []Choice{{"a", "Alpha"}, {"b", "Beta"}}},
		{Name: "weight", Kind: KindDecimal, Editable: true, Places: 3},
		{Name: "count", Kind: KindInt, Editable: true},
		{Name: "active", Kind: KindBool, Editable: true},
		{Name: "owner", Kind: KindForeignKey, Related: "shop.owner", Editable: true, Nullable: true},
		{Name: "made_on", Kind: KindDate, Editable: true, Nullable: true},
		{Name: "updated_at", Kind: KindDateTime},
	},
	ListDisplay: []string{"name", "kind"},
	Ordering:    []string{"-id"},
	New:         func() Entity { return &widget{} },
}

func (w *widget) Descriptor() *Descriptor { return widgetDescriptor }
func (w *widget) PK() int64 {
	if w == nil {
		return 0
	}
	return w.ID
}
func (w *widget) SetPK(id int64) { w.ID = id }
func (w *widget) String() string { return w.Name }

func TestDescriptorNaming(t *testing.T) {
	d := widgetDescriptor
	assert.Equal(t, "shop.widget", d.Key())
	assert.Equal(t, "shop_widget", d.Table())
	assert.Equal(t, "/shop/widget/", d.ListURL())
	assert.Equal(t, "/shop/widget/create/", d.CreateURL())
	assert.Equal(t, "/shop/widget/12/", d.DetailURL(12))
	assert.Equal(t, "/shop/widget/12/update/", d.UpdateURL(12))
	assert.Equal(t, "widgets", d.VerbosePlural())
}

func TestDescriptorFieldSets(t *testing.T) {
	d := widgetDescriptor
	assert.Equal(t, []string{"name", "kind", "weight", "count", "active", "owner", "made_on"}, d.EditableFields())

	cols := d.ListDisplayFields()
	require.Len(t, cols, 2)
	assert.Equal(t, "name", cols[0].Name)

	bare := *d
	bare.ListDisplay = nil
	assert.Len(t, bare.ListDisplayFields(), len(d.Fields))
}

func TestDescriptorValidate(t *testing.T) {
	require.NoError(t, widgetDescriptor.Validate())

	tests := []struct {
		name   string
		mutate func(d *Descriptor)
	}{
		{"missing app", func(d *Descriptor) { d.App = "" }},
		{"no fields", func(d *Descriptor) { d.Fields = nil }},
		{"no factory", func(d *Descriptor) { d.New = nil }},
		{"unknown list display", func(d *Descriptor) { d.ListDisplay = []string{"ghost"} }},
		{"unknown ordering", func(d *Descriptor) { d.Ordering = []string{"-ghost"} }},
		{"duplicate field", func(d *Descriptor) { d.Fields = append(d.Fields, Field{Name: "name"}) }},
		{"untagged field", func(d *Descriptor) { d.Fields = append(d.Fields, Field{Name: "internal"}) }},
		{"choice without choices", func(d *Descriptor) {
			d.Fields = append([]Field{}, d.Fields...)
			d.Fields[2].Choices = nil
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := *widgetDescriptor
			tt.mutate(&d)
			err := d.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidDescriptor)
		})
	}
}

func TestAssignParsesByKind(t *testing.T) {
	w := &widget{}
	d := widgetDescriptor
	field := func(name string) Field {
		f, ok := d.Field(name)
		require.True(t, ok)
		return f
	}

	require.NoError(t, Assign(w, field("name"), "  Gear "))
	require.NoError(t, Assign(w, field("kind"), "b"))
	require.NoError(t, Assign(w, field("weight"), "1,25"))
	require.NoError(t, Assign(w, field("count"), "3"))
	require.NoError(t, Assign(w, field("active"), "on"))
	require.NoError(t, Assign(w, field("owner"), "9"))
	require.NoError(t, Assign(w, field("made_on"), "2024-03-05"))

	assert.Equal(t, "Gear", w.Name)
	assert.Equal(t, "b", w.Kind)
	assert.InDelta(t, 1.25, w.Weight, 1e-9)
	assert.Equal(t, int64(3), w.Count)
	assert.True(t, w.Active)
	require.NotNil(t, w.OwnerID)
	assert.Equal(t, int64(9), *w.OwnerID)
	require.NotNil(t, w.MadeOn)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), *w.MadeOn)

	require.NoError(t, Assign(w, field("owner"), ""))
	assert.Nil(t, w.OwnerID)
	require.NoError(t, Assign(w, field("active"), ""))
	assert.False(t, w.Active)
}

func TestAssignRejectsBadInput(t *testing.T) {
	w := &widget{}
	d := widgetDescriptor
	for name, raw := range map[string]string{
		"kind":    "z",
		"count":   "three",
		"weight":  "heavy",
		"made_on": "05/03/2024",
	} {
		f, _ := d.Field(name)
		assert.Error(t, Assign(w, f, raw), name)
	}
}

func TestDisplay(t *testing.T) {
	made := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	w := &widget{Name: "", Kind: "a", Weight: 2, Active: true, MadeOn: &made}
	d := widgetDescriptor
	show := func(name string) string {
		f, _ := d.Field(name)
		return Display(w, f)
	}

	assert.Equal(t, Empty, show("name"))
	assert.Equal(t, "Alpha", show("kind"))
	assert.Equal(t, "2.000", show("weight"))
	assert.Equal(t, "Yes", show("active"))
	assert.Equal(t, Empty, show("owner"))
	assert.Equal(t, "05/03/2024", show("made_on"))
	assert.Equal(t, Empty, show("updated_at"))
	assert.Equal(t, Empty, Display(w, Field{Name: "ghost"}))
}

func TestFormValue(t *testing.T) {
	made := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	w := &widget{Weight: 0.5, MadeOn: &made, Active: true}
	d := widgetDescriptor
	f, _ := d.Field("weight")
	assert.Equal(t, "0.5", FormValue(w, f))
	f, _ = d.Field("made_on")
	assert.Equal(t, "2024-03-05", FormValue(w, f))
	f, _ = d.Field("owner")
	assert.Equal(t, "", FormValue(w, f))
	f, _ = d.Field("active")
	assert.Equal(t, "on", FormValue(w, f))
}

func TestPointersAndValues(t *testing.T) {
	owner := int64(4)
	w := &widget{Name: "x", OwnerID: &owner}
	w.ID = 2

	vals, err := Values(w, []string{"id", "name", "owner", "made_on"})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(2), "x", int64(4), nil}, vals)

	ptrs, err := Pointers(w, []string{"id", "owner"})
	require.NoError(t, err)
	*(ptrs[0].(*int64)) = 10
	assert.Equal(t, int64(10), w.ID)
	_, ok := ptrs[1].(**int64)
	assert.True(t, ok)

	_, err = Values(w, []string{"ghost"})
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestSetConvertsNumbers(t *testing.T) {
	w := &widget{}
	require.NoError(t, Set(w, "count", 7))
	assert.Equal(t, int64(7), w.Count)
	assert.Error(t, Set(w, "name", 65))
}
