package schema

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Empty is shown for fields that hold no value.
const Empty = "-----"

// Input and display layouts for temporal fields.
const (
	DateInputLayout       = "2006-01-02"
	DateTimeInputLayout   = "2006-01-02T15:04"
	DateDisplayLayout     = "02/01/2006"
	DateTimeDisplayLayout = "02/01/2006 15:04"
)

// ErrUnknownField is returned when an entity has no field with the given name.
var ErrUnknownField = errors.New("unknown field")

var (
	indexMu    sync.RWMutex
	indexCache = map[reflect.Type]map[string][]int{}
)

// indexFor maps `field:"name"` tags to struct field index paths, walking
// embedded structs.
func indexFor(e Entity) (map[string][]int, error) {
	if e == nil {
		return nil, errors.New("nil entity")
	}
	t := reflect.TypeOf(e)
	if t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("entity %T must be a pointer to struct", e)
	}

	indexMu.RLock()
	idx, ok := indexCache[t]
	indexMu.RUnlock()
	if ok {
		return idx, nil
	}

	idx = map[string][]int{}
	collect(t.Elem(), nil, idx)

	indexMu.Lock()
	indexCache[t] = idx
	indexMu.Unlock()
	return idx, nil
}

func collect(t reflect.Type, prefix []int, idx map[string][]int) {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		path := append(append([]int{}, prefix...), i)
		if name, ok := sf.Tag.Lookup("field"); ok && name != "-" {
			if _, dup := idx[name]; !dup {
				idx[name] = path
			}
			continue
		}
		if sf.Anonymous && sf.Type.Kind() == reflect.Struct {
			collect(sf.Type, path, idx)
		}
	}
}

func lookup(e Entity, name string) (reflect.Value, error) {
	idx, err := indexFor(e)
	if err != nil {
		return reflect.Value{}, err
	}
	path, ok := idx[name]
	if !ok {
		return reflect.Value{}, fmt.Errorf("%w %q on %T", ErrUnknownField, name, e)
	}
	return reflect.ValueOf(e).Elem().FieldByIndex(path), nil
}

// Get returns the value of the named field. Nil pointers yield nil.
func Get(e Entity, name string) (any, error) {
	v, err := lookup(e, name)
	if err != nil {
		return nil, err
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, nil
		}
		return v.Elem().Interface(), nil
	}
	return v.Interface(), nil
}

// Set assigns value to the named field. A nil value clears the field.
func Set(e Entity, name string, value any) error {
	v, err := lookup(e, name)
	if err != nil {
		return err
	}
	if value == nil {
		v.Set(reflect.Zero(v.Type()))
		return nil
	}

	rv := reflect.ValueOf(value)
	switch {
	case rv.Type().AssignableTo(v.Type()):
		v.Set(rv)
	case v.Kind() == reflect.Pointer && rv.Type().AssignableTo(v.Type().Elem()):
		ptr := reflect.New(v.Type().Elem())
		ptr.Elem().Set(rv)
		v.Set(ptr)
	case convertible(rv.Type(), v.Type()):
		v.Set(rv.Convert(v.Type()))
	default:
		return fmt.Errorf("cannot assign %T to field %q of type %s", value, name, v.Type())
	}
	return nil
}

func convertible(from, to reflect.Type) bool {
	if !from.ConvertibleTo(to) {
		return false
	}
	if from.Kind() == to.Kind() {
		return true
	}
	return isNumeric(from.Kind()) && isNumeric(to.Kind())
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// Assign parses raw form input for f and stores it on e.
// An empty raw value clears the field.
func Assign(e Entity, f Field, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if f.Kind == KindBool {
			return Set(e, f.Name, false)
		}
		return Set(e, f.Name, nil)
	}

	switch f.Kind {
	case KindString, KindText, KindPassword:
		return Set(e, f.Name, raw)
	case KindChoice:
		if !f.HasChoice(raw) {
			return fmt.Errorf("%q is not a valid choice", raw)
		}
		return Set(e, f.Name, raw)
	case KindInt, KindForeignKey:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("%q is not a whole number", raw)
		}
		return Set(e, f.Name, n)
	case KindDecimal:
		n, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
		if err != nil {
			return fmt.Errorf("%q is not a number", raw)
		}
		return Set(e, f.Name, n)
	case KindBool:
		switch strings.ToLower(raw) {
		case "on", "true", "1", "yes":
			return Set(e, f.Name, true)
		default:
			return Set(e, f.Name, false)
		}
	case KindDate:
		t, err := time.Parse(DateInputLayout, raw)
		if err != nil {
			return fmt.Errorf("%q is not a valid date", raw)
		}
		return Set(e, f.Name, t)
	case KindDateTime:
		t, err := parseDateTime(raw)
		if err != nil {
			return fmt.Errorf("%q is not a valid date and time", raw)
		}
		return Set(e, f.Name, t)
	default:
		return fmt.Errorf("unsupported field kind %s", f.Kind)
	}
}

func parseDateTime(raw string) (time.Time, error) {
	for _, layout := range []string{DateTimeInputLayout, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02 15:04", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unrecognized layout")
}

// Pointers returns scan destinations for the named fields, in order.
func Pointers(e Entity, names []string) ([]any, error) {
	out := make([]any, len(names))
	for i, name := range names {
		v, err := lookup(e, name)
		if err != nil {
			return nil, err
		}
		out[i] = v.Addr().Interface()
	}
	return out, nil
}

// Values returns the named field values for storage, in order.
func Values(e Entity, names []string) ([]any, error) {
	out := make([]any, len(names))
	for i, name := range names {
		v, err := Get(e, name)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// FormValue renders the named field as an HTML input value.
func FormValue(e Entity, f Field) string {
	v, err := Get(e, f.Name)
	if err != nil || v == nil || f.Kind == KindPassword {
		return ""
	}
	switch x := v.(type) {
	case time.Time:
		if x.IsZero() {
			return ""
		}
		if f.Kind == KindDate {
			return x.Format(DateInputLayout)
		}
		return x.Format(DateTimeInputLayout)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if x {
			return "on"
		}
		return ""
	case int64:
		if f.Kind == KindForeignKey && x == 0 {
			return ""
		}
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprint(v)
	}
}

// Display renders the named field for list and detail pages.
// Missing and empty values render as Empty.
func Display(e Entity, f Field) string {
	v, err := Get(e, f.Name)
	if err != nil || v == nil {
		return Empty
	}
	switch x := v.(type) {
	case string:
		if x == "" {
			return Empty
		}
		if f.Kind == KindPassword {
			return "********"
		}
		if f.Kind == KindChoice {
			return f.ChoiceLabel(x)
		}
		return x
	case time.Time:
		if x.IsZero() {
			return Empty
		}
		if f.Kind == KindDate {
			return x.Format(DateDisplayLayout)
		}
		return x.Format(DateTimeDisplayLayout)
	case float64:
		places := f.Places
		if places <= 0 {
			places = 2
		}
		return strconv.FormatFloat(x, 'f', places, 64)
	case bool:
		if x {
			return "Yes"
		}
		return "No"
	case int64:
		if f.Kind == KindForeignKey && x == 0 {
			return Empty
		}
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprint(v)
	}
}
