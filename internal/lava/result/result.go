// Package result provides the outcome value returned by every mutating
// operation of the admin layer (create, update, delete, validation).
//
// A Result is built once by one of the three factories (Success, Warning,
// Error) and is never modified afterwards: its fields are unexported and the
// accessors hand out copies. Callers inspect the disposition to render user
// feedback instead of special-casing Go errors.
package result

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Disposition is the three-way classification of an operation outcome.
type Disposition int

const (
	// DispositionSuccess marks a completed operation.
	DispositionSuccess Disposition = iota
	// DispositionWarning marks an operation that completed with caveats.
	DispositionWarning
	// DispositionError marks a rejected or failed operation.
	DispositionError
)

// String returns the tag used in serialized results and flash messages.
func (d Disposition) String() string {
	switch d {
	case DispositionSuccess:
		return "success"
	case DispositionWarning:
		return "warning"
	case DispositionError:
		return "error"
	default:
		return "unknown"
	}
}

// FieldError is one structured validation error.
// Field is empty for errors that apply to the whole object.
type FieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// Identified is implemented by payloads that carry a persistence identity.
// A zero PK means the payload has not been persisted yet.
type Identified interface {
	PK() int64
}

// Result is an immutable operation outcome.
type Result struct {
	disposition Disposition
	message     string
	payload     any
	errors      []FieldError
	errorCode   string
}

// Success builds a successful result.
func Success(message string, payload any) Result {
	return Result{
		disposition: DispositionSuccess,
		message:     message,
		payload:     payload,
	}
}

// Warning builds a result for an operation that completed with caveats.
func Warning(message string, payload any, errorCode string) Result {
	return Result{
		disposition: DispositionWarning,
		message:     message,
		payload:     payload,
		errorCode:   errorCode,
	}
}

// Error builds a failed result. errs may be nil.
func Error(message string, payload any, errs []FieldError, errorCode string) Result {
	return Result{
		disposition: DispositionError,
		message:     message,
		payload:     payload,
		errors:      cloneErrors(errs),
		errorCode:   errorCode,
	}
}

// Disposition returns the outcome classification.
func (r Result) Disposition() Disposition { return r.disposition }

// Tag returns the disposition as its serialized tag.
func (r Result) Tag() string { return r.disposition.String() }

// IsSuccess reports whether the operation succeeded.
func (r Result) IsSuccess() bool { return r.disposition == DispositionSuccess }

// IsWarning reports whether the operation completed with a warning.
func (r Result) IsWarning() bool { return r.disposition == DispositionWarning }

// IsError reports whether the operation failed.
func (r Result) IsError() bool { return r.disposition == DispositionError }

// Message returns the human-readable message.
func (r Result) Message() string { return r.message }

// Payload returns the subject of the operation, or nil.
func (r Result) Payload() any { return r.payload }

// Errors returns a copy of the structured errors.
func (r Result) Errors() []FieldError { return cloneErrors(r.errors) }

// ErrorCode returns the machine-readable code; always empty on success.
func (r Result) ErrorCode() string { return r.errorCode }

// ToStructured returns the serializable form of the result.
//
// errors and error_code are present only when the disposition is not
// success (errors is an empty list rather than nil). The payload is emitted
// as object_id when it exposes an identity, as object holding the raw value
// when it is a primitive or structured value, and as object holding its
// textual form otherwise.
func (r Result) ToStructured() map[string]any {
	out := map[string]any{
		"result":     r.Tag(),
		"is_success": r.IsSuccess(),
		"is_error":   r.IsError(),
		"is_warning": r.IsWarning(),
		"message":    r.message,
	}

	if !r.IsSuccess() {
		errs := cloneErrors(r.errors)
		if errs == nil {
			errs = []FieldError{}
		}
		out["errors"] = errs
		out["error_code"] = r.errorCode
	}

	if r.payload == nil {
		return out
	}

	switch p := r.payload.(type) {
	case Identified:
		if pk := p.PK(); pk != 0 {
			out["object_id"] = pk
		} else {
			out["object_id"] = nil
		}
	default:
		if isPlainValue(r.payload) {
			out["object"] = r.payload
		} else {
			out["object"] = fmt.Sprint(r.payload)
		}
	}

	return out
}

// MarshalJSON encodes the structured form.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.ToStructured())
}

// String implements fmt.Stringer.
func (r Result) String() string {
	if r.errorCode != "" {
		return fmt.Sprintf("%s [%s]: %s", r.Tag(), r.errorCode, r.message)
	}
	return fmt.Sprintf("%s: %s", r.Tag(), r.message)
}

func isPlainValue(v any) bool {
	switch reflect.TypeOf(v).Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.String,
		reflect.Map, reflect.Slice, reflect.Array:
		return true
	default:
		return false
	}
}

func cloneErrors(errs []FieldError) []FieldError {
	if errs == nil {
		return nil
	}
	out := make([]FieldError, len(errs))
	copy(out, errs)
	return out
}
