// Package markup writes small HTML fragments for templ components built with
// templ.ComponentFunc.
package markup

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// Writer accumulates the first write error so callers can chain writes and
// check once.
type Writer struct {
	w   io.Writer
	err error
}

// New wraps w.
func New(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Raw writes trusted markup.
func (w *Writer) Raw(s string) *Writer {
	if w.err == nil {
		_, w.err = io.WriteString(w.w, s)
	}
	return w
}

// Rawf writes trusted markup built with fmt.Sprintf. Arguments are not escaped.
func (w *Writer) Rawf(format string, args ...any) *Writer {
	return w.Raw(fmt.Sprintf(format, args...))
}

// Text writes escaped text.
func (w *Writer) Text(s string) *Writer {
	return w.Raw(templ.EscapeString(s))
}

// Open writes a start tag. attrs are name/value pairs; values are escaped.
func (w *Writer) Open(tag string, attrs ...string) *Writer {
	w.Raw("<" + tag)
	for i := 0; i+1 < len(attrs); i += 2 {
		w.Raw(" " + attrs[i] + `="` + templ.EscapeString(attrs[i+1]) + `"`)
	}
	return w.Raw(">")
}

// Close writes an end tag.
func (w *Writer) Close(tag string) *Writer {
	return w.Raw("</" + tag + ">")
}

// Elem writes a start tag, escaped text and the end tag.
func (w *Writer) Elem(tag, text string, attrs ...string) *Writer {
	return w.Open(tag, attrs...).Text(text).Close(tag)
}

// Component renders a nested component.
func (w *Writer) Component(ctx context.Context, c templ.Component) *Writer {
	if w.err == nil && c != nil {
		w.err = c.Render(ctx, w.w)
	}
	return w
}

// Err returns the first write error.
func (w *Writer) Err() error {
	return w.err
}

// Classes joins non-empty class names.
func Classes(names ...string) string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return strings.Join(out, " ")
}

// Empty is a component rendering nothing.
var Empty = templ.ComponentFunc(func(context.Context, io.Writer) error { return nil })
