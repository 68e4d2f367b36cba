package markup_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiokaizen/bear-vision/internal/lava/markup"
)

func TestEscaping(t *testing.T) {
	tests := []struct {
		name  string
		write func(w *markup.Writer)
		want  string
	}{
		{
			name:  "text",
			write: func(w *markup.Writer) { w.Text(`<b>"EUR" & 'USD'</b>`) },
			want:  templ.EscapeString(`<b>"EUR" & 'USD'</b>`),
		},
		{
			name:  "attribute values",
			write: func(w *markup.Writer) { w.Open("a", "href", `/x?a=1&b="2"`).Close("a") },
			want:  `<a href="/x?a=1&amp;b=&#34;2&#34;"></a>`,
		},
		{
			name:  "element",
			write: func(w *markup.Writer) { w.Elem("td", "<script>", "class", "cell") },
			want:  `<td class="cell">&lt;script&gt;</td>`,
		},
		{
			name:  "raw is written as is",
			write: func(w *markup.Writer) { w.Raw("<hr>").Rawf("<p>%d</p>", 3) },
			want:  "<hr><p>3</p>",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := markup.New(&buf)
			tt.write(w)
			require.NoError(t, w.Err())
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

type failingWriter struct{ n int }

func (f *failingWriter) Write(p []byte) (int, error) {
	f.n++
	return 0, errors.New("closed")
}

func TestFirstErrorSticks(t *testing.T) {
	fw := &failingWriter{}
	w := markup.New(fw).Open("div").Text("x").Close("div")
	assert.EqualError(t, w.Err(), "closed")
	assert.Equal(t, 1, fw.n)
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	inner := templ.ComponentFunc(func(_ context.Context, out io.Writer) error {
		return markup.New(out).Elem("span", "inner").Err()
	})
	w := markup.New(&buf).Open("div").Component(context.Background(), inner).Component(context.Background(), nil).Close("div")
	require.NoError(t, w.Err())
	assert.Equal(t, "<div><span>inner</span></div>", buf.String())
}

func TestClasses(t *testing.T) {
	assert.Equal(t, "btn btn-primary", markup.Classes("btn", " ", "", "btn-primary "))
	assert.Empty(t, markup.Classes())
}
