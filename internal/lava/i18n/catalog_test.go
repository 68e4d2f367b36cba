package i18n

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedLocales(t *testing.T) {
	b := Default()
	assert.Equal(t, []string{"en-US", "fr-FR"}, b.Locales())
}

func TestLocalizerFormats(t *testing.T) {
	en := Default().Localizer("en-US")
	fr := Default().Localizer("fr-FR")

	assert.Equal(t, "Symbol created successfully.", en.T("lava.model.create_success", "Symbol"))
	assert.Equal(t, "Symbole créé avec succès.", fr.T("lava.model.create_success", "Symbole"))
	assert.Equal(t, "Tableau de bord", fr.T("lava.menu.dashboard"))
	assert.Equal(t, "Ajouter", fr.T("lava.form.submit_create"))
}

func TestLocalizerFallsBackToBase(t *testing.T) {
	l := Default().Localizer("de-DE")
	assert.Equal(t, BaseLocale, l.Locale())
	assert.Equal(t, "Dashboard", l.T("lava.menu.dashboard"))

	var nilLocalizer *Localizer
	assert.Equal(t, "Dashboard", nilLocalizer.T("lava.menu.dashboard"))
}

func TestLoadFromFS_MissingKeysUseBase(t *testing.T) {
	fsys := fstest.MapFS{
		"locales/en-US/app.yaml": {Data: []byte("locale: en-US\nnamespace: app\nmessages:\n  greet: \"Hello %s\"\n  bye: \"Bye\"\n")},
		"locales/fr-FR/app.yaml": {Data: []byte("locale: fr-FR\nnamespace: app\nmessages:\n  greet: \"Bonjour %s\"\n")},
	}
	b, err := LoadFromFS(fsys)
	require.NoError(t, err)

	fr := b.Localizer("fr-FR")
	assert.Equal(t, "Bonjour Ada", fr.T("greet", "Ada"))
	assert.Equal(t, "Bye", fr.T("bye"))
}

func TestLoadFromFS_Errors(t *testing.T) {
	tests := []struct {
		name string
		fsys fstest.MapFS
	}{
		{"empty", fstest.MapFS{}},
		{"no base locale", fstest.MapFS{
			"locales/fr-FR/app.yaml": {Data: []byte("locale: fr-FR\nnamespace: app\nmessages:\n  a: \"b\"\n")},
		}},
		{"locale mismatch", fstest.MapFS{
			"locales/en-US/app.yaml": {Data: []byte("locale: fr-FR\nnamespace: app\nmessages:\n  a: \"b\"\n")},
		}},
		{"namespace mismatch", fstest.MapFS{
			"locales/en-US/app.yaml": {Data: []byte("locale: en-US\nnamespace: other\nmessages:\n  a: \"b\"\n")},
		}},
		{"duplicate key across namespaces", fstest.MapFS{
			"locales/en-US/a.yaml": {Data: []byte("locale: en-US\nnamespace: a\nmessages:\n  k: \"1\"\n")},
			"locales/en-US/b.yaml": {Data: []byte("locale: en-US\nnamespace: b\nmessages:\n  k: \"2\"\n")},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFS(tt.fsys)
			assert.Error(t, err)
		})
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		header   string
		fallback string
		want     string
	}{
		{"fr-FR,fr;q=0.9,en;q=0.8", "en-US", "fr-FR"},
		{"fr-CA", "en-US", "fr-FR"},
		{"en-GB,en;q=0.9", "fr-FR", "en-US"},
		{"de-DE", "fr-FR", "fr-FR"},
		{"", "fr-FR", "fr-FR"},
		{"zz", "en-US", "en-US"},
		{"de-DE", "es-ES", "en-US"},
	}
	for _, tt := range tests {
		t.Run(tt.header+"/"+tt.fallback, func(t *testing.T) {
			assert.Equal(t, tt.want, Default().Match(tt.header, tt.fallback))
		})
	}
}
