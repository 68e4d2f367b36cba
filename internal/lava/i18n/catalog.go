// Package i18n loads the embedded message catalogs and hands out
// locale-bound localizers.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

// BaseLocale is the fallback locale; every key must exist in it.
const BaseLocale = "en-US"

//go:embed locales/*/*.yaml
var embeddedFS embed.FS

type catalogFile struct {
	Locale    string            `yaml:"locale"`
	Namespace string            `yaml:"namespace"`
	Messages  map[string]string `yaml:"messages"`
}

// Bundle holds every loaded locale.
type Bundle struct {
	locales map[string]map[string]string
	builder *catalog.Builder
}

var defaultBundle = mustLoadEmbedded()

// Default returns the process-wide embedded bundle.
func Default() *Bundle {
	return defaultBundle
}

// LoadEmbedded loads the catalogs compiled into the binary.
func LoadEmbedded() (*Bundle, error) {
	return LoadFromFS(embeddedFS)
}

// LoadFromFS loads locales/<locale>/<namespace>.yaml files from fsys.
func LoadFromFS(fsys fs.FS) (*Bundle, error) {
	paths, err := fs.Glob(fsys, "locales/*/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	sort.Strings(paths)

	b := &Bundle{locales: map[string]map[string]string{}}
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", p, err)
		}
		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", p, err)
		}
		if err := b.add(p, file); err != nil {
			return nil, err
		}
	}

	if _, ok := b.locales[BaseLocale]; !ok {
		return nil, fmt.Errorf("base locale %s is not defined in catalogs", BaseLocale)
	}
	if err := b.build(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Bundle) add(p string, file catalogFile) error {
	dirLocale := path.Base(path.Dir(p))
	fileNamespace := strings.TrimSuffix(path.Base(p), path.Ext(p))

	if file.Locale != dirLocale {
		return fmt.Errorf("catalog %s: locale %q must match path locale %q", p, file.Locale, dirLocale)
	}
	if file.Namespace != fileNamespace {
		return fmt.Errorf("catalog %s: namespace %q must match filename %q", p, file.Namespace, fileNamespace)
	}
	if len(file.Messages) == 0 {
		return fmt.Errorf("catalog %s: no messages", p)
	}

	msgs, ok := b.locales[file.Locale]
	if !ok {
		msgs = map[string]string{}
		b.locales[file.Locale] = msgs
	}
	for key, value := range file.Messages {
		key = strings.TrimSpace(key)
		if key == "" {
			return fmt.Errorf("catalog %s: blank message key", p)
		}
		if _, dup := msgs[key]; dup {
			return fmt.Errorf("catalog %s: duplicate key %q in locale %s", p, key, file.Locale)
		}
		msgs[key] = value
	}
	return nil
}

// build registers every locale, filling keys missing from a locale with the
// base locale text.
func (b *Bundle) build() error {
	base := b.locales[BaseLocale]
	b.builder = catalog.NewBuilder(catalog.Fallback(language.MustParse(BaseLocale)))

	for locale, msgs := range b.locales {
		tag, err := language.Parse(locale)
		if err != nil {
			return fmt.Errorf("parse locale tag %q: %w", locale, err)
		}
		for key, text := range base {
			if translated, ok := msgs[key]; ok {
				text = translated
			}
			if err := b.builder.SetString(tag, key, text); err != nil {
				return fmt.Errorf("register %s/%s: %w", locale, key, err)
			}
		}
		for key, text := range msgs {
			if _, inBase := base[key]; inBase {
				continue
			}
			if err := b.builder.SetString(tag, key, text); err != nil {
				return fmt.Errorf("register %s/%s: %w", locale, key, err)
			}
		}
	}
	return nil
}

// HasLocale reports whether locale was loaded.
func (b *Bundle) HasLocale(locale string) bool {
	_, ok := b.locales[locale]
	return ok
}

// Locales returns the loaded locale identifiers, sorted.
func (b *Bundle) Locales() []string {
	out := make([]string, 0, len(b.locales))
	for l := range b.locales {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Localizer returns a localizer for locale. Unknown locales use BaseLocale.
func (b *Bundle) Localizer(locale string) *Localizer {
	if !b.HasLocale(locale) {
		locale = BaseLocale
	}
	tag := language.MustParse(locale)
	return &Localizer{
		locale:  locale,
		printer: message.NewPrinter(tag, message.Catalog(b.builder)),
	}
}

// Match returns the loaded locale best matching an Accept-Language header.
// fallback is used when nothing matches; an unknown fallback becomes
// BaseLocale.
func (b *Bundle) Match(acceptLanguage, fallback string) string {
	if !b.HasLocale(fallback) {
		fallback = BaseLocale
	}
	desired, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(desired) == 0 {
		return fallback
	}

	locales := b.Locales()
	// the fallback goes first so that the matcher returns it on no match
	supported := []language.Tag{language.MustParse(fallback)}
	names := []string{fallback}
	for _, l := range locales {
		if l == fallback {
			continue
		}
		supported = append(supported, language.MustParse(l))
		names = append(names, l)
	}

	_, index, confidence := language.NewMatcher(supported).Match(desired...)
	if confidence == language.No {
		return fallback
	}
	return names[index]
}

// Localizer formats catalog messages for one locale.
type Localizer struct {
	locale  string
	printer *message.Printer
}

// Locale returns the locale messages are rendered in.
func (l *Localizer) Locale() string {
	if l == nil {
		return BaseLocale
	}
	return l.locale
}

// T formats the message registered under key. A nil Localizer renders in
// BaseLocale.
func (l *Localizer) T(key string, args ...any) string {
	if l == nil {
		return Default().Localizer(BaseLocale).T(key, args...)
	}
	return l.printer.Sprintf(key, args...)
}

func mustLoadEmbedded() *Bundle {
	b, err := LoadEmbedded()
	if err != nil {
		panic(err)
	}
	return b
}
