package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

//go:embed locales/*.json
var localeFS embed.FS

// Params carries interpolation values referenced as {{name}} in messages.
type Params map[string]string

// Translator resolves user-facing labels from embedded locale catalogs.
// Lookups fall back to the fallback language and finally to the key itself,
// so a missing translation never breaks rendering.
type Translator struct {
	catalogs map[string]map[string]string
	fallback string
}

// New loads all embedded catalogs. fallback selects the language used when a
// key is missing from the requested one (the original ships en, ja and vi).
func New(fallback string) (*Translator, error) {
	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("i18n: read locales: %w", err)
	}
	catalogs := make(map[string]map[string]string, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		lang := strings.TrimSuffix(name, ".json")
		if lang == name {
			continue
		}
		data, err := localeFS.ReadFile("locales/" + name)
		if err != nil {
			return nil, fmt.Errorf("i18n: read %s: %w", name, err)
		}
		catalog := map[string]string{}
		if err := json.Unmarshal(data, &catalog); err != nil {
			return nil, fmt.Errorf("i18n: parse %s: %w", name, err)
		}
		catalogs[lang] = catalog
	}
	if len(catalogs) == 0 {
		return nil, fmt.Errorf("i18n: no locale catalogs embedded")
	}
	if fallback == "" {
		fallback = "en"
	}
	if _, ok := catalogs[fallback]; !ok {
		return nil, fmt.Errorf("i18n: fallback language %q not available", fallback)
	}
	return &Translator{catalogs: catalogs, fallback: fallback}, nil
}

// Languages lists available catalog languages, sorted.
func (t *Translator) Languages() []string {
	langs := make([]string, 0, len(t.catalogs))
	for lang := range t.catalogs {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// T resolves key for the given language, interpolating params.
func (t *Translator) T(lang, key string, params Params) string {
	if msg, ok := t.lookup(lang, key); ok {
		return interpolate(msg, params)
	}
	if msg, ok := t.lookup(t.fallback, key); ok {
		return interpolate(msg, params)
	}
	return key
}

func (t *Translator) lookup(lang, key string) (string, bool) {
	catalog, ok := t.catalogs[normaliseLang(lang)]
	if !ok {
		return "", false
	}
	msg, ok := catalog[key]
	return msg, ok
}

func normaliseLang(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if idx := strings.IndexAny(lang, "-_"); idx > 0 {
		lang = lang[:idx]
	}
	return lang
}

func interpolate(msg string, params Params) string {
	if len(params) == 0 || !strings.Contains(msg, "{{") {
		return msg
	}
	for name, value := range params {
		msg = strings.ReplaceAll(msg, "{{"+name+"}}", value)
	}
	return msg
}
