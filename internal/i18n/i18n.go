// Package i18n resolves the request language and translates user-facing
// messages. Lookups fall back to English, then to the caller's fallback,
// then to the key itself.
package i18n

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

const (
	// LangParam is the query parameter used to select a language.
	LangParam = "lang"
	// LangCookieName stores the user's language preference.
	LangCookieName = "work4u_lang"
)

var supported = []language.Tag{language.English, language.French, language.Spanish}

var matcher = language.NewMatcher(supported)

//go:embed locales/*.yaml
var localesFS embed.FS

// Supported returns the list of supported language tags.
func Supported() []language.Tag {
	return append([]language.Tag(nil), supported...)
}

// Default returns the default language tag.
func Default() language.Tag {
	return language.English
}

// ParseTag maps a language string onto a supported tag.
func ParseTag(value string) (language.Tag, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Default(), false
	}
	tag, err := language.Parse(value)
	if err != nil {
		return Default(), false
	}
	matched, _, confidence := matcher.Match(tag)
	if confidence == language.No {
		return Default(), false
	}
	return base(matched), true
}

// ResolveTag determines the best language tag for the request.
// The bool indicates whether the lang query param should be persisted as a cookie.
func ResolveTag(r *http.Request) (language.Tag, bool) {
	if r == nil {
		return Default(), false
	}

	if tag, ok := ParseTag(r.URL.Query().Get(LangParam)); ok {
		return tag, true
	}

	if cookie, err := r.Cookie(LangCookieName); err == nil {
		if tag, ok := ParseTag(cookie.Value); ok {
			return tag, false
		}
	}

	if accept := strings.TrimSpace(r.Header.Get("Accept-Language")); accept != "" {
		if tags, _, err := language.ParseAcceptLanguage(accept); err == nil && len(tags) > 0 {
			matched, _, confidence := matcher.Match(tags...)
			if confidence != language.No {
				return base(matched), false
			}
		}
	}

	return Default(), false
}

// SetLanguageCookie persists the selected language on the response.
func SetLanguageCookie(w http.ResponseWriter, tag language.Tag) {
	http.SetCookie(w, &http.Cookie{
		Name:     LangCookieName,
		Value:    tag.String(),
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		SameSite: http.SameSiteLaxMode,
	})
}

// base drops regional and extension subtags so "fr-CA" and "fr-u-rg-cazzzz"
// both become "fr".
func base(tag language.Tag) language.Tag {
	b, _ := tag.Base()
	return language.Make(b.String())
}

// Catalog holds the messages of every supported language.
type Catalog struct {
	messages map[string]map[string]string
}

// LoadCatalog reads the embedded locale files.
func LoadCatalog() (*Catalog, error) {
	return LoadCatalogFS(localesFS)
}

// LoadCatalogFS reads locales/<lang>.yaml files from fsys.
func LoadCatalogFS(fsys fs.FS) (*Catalog, error) {
	paths, err := fs.Glob(fsys, "locales/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}

	c := &Catalog{messages: make(map[string]map[string]string)}
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", p, err)
		}
		msgs := map[string]string{}
		if err := yaml.Unmarshal(data, &msgs); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", p, err)
		}
		c.messages[strings.TrimSuffix(path.Base(p), ".yaml")] = msgs
	}

	if _, ok := c.messages[Default().String()]; !ok {
		return nil, fmt.Errorf("missing %s catalog", Default())
	}
	return c, nil
}

// Translator translates keys for one language.
type Translator struct {
	tag     language.Tag
	dict    map[string]string
	english map[string]string
}

func (c *Catalog) Translator(tag language.Tag) Translator {
	lang := base(tag).String()
	return Translator{
		tag:     base(tag),
		dict:    c.messages[lang],
		english: c.messages[Default().String()],
	}
}

func (t Translator) Tag() language.Tag {
	return t.tag
}

// T returns the message for key. The first fallback is used when neither
// the language nor English define the key.
func (t Translator) T(key string, fallback ...string) string {
	if msg, ok := t.dict[key]; ok {
		return msg
	}
	if msg, ok := t.english[key]; ok {
		return msg
	}
	if len(fallback) > 0 && fallback[0] != "" {
		return fallback[0]
	}
	return key
}

type tagKey struct{}

// WithTag returns a copy of ctx carrying the request language.
func WithTag(ctx context.Context, tag language.Tag) context.Context {
	return context.WithValue(ctx, tagKey{}, tag)
}

// TagFrom returns the language stored by Middleware, or the default.
func TagFrom(ctx context.Context) language.Tag {
	if tag, ok := ctx.Value(tagKey{}).(language.Tag); ok {
		return tag
	}
	return Default()
}

// Middleware resolves the request language and stores it in the context,
// persisting an explicit lang query parameter as a cookie.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tag, persist := ResolveTag(r)
		if persist {
			SetLanguageCookie(w, tag)
		}
		next.ServeHTTP(w, r.WithContext(WithTag(r.Context(), tag)))
	})
}
