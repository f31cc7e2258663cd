package i18n

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestResolveTag(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		cookie  string
		accept  string
		want    language.Tag
		persist bool
	}{
		{name: "default", target: "/", want: language.English},
		{name: "query", target: "/?lang=fr", want: language.French, persist: true},
		{name: "query with region", target: "/?lang=es-MX", want: language.Spanish, persist: true},
		{name: "unsupported query falls through", target: "/?lang=xx", cookie: "es", want: language.Spanish},
		{name: "cookie", target: "/", cookie: "fr", want: language.French},
		{name: "accept language", target: "/", accept: "fr-CA,fr;q=0.9,en;q=0.8", want: language.French},
		{name: "unsupported accept", target: "/", accept: "ja", want: language.English},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: LangCookieName, Value: tt.cookie})
			}
			if tt.accept != "" {
				req.Header.Set("Accept-Language", tt.accept)
			}

			got, persist := ResolveTag(req)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.persist, persist)
		})
	}
}

func TestTranslatorFallbacks(t *testing.T) {
	catalog, err := LoadCatalogFS(fstest.MapFS{
		"locales/en.yaml": {Data: []byte("greeting: Hello\nonly.en: English only\n")},
		"locales/fr.yaml": {Data: []byte("greeting: Bonjour\n")},
	})
	require.NoError(t, err)

	fr := catalog.Translator(language.French)
	assert.Equal(t, "Bonjour", fr.T("greeting"))
	assert.Equal(t, "English only", fr.T("only.en"))
	assert.Equal(t, "fallback", fr.T("missing", "fallback"))
	assert.Equal(t, "missing", fr.T("missing"))

	es := catalog.Translator(language.Spanish)
	assert.Equal(t, "Hello", es.T("greeting"))
}

func TestEmbeddedCatalog(t *testing.T) {
	catalog, err := LoadCatalog()
	require.NoError(t, err)

	for _, tag := range Supported() {
		tr := catalog.Translator(tag)
		assert.NotEqual(t, "auth.signIn.error.generic", tr.T("auth.signIn.error.generic"), tag.String())
	}
	assert.Equal(t, "Mot de passe incorrect", catalog.Translator(language.French).T("auth.signIn.error.wrongPassword"))
}

func TestLoadCatalogRequiresEnglish(t *testing.T) {
	_, err := LoadCatalogFS(fstest.MapFS{
		"locales/fr.yaml": {Data: []byte("greeting: Bonjour\n")},
	})
	assert.Error(t, err)
}

func TestMiddlewarePersistsQueryLanguage(t *testing.T) {
	var got language.Tag
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = TagFrom(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?lang=es", nil))

	assert.Equal(t, language.Spanish, got)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, LangCookieName, cookies[0].Name)
	assert.Equal(t, "es", cookies[0].Value)
}
