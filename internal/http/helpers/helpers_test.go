package helpers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadJSON(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"bob","extra":1}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec := httptest.NewRecorder()
	require.True(t, ReadJSON(rec, req, &v))
	assert.Equal(t, "bob", v.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	assert.False(t, ReadJSON(rec, req, &v))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`name=bob`))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	assert.False(t, ReadJSON(rec, req, &v))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"`+strings.Repeat("a", MaxBodyBytes)+`"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	assert.False(t, ReadJSON(rec, req, &v))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestReadPlainOrJSONString(t *testing.T) {
	cases := map[string]string{
		"new-pass":          "new-pass",
		"  spaced \n":       "spaced",
		`"json-pass"`:       "json-pass",
		`"con \"comillas\""`: `con "comillas"`,
	}
	for body, want := range cases {
		rec := httptest.NewRecorder()
		got, ok := ReadPlainOrJSONString(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
		require.True(t, ok, body)
		assert.Equal(t, want, got)
	}

	rec := httptest.NewRecorder()
	_, ok := ReadPlainOrJSONString(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`"sin cerrar`)))
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCredentials(t *testing.T) {
	form := url.Values{"client_id": {" web "}, "client_secret": {"s"}, "username": {"bob"}, "password": {"pw"}}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	require.NoError(t, req.ParseForm())

	c := ClientCredentials(req)
	assert.Equal(t, Credentials{ID: "web", Secret: "s"}, c)
	u, ok := UserCredentials(req)
	require.True(t, ok)
	assert.Equal(t, "bob", u.ID)

	req.SetBasicAuth("basic-id", "basic-secret")
	c = ClientCredentials(req)
	assert.Equal(t, Credentials{ID: "basic-id", Secret: "basic-secret", Basic: true}, c)

	empty := httptest.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, empty.ParseForm())
	_, ok = UserCredentials(empty)
	assert.False(t, ok)
}

func TestPathParams(t *testing.T) {
	r := chi.NewRouter()
	var id int64
	var okID bool
	var name string
	r.Get("/u/{id}/{name}", func(w http.ResponseWriter, r *http.Request) {
		id, okID = PathInt64(r, "id")
		name = PathString(r, "name")
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/u/42/bob", nil))
	assert.True(t, okID)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, "bob", name)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/u/x/bob", nil))
	assert.False(t, okID)
}
