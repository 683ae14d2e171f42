package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/imsauth/internal/auth"
	"github.com/dropDatabas3/imsauth/internal/config"
	"github.com/dropDatabas3/imsauth/internal/domain/repository"
	"github.com/dropDatabas3/imsauth/internal/security/password"
)

type userJSON struct {
	ID       *int64  `json:"id"`
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Roles    []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"roles"`
}

func (u userJSON) roleNames() []string {
	out := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		out = append(out, r.Name)
	}
	return out
}

type tokenJSON struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
	JTI          string `json:"jti"`
	Error        string `json:"error"`
}

type harness struct {
	t   *testing.T
	app *App
	srv *httptest.Server
	c   *http.Client
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Auth.BcryptCost = 4
	require.NoError(t, cfg.Validate())
	return cfg
}

func newHarness(t *testing.T, cfg *config.Config) *harness {
	t.Helper()
	app, err := Build(context.Background(), cfg, Options{Registry: prometheus.NewRegistry()})
	require.NoError(t, err)
	srv := httptest.NewServer(app.Handler)
	t.Cleanup(func() {
		srv.Close()
		_ = app.Close()
	})
	c := srv.Client()
	c.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	return &harness{t: t, app: app, srv: srv, c: c}
}

func (h *harness) do(req *http.Request) (*http.Response, []byte) {
	h.t.Helper()
	resp, err := h.c.Do(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	return resp, b
}

func (h *harness) postJSON(path, body string) (*http.Response, []byte) {
	h.t.Helper()
	req, err := http.NewRequest(http.MethodPost, h.srv.URL+path, strings.NewReader(body))
	require.NoError(h.t, err)
	req.Header.Set("Content-Type", "application/json")
	return h.do(req)
}

func (h *harness) postForm(path string, form url.Values, basicUser, basicPass string) (*http.Response, []byte) {
	h.t.Helper()
	req, err := http.NewRequest(http.MethodPost, h.srv.URL+path, strings.NewReader(form.Encode()))
	require.NoError(h.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if basicUser != "" {
		req.SetBasicAuth(basicUser, basicPass)
	}
	return h.do(req)
}

func (h *harness) get(path string) (*http.Response, []byte) {
	h.t.Helper()
	req, err := http.NewRequest(http.MethodGet, h.srv.URL+path, nil)
	require.NoError(h.t, err)
	return h.do(req)
}

func (h *harness) allUsers() []userJSON {
	h.t.Helper()
	resp, body := h.get("/users/all")
	require.Equal(h.t, http.StatusOK, resp.StatusCode)
	var users []userJSON
	require.NoError(h.t, json.Unmarshal(body, &users))
	return users
}

func findUser(users []userJSON, name string) *userJSON {
	for i := range users {
		if users[i].Username != nil && *users[i].Username == name {
			return &users[i]
		}
	}
	return nil
}

func (h *harness) addUser(username, email, pw, role string) userJSON {
	h.t.Helper()
	body := `{"username":"` + username + `","email":"` + email + `","password":"` + pw + `","role":"` + role + `"}`
	resp, b := h.postJSON("/users/add", body)
	require.Equal(h.t, http.StatusOK, resp.StatusCode, string(b))
	var u userJSON
	require.NoError(h.t, json.Unmarshal(b, &u))
	require.NotNil(h.t, u.ID)
	return u
}

func TestUsers_BobLifecycle(t *testing.T) {
	h := newHarness(t, testConfig(t))
	authn := auth.NewAuthenticator(h.app.Store.Users(), password.NewHasher(4))
	ctx := context.Background()

	bob := h.addUser("bob", "b@x.com", "pw", "USER")
	assert.Equal(t, []string{"USER"}, bob.roleNames())

	got := findUser(h.allUsers(), "bob")
	require.NotNil(t, got)
	require.NotNil(t, got.Password)
	assert.NotEqual(t, "pw", *got.Password)
	assert.True(t, password.IsHash(*got.Password))

	// reset → password por defecto
	resp, _ := h.postJSON("/users/password-reset/"+strconv.FormatInt(*bob.ID, 10), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, err := authn.Authenticate(ctx, "bob", "password")
	require.NoError(t, err)
	_, err = authn.Authenticate(ctx, "bob", "pw")
	assert.ErrorIs(t, err, auth.ErrBadCredentials)

	hashAfterReset := *findUser(h.allUsers(), "bob").Password

	// update-details ignora el password
	resp, b := h.postJSON("/users/update-details/"+strconv.FormatInt(*bob.ID, 10),
		`{"username":"robert","email":"r@x.com","password":"ignored","role":"ADMIN"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(b))

	users := h.allUsers()
	assert.Nil(t, findUser(users, "bob"))
	robert := findUser(users, "robert")
	require.NotNil(t, robert)
	assert.Equal(t, []string{"ADMIN"}, robert.roleNames())
	assert.Equal(t, "r@x.com", *robert.Email)
	assert.Equal(t, hashAfterReset, *robert.Password)

	id, err := authn.Authenticate(ctx, "ROBERT", "password")
	require.NoError(t, err)
	assert.Equal(t, []string{"ADMIN"}, id.Authorities)
}

func TestUsers_ChangePasswordRawAndJSON(t *testing.T) {
	h := newHarness(t, testConfig(t))
	authn := auth.NewAuthenticator(h.app.Store.Users(), password.NewHasher(4))
	h.addUser("carol", "c@x.com", "old", "")

	req, err := http.NewRequest(http.MethodPost, h.srv.URL+"/users/password-change/carol", strings.NewReader("new-raw"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "text/plain")
	resp, _ := h.do(req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, err = authn.Authenticate(context.Background(), "carol", "new-raw")
	require.NoError(t, err)

	resp, _ = h.postJSON("/users/password-change/CAROL", `"new-json"`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, err = authn.Authenticate(context.Background(), "carol", "new-json")
	require.NoError(t, err)
}

func TestUsers_NotFoundReturnsEmptyUser(t *testing.T) {
	h := newHarness(t, testConfig(t))

	for _, path := range []string{"/users/password-reset/999", "/users/update-details/999", "/users/password-change/nobody"} {
		body := `{"username":"x","email":"x","password":"x","role":"USER"}`
		if strings.Contains(path, "password-change") {
			body = `"secret"`
		}
		resp, b := h.postJSON(path, body)
		require.Equal(t, http.StatusOK, resp.StatusCode, path)

		var m map[string]any
		require.NoError(t, json.Unmarshal(b, &m), path)
		for _, k := range []string{"id", "username", "email", "password", "roles"} {
			v, ok := m[k]
			assert.True(t, ok, "%s: falta %s", path, k)
			assert.Nil(t, v, "%s: %s", path, k)
		}
	}
}

func TestUsers_DuplicateAndRoles(t *testing.T) {
	h := newHarness(t, testConfig(t))
	h.addUser("dave", "d@x.com", "pw", "user")

	resp, b := h.postJSON("/users/add", `{"username":"DAVE","email":"d2@x.com","password":"pw","role":"USER"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, string(b))

	// rol inexistente: se crea sin roles
	u := h.addUser("erin", "e@x.com", "pw", "GHOST")
	assert.Empty(t, u.Roles)

	resp, b = h.get("/users/roles")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var roles []struct {
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(b, &roles))
	var names []string
	for _, r := range roles {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"ADMIN", "SUPERVISOR", "USER"}, names)

	resp, _ = h.postJSON("/users/password-reset/abc", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func authorizeURL(h *harness, extra url.Values) string {
	q := url.Values{
		"response_type": {"code"},
		"client_id":     {config.DefaultClientID},
		"redirect_uri":  {config.DefaultClientRedirectURI},
		"state":         {"xyz"},
	}
	for k, v := range extra {
		q[k] = v
	}
	return h.srv.URL + "/oauth/authorize?" + q.Encode()
}

func (h *harness) authorize(user, pass string) string {
	h.t.Helper()
	req, err := http.NewRequest(http.MethodGet, authorizeURL(h, nil), nil)
	require.NoError(h.t, err)
	req.SetBasicAuth(user, pass)
	resp, b := h.do(req)
	require.Equal(h.t, http.StatusFound, resp.StatusCode, string(b))

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(h.t, err)
	assert.Equal(h.t, "localhost:3000", loc.Host)
	assert.Equal(h.t, "/oauth_callback", loc.Path)
	assert.Equal(h.t, "xyz", loc.Query().Get("state"))
	code := loc.Query().Get("code")
	require.NotEmpty(h.t, code)
	return code
}

func (h *harness) exchange(code string) (*http.Response, tokenJSON) {
	h.t.Helper()
	resp, b := h.postForm("/oauth/token", url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {config.DefaultClientRedirectURI},
	}, config.DefaultClientID, config.DefaultClientSecret)
	var tok tokenJSON
	require.NoError(h.t, json.Unmarshal(b, &tok), string(b))
	return resp, tok
}

func TestOAuth_AuthorizationCodeFlow(t *testing.T) {
	h := newHarness(t, testConfig(t))
	h.addUser("alice", "a@x.com", "correct", "ADMIN")

	code := h.authorize("alice", "correct")

	resp, tok := h.exchange(code)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	assert.Equal(t, "bearer", tok.TokenType)
	assert.Equal(t, "read", tok.Scope)
	assert.Equal(t, int64(3600), tok.ExpiresIn)
	assert.NotEmpty(t, tok.AccessToken)
	assert.NotEmpty(t, tok.RefreshToken)
	assert.NotEmpty(t, tok.JTI)

	// un code sirve una sola vez
	resp, again := h.exchange(code)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_grant", again.Error)

	// check_token
	resp, b := h.postForm("/oauth/check_token", url.Values{"token": {tok.AccessToken}}, config.DefaultClientID, config.DefaultClientSecret)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(b))
	var claims map[string]any
	require.NoError(t, json.Unmarshal(b, &claims))
	assert.Equal(t, true, claims["active"])
	assert.Equal(t, "alice", claims["user_name"])
	assert.Equal(t, config.DefaultClientID, claims["client_id"])
	assert.Equal(t, []any{"ADMIN"}, claims["authorities"])
	assert.Equal(t, []any{"read"}, claims["scope"])

	// un refresh token no pasa como access token
	resp, _ = h.postForm("/oauth/check_token", url.Values{"token": {tok.RefreshToken}}, config.DefaultClientID, config.DefaultClientSecret)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// refresh
	resp, b = h.postForm("/oauth/token", url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {tok.RefreshToken},
	}, config.DefaultClientID, config.DefaultClientSecret)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(b))
	var refreshed tokenJSON
	require.NoError(t, json.Unmarshal(b, &refreshed))
	assert.NotEqual(t, tok.AccessToken, refreshed.AccessToken)
	assert.NotEqual(t, tok.JTI, refreshed.JTI)

	// el refresh token anterior sigue valiendo
	resp, _ = h.postForm("/oauth/token", url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {tok.RefreshToken},
	}, config.DefaultClientID, config.DefaultClientSecret)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestOAuth_TokenErrors(t *testing.T) {
	h := newHarness(t, testConfig(t))
	h.addUser("alice", "a@x.com", "correct", "USER")
	code := h.authorize("alice", "correct")

	// secreto incorrecto con Basic → 401 + challenge
	resp, b := h.postForm("/oauth/token", url.Values{
		"grant_type": {"authorization_code"},
		"code":       {code},
	}, config.DefaultClientID, "wrong")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, string(b))
	assert.Contains(t, resp.Header.Get("WWW-Authenticate"), "Basic")
	assert.JSONEq(t, `{"error":"invalid_client","error_description":"Client authentication failed"}`, string(b))

	// el code quedó consumido por el intento fallido
	resp, tok := h.exchange(code)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_grant", tok.Error)

	resp, b = h.postForm("/oauth/token", url.Values{"grant_type": {"implicit"}}, config.DefaultClientID, config.DefaultClientSecret)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(b), "unsupported_grant_type")

	resp, b = h.postForm("/oauth/token", url.Values{}, config.DefaultClientID, config.DefaultClientSecret)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(b), "invalid_request")

	// el cliente por defecto no tiene el grant password
	resp, b = h.postForm("/oauth/token", url.Values{
		"grant_type": {"password"},
		"username":   {"alice"},
		"password":   {"correct"},
	}, config.DefaultClientID, config.DefaultClientSecret)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(b), "unauthorized_client")
}

func TestOAuth_AuthorizeErrors(t *testing.T) {
	h := newHarness(t, testConfig(t))
	h.addUser("alice", "a@x.com", "correct", "USER")

	// sin credenciales → 401 Basic
	resp, _ := h.get(strings.TrimPrefix(authorizeURL(h, nil), h.srv.URL))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("WWW-Authenticate"), "Basic")

	// redirect no registrado: nunca se redirige
	resp, b := h.get(strings.TrimPrefix(authorizeURL(h, url.Values{"redirect_uri": {"http://evil.example/cb"}}), h.srv.URL))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Location"))
	assert.Contains(t, string(b), "invalid_request")

	// cliente desconocido
	resp, _ = h.get(strings.TrimPrefix(authorizeURL(h, url.Values{"client_id": {"nope"}}), h.srv.URL))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// scope inválido → redirect con error
	resp, _ = h.get(strings.TrimPrefix(authorizeURL(h, url.Values{"scope": {"admin"}}), h.srv.URL))
	require.Equal(t, http.StatusFound, resp.StatusCode)
	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "invalid_scope", loc.Query().Get("error"))
	assert.Equal(t, "xyz", loc.Query().Get("state"))

	resp, _ = h.get(strings.TrimPrefix(authorizeURL(h, url.Values{"response_type": {"token"}}), h.srv.URL))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOAuth_ConsentRequired(t *testing.T) {
	cfg := testConfig(t)
	cfg.Clients[0].AutoApprove = false
	h := newHarness(t, cfg)
	h.addUser("alice", "a@x.com", "correct", "USER")

	req, err := http.NewRequest(http.MethodGet, authorizeURL(h, nil), nil)
	require.NoError(t, err)
	req.SetBasicAuth("alice", "correct")
	resp, b := h.do(req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{
		"consent_required": true,
		"client_id": "imsauth-web",
		"scopes": ["read"],
		"redirect_uri": "http://localhost:3000/oauth_callback",
		"state": "xyz",
		"approval_param": "user_oauth_approval"
	}`, string(b))

	req, err = http.NewRequest(http.MethodGet, authorizeURL(h, url.Values{"user_oauth_approval": {"true"}}), nil)
	require.NoError(t, err)
	req.SetBasicAuth("alice", "correct")
	resp, _ = h.do(req)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestOAuth_TokenKeyHS256(t *testing.T) {
	h := newHarness(t, testConfig(t))
	resp, _ := h.get("/oauth/token_key")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOAuth_TokenKeyEdDSA(t *testing.T) {
	cfg := testConfig(t)
	cfg.JWT.Alg = "EdDSA"
	cfg.JWT.KID = "k1"
	h := newHarness(t, cfg)

	resp, b := h.get("/oauth/token_key")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var jwks struct {
		Keys []map[string]any `json:"keys"`
	}
	require.NoError(t, json.Unmarshal(b, &jwks))
	require.Len(t, jwks.Keys, 1)
	assert.Equal(t, "OKP", jwks.Keys[0]["kty"])
	assert.Equal(t, "k1", jwks.Keys[0]["kid"])
}

func TestUsers_ProtectedAPI(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.ProtectUsersAPI = true
	h := newHarness(t, cfg)

	resp, _ := h.get("/users/all")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// sembrado directo en el store: la API ya está protegida
	hash, err := password.NewHasher(4).Hash("pw")
	require.NoError(t, err)
	for name, role := range map[string]string{"root": "ADMIN", "joe": "USER"} {
		r, err := h.app.Store.Roles().GetByName(context.Background(), role)
		require.NoError(t, err)
		_, err = h.app.Store.Users().Create(context.Background(), userInput(name, hash, *r))
		require.NoError(t, err)
	}

	bearer := func(user string) string {
		code := h.authorize(user, "pw")
		_, tok := h.exchange(code)
		require.NotEmpty(t, tok.AccessToken)
		return tok.AccessToken
	}

	for user, want := range map[string]int{"root": http.StatusOK, "joe": http.StatusForbidden} {
		req, err := http.NewRequest(http.MethodGet, h.srv.URL+"/users/all", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+bearer(user))
		resp, _ := h.do(req)
		assert.Equal(t, want, resp.StatusCode, user)
	}
}

func TestRateLimit_OAuthToken(t *testing.T) {
	cfg := testConfig(t)
	cfg.Rate.Enabled = true
	cfg.Rate.MaxRequests = 2
	cfg.Rate.Window = "1m"
	h := newHarness(t, cfg)

	var last *http.Response
	for i := 0; i < 3; i++ {
		last, _ = h.postForm("/oauth/token", url.Values{"grant_type": {"authorization_code"}, "code": {"x"}}, config.DefaultClientID, config.DefaultClientSecret)
	}
	assert.Equal(t, http.StatusTooManyRequests, last.StatusCode)
	assert.NotEmpty(t, last.Header.Get("Retry-After"))

	// /users no está limitado
	resp, _ := h.get("/users/roles")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t, testConfig(t))

	resp, b := h.get("/readyz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var health struct {
		Status     string                       `json:"status"`
		Components map[string]map[string]string `json:"components"`
	}
	require.NoError(t, json.Unmarshal(b, &health))
	assert.Equal(t, "ready", health.Status)
	assert.Equal(t, "ok", health.Components["store"]["status"])

	resp, _ = h.get("/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = h.get("/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestServe_GracefulShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, ln, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}), time.Second)
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String())
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusNoContent
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Serve no terminó tras cancelar el contexto")
	}
}

func userInput(name, hash string, role repository.Role) repository.CreateUserInput {
	return repository.CreateUserInput{
		Username:     name,
		Email:        name + "@x.com",
		PasswordHash: hash,
		Roles:        []repository.Role{role},
	}
}
