package helpers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// PathInt64 lee un parámetro numérico de la ruta chi.
func PathInt64(r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// PathString lee un parámetro de la ruta chi sin espacios alrededor.
func PathString(r *http.Request, name string) string {
	return strings.TrimSpace(chi.URLParam(r, name))
}

// Credentials son usuario/secreto tomados de Basic o del formulario.
type Credentials struct {
	ID     string
	Secret string
	// Basic indica que vinieron por Authorization: Basic.
	Basic bool
}

// ClientCredentials prioriza HTTP Basic y cae a client_id/client_secret del form.
// r.ParseForm debe haberse llamado antes.
func ClientCredentials(r *http.Request) Credentials {
	if id, secret, ok := r.BasicAuth(); ok {
		return Credentials{ID: id, Secret: secret, Basic: true}
	}
	return Credentials{
		ID:     strings.TrimSpace(r.Form.Get("client_id")),
		Secret: r.Form.Get("client_secret"),
	}
}

// UserCredentials igual que ClientCredentials pero con username/password.
func UserCredentials(r *http.Request) (Credentials, bool) {
	if u, p, ok := r.BasicAuth(); ok {
		return Credentials{ID: u, Secret: p, Basic: true}, true
	}
	u := strings.TrimSpace(r.Form.Get("username"))
	if u == "" {
		return Credentials{}, false
	}
	return Credentials{ID: u, Secret: r.Form.Get("password")}, true
}
