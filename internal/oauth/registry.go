package oauth

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/dropDatabas3/imsauth/internal/validation"
)

// Registry resuelve clientes por ID. Una implementación persistida puede
// reemplazar a StaticRegistry sin tocar el Engine.
type Registry interface {
	Lookup(ctx context.Context, clientID string) (*Client, error)
}

// StaticRegistry es la tabla de clientes cargada de la config al arrancar. Solo lectura.
type StaticRegistry struct {
	clients map[string]Client
}

var _ Registry = (*StaticRegistry)(nil)

// NewStaticRegistry valida y registra los clientes.
func NewStaticRegistry(clients ...Client) (*StaticRegistry, error) {
	r := &StaticRegistry{clients: make(map[string]Client, len(clients))}
	for _, c := range clients {
		if err := validateClient(c); err != nil {
			return nil, err
		}
		if _, dup := r.clients[c.ID]; dup {
			return nil, fmt.Errorf("client %q: duplicated id", c.ID)
		}
		c.GrantTypes = slices.Clone(c.GrantTypes)
		c.Scopes = slices.Clone(c.Scopes)
		c.RedirectURIs = slices.Clone(c.RedirectURIs)
		r.clients[c.ID] = c
	}
	return r, nil
}

func validateClient(c Client) error {
	if c.ID == "" {
		return fmt.Errorf("client: empty id")
	}
	if c.Secret == "" {
		return fmt.Errorf("client %q: empty secret", c.ID)
	}
	if len(c.GrantTypes) == 0 {
		return fmt.Errorf("client %q: no grant types", c.ID)
	}
	for _, gt := range c.GrantTypes {
		if !KnownGrant(gt) {
			return fmt.Errorf("client %q: %w: %s", c.ID, ErrUnsupportedGrant, gt)
		}
	}
	for _, s := range c.Scopes {
		if !validation.ValidScopeName(s) {
			return fmt.Errorf("client %q: %w: %q", c.ID, ErrInvalidScope, s)
		}
	}
	for _, u := range c.RedirectURIs {
		if !validation.ValidRedirectURI(u) {
			return fmt.Errorf("client %q: invalid redirect_uri %q", c.ID, u)
		}
	}
	if slices.Contains(c.GrantTypes, GrantAuthorizationCode) && len(c.RedirectURIs) == 0 {
		return fmt.Errorf("client %q: authorization_code requires a redirect_uri", c.ID)
	}
	return nil
}

// Lookup devuelve una copia del cliente.
func (r *StaticRegistry) Lookup(ctx context.Context, clientID string) (*Client, error) {
	c, ok := r.clients[clientID]
	if !ok {
		return nil, ErrUnknownClient
	}
	return &c, nil
}

// IDs lista los IDs registrados, ordenados.
func (r *StaticRegistry) IDs() []string {
	out := make([]string, 0, len(r.clients))
	for id := range r.clients {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
