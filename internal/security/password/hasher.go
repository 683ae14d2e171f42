package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost es el costo bcrypt por defecto (mismo que bcrypt.DefaultCost).
const DefaultCost = bcrypt.DefaultCost

// ErrEmpty se devuelve al intentar hashear un password vacío.
var ErrEmpty = errors.New("empty password")

// Hasher hashea y verifica passwords con bcrypt (salt incluido en el hash).
// Es seguro para uso concurrente.
type Hasher struct {
	Cost int
}

// NewHasher crea un Hasher; cost fuera de rango cae a DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &Hasher{Cost: cost}
}

// Hash devuelve el hash bcrypt ($2a$...) del password en claro.
func (h *Hasher) Hash(plain string) (string, error) {
	if plain == "" {
		return "", ErrEmpty
	}
	cost := DefaultCost
	if h != nil && h.Cost != 0 {
		cost = h.Cost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", fmt.Errorf("password: hash: %w", err)
	}
	return string(b), nil
}

// Verify compara en tiempo constante el password contra el hash.
func (h *Hasher) Verify(plain, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// IsHash indica si s parece un hash bcrypt.
func IsHash(s string) bool {
	_, err := bcrypt.Cost([]byte(s))
	return err == nil
}
