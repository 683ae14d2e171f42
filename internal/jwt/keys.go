package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// Algoritmos de firma soportados.
const (
	AlgHS256 = "HS256"
	AlgEdDSA = "EdDSA"
)

var (
	ErrEmptySecret    = errors.New("jwt: empty signing secret")
	ErrBadSeed        = errors.New("jwt: ed25519 seed must be 32 bytes (base64)")
	ErrUnsupportedAlg = errors.New("jwt: unsupported algorithm")
	ErrNoPublicKeySet = errors.New("jwt: symmetric key has no public JWKS")
)

// KeySet mantiene la única clave de firma del proceso.
// Se carga una vez al arrancar y se pasa explícitamente al Issuer.
type KeySet struct {
	Alg string
	KID string

	secret []byte             // HS256
	priv   ed25519.PrivateKey // EdDSA
	pub    ed25519.PublicKey
}

// NewHMACKeySet arma un KeySet HS256 con secreto compartido.
func NewHMACKeySet(secret string) (*KeySet, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &KeySet{Alg: AlgHS256, secret: []byte(secret)}, nil
}

// NewEd25519KeySet deriva la clave Ed25519 desde una seed de 32 bytes.
// Si kid está vacío se usa un hash corto de la pública.
func NewEd25519KeySet(kid string, seed []byte) (*KeySet, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, ErrBadSeed
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	if kid == "" {
		sum := sha256.Sum256(pub)
		kid = EncodeBase64URL(sum[:8])
	}
	return &KeySet{Alg: AlgEdDSA, KID: kid, priv: priv, pub: pub}, nil
}

// NewDevEd25519 genera una clave Ed25519 efímera (dev/tests).
func NewDevEd25519(kid string) (*KeySet, error) {
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, err
	}
	return NewEd25519KeySet(kid, seed)
}

// DecodeSeed acepta la seed en base64 estándar o base64url.
func DecodeSeed(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSeed, err)
	}
	return b, nil
}

// LoadKeySet resuelve el KeySet según el algoritmo configurado.
func LoadKeySet(alg, secret, seedB64, kid string) (*KeySet, error) {
	switch strings.ToUpper(strings.TrimSpace(alg)) {
	case "", AlgHS256:
		return NewHMACKeySet(secret)
	case strings.ToUpper(AlgEdDSA):
		if seedB64 == "" {
			return nil, ErrBadSeed
		}
		seed, err := DecodeSeed(seedB64)
		if err != nil {
			return nil, err
		}
		return NewEd25519KeySet(kid, seed)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlg, alg)
	}
}

func (k *KeySet) method() jwtv5.SigningMethod {
	if k.Alg == AlgEdDSA {
		return jwtv5.SigningMethodEdDSA
	}
	return jwtv5.SigningMethodHS256
}

func (k *KeySet) signingKey() any {
	if k.Alg == AlgEdDSA {
		return k.priv
	}
	return k.secret
}

func (k *KeySet) verifyKey() any {
	if k.Alg == AlgEdDSA {
		return k.pub
	}
	return k.secret
}

// PublicKey devuelve la pública Ed25519 (nil para HS256).
func (k *KeySet) PublicKey() ed25519.PublicKey { return k.pub }

// EncodeBase64URL codifica bytes en base64url sin padding.
func EncodeBase64URL(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}
