package jwt

import "encoding/json"

type jwk struct {
	Kty string `json:"kty"` // "OKP"
	Crv string `json:"crv"` // "Ed25519"
	Kid string `json:"kid"`
	Alg string `json:"alg"` // "EdDSA"
	Use string `json:"use"` // "sig"
	X   string `json:"x"`   // base64url(pub)
}

type jwks struct {
	Keys []jwk `json:"keys"`
}

// JWKSJSON devuelve el JWKS (solo la pública) en JSON.
// Para HS256 no hay nada que publicar.
func (k *KeySet) JWKSJSON() ([]byte, error) {
	if k.Alg != AlgEdDSA {
		return nil, ErrNoPublicKeySet
	}
	return json.Marshal(jwks{
		Keys: []jwk{{
			Kty: "OKP",
			Crv: "Ed25519",
			Kid: k.KID,
			Alg: k.Alg,
			Use: "sig",
			X:   EncodeBase64URL(k.pub),
		}},
	})
}
