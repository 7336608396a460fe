package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
)

// KeySet mantiene una sola clave activa de firma. Rotación queda fuera:
// el servicio emite con la clave vigente al arrancar.
type KeySet struct {
	Priv ed25519.PrivateKey
	Pub  ed25519.PublicKey
	KID  string
	Alg  string // "EdDSA"
}

// NewEd25519 genera una clave Ed25519 en memoria con el KID dado.
func NewEd25519(kid string) (*KeySet, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &KeySet{
		Priv: priv,
		Pub:  pub,
		KID:  kid,
		Alg:  "EdDSA",
	}, nil
}
