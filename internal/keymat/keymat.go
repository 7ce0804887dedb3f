// Package keymat generates and encodes the RSA key material used for
// certificate enrollment.
package keymat

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"
)

// KeySize is the RSA modulus size in bits. Every enrollment uses this
// strength; it is not configurable.
const KeySize = 4096

// pemTypeRSAPrivateKey is the PEM block type for PKCS#1 private keys
// (the TraditionalOpenSSL container).
const pemTypeRSAPrivateKey = "RSA PRIVATE KEY"

// KeyPair holds an RSA public/private key pair. A pair belongs to exactly
// one enrollment run and is immutable once generated.
type KeyPair struct {
	Private *rsa.PrivateKey
	Public  *rsa.PublicKey
}

// GenerateKeyPair generates a new RSA-4096 key pair from the OS randomness
// source. Failure indicates an unusable runtime environment and is fatal
// to the enrollment.
func GenerateKeyPair() (*KeyPair, error) {
	return GenerateKeyPairWithRand(rand.Reader)
}

// GenerateKeyPairWithRand generates a key pair using the provided random
// source. This is useful for testing with a controlled source.
func GenerateKeyPairWithRand(random io.Reader) (*KeyPair, error) {
	priv, err := rsa.GenerateKey(random, KeySize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA-%d key: %w", KeySize, err)
	}
	return &KeyPair{Private: priv, Public: &priv.PublicKey}, nil
}

// EncodePrivateKeyPEM returns the private key as an unencrypted PKCS#1
// PEM block.
func (kp *KeyPair) EncodePrivateKeyPEM() []byte {
	return pem.EncodeToMemory(kp.PrivateKeyBlock())
}

// PrivateKeyBlock returns the private key as a PKCS#1 PEM block, ready for
// optional encryption before writing.
func (kp *KeyPair) PrivateKeyBlock() *pem.Block {
	return &pem.Block{
		Type:  pemTypeRSAPrivateKey,
		Bytes: x509.MarshalPKCS1PrivateKey(kp.Private),
	}
}
