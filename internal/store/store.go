// Package store persists enrollment material as PEM files.
//
// Writes are single-shot: a failed write leaves the destination in an
// undefined state and is reported, never retried. The private key is
// written unencrypted by default, which is a deliberate trade-off; pass a
// passphrase to get an AES-256 encrypted PEM block instead.
package store

import (
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/remiblancher/pki-client/internal/keymat"
)

// StoreError wraps an I/O failure while persisting or loading enrollment
// material. It supports errors.Is() and errors.As() through Unwrap.
type StoreError struct {
	Op   string // Operation: "save-key", "save-cert", "save-cacert", "load-key", "load-cert"
	Path string // Destination path
	Err  error  // Underlying error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *StoreError) Unwrap() error { return e.Err }

// FileStore writes key material and certificates to caller-chosen paths.
// It holds no state; all methods are safe for concurrent use.
type FileStore struct{}

// NewFileStore returns a FileStore.
func NewFileStore() *FileStore {
	return &FileStore{}
}

// SavePrivateKey writes the key pair's private key as a PKCS#1 PEM file
// with mode 0600. With an empty passphrase the key is written unencrypted;
// otherwise the PEM block is encrypted with AES-256.
func (s *FileStore) SavePrivateKey(path string, kp *keymat.KeyPair, passphrase []byte) error {
	block := kp.PrivateKeyBlock()

	if len(passphrase) > 0 {
		var err error
		block, err = x509.EncryptPEMBlock(rand.Reader, block.Type, block.Bytes, passphrase, x509.PEMCipherAES256) //nolint:staticcheck // legacy PEM encryption is the container the CA tooling expects
		if err != nil {
			return &StoreError{Op: "save-key", Path: path, Err: fmt.Errorf("failed to encrypt private key: %w", err)}
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return &StoreError{Op: "save-key", Path: path, Err: err}
	}
	defer f.Close()

	if err := pem.Encode(f, block); err != nil {
		return &StoreError{Op: "save-key", Path: path, Err: err}
	}
	return nil
}

// SaveCertificate writes the certificate as a PEM file with mode 0644.
func (s *FileStore) SaveCertificate(path string, cert *x509.Certificate) error {
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
	if err := os.WriteFile(path, pemBytes, 0644); err != nil {
		return &StoreError{Op: "save-cert", Path: path, Err: err}
	}
	return nil
}

// SaveCACert writes the CA certificate bytes exactly as fetched.
func (s *FileStore) SaveCACert(path string, pemBytes []byte) error {
	if err := os.WriteFile(path, pemBytes, 0644); err != nil {
		return &StoreError{Op: "save-cacert", Path: path, Err: err}
	}
	return nil
}

// LoadPrivateKey reads a PKCS#1 PEM private key back, decrypting it when a
// passphrase is given.
func (s *FileStore) LoadPrivateKey(path string, passphrase []byte) (*keymat.KeyPair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &StoreError{Op: "load-key", Path: path, Err: err}
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, &StoreError{Op: "load-key", Path: path, Err: fmt.Errorf("no PEM block found")}
	}

	keyBytes := block.Bytes
	if x509.IsEncryptedPEMBlock(block) { //nolint:staticcheck
		if len(passphrase) == 0 {
			return nil, &StoreError{Op: "load-key", Path: path, Err: fmt.Errorf("private key is encrypted but no passphrase provided")}
		}
		keyBytes, err = x509.DecryptPEMBlock(block, passphrase) //nolint:staticcheck
		if err != nil {
			return nil, &StoreError{Op: "load-key", Path: path, Err: fmt.Errorf("failed to decrypt private key: %w", err)}
		}
	}

	priv, err := x509.ParsePKCS1PrivateKey(keyBytes)
	if err != nil {
		return nil, &StoreError{Op: "load-key", Path: path, Err: fmt.Errorf("failed to parse PKCS#1 key: %w", err)}
	}
	return &keymat.KeyPair{Private: priv, Public: &priv.PublicKey}, nil
}

// LoadCertificate reads a PEM certificate back.
func (s *FileStore) LoadCertificate(path string) (*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &StoreError{Op: "load-cert", Path: path, Err: err}
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, &StoreError{Op: "load-cert", Path: path, Err: fmt.Errorf("no PEM block found")}
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, &StoreError{Op: "load-cert", Path: path, Err: fmt.Errorf("failed to parse certificate: %w", err)}
	}
	return cert, nil
}
