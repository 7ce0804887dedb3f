package store

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/remiblancher/pki-client/internal/keymat"
)

var (
	testPairOnce sync.Once
	testPair     *keymat.KeyPair
	testPairErr  error
)

func testKeyPair(t *testing.T) *keymat.KeyPair {
	t.Helper()
	testPairOnce.Do(func() {
		testPair, testPairErr = keymat.GenerateKeyPair()
	})
	if testPairErr != nil {
		t.Fatalf("GenerateKeyPair failed: %v", testPairErr)
	}
	return testPair
}

func testCert(t *testing.T) *x509.Certificate {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate test key: %v", err)
	}
	template := &x509.Certificate{
		SerialNumber: big.NewInt(7),
		Subject:      pkix.Name{CommonName: "store-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("failed to create test certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("failed to parse test certificate: %v", err)
	}
	return cert
}

func TestU_SavePrivateKey_Unencrypted(t *testing.T) {
	kp := testKeyPair(t)
	path := filepath.Join(t.TempDir(), "key.pem")
	s := NewFileStore()

	if err := s.SavePrivateKey(path, kp, nil); err != nil {
		t.Fatalf("SavePrivateKey failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("key file mode = %v, want 0600", info.Mode().Perm())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	block, _ := pem.Decode(data)
	if block == nil || block.Type != "RSA PRIVATE KEY" {
		t.Fatalf("expected an RSA PRIVATE KEY PEM block")
	}
	if x509.IsEncryptedPEMBlock(block) { //nolint:staticcheck
		t.Error("key should be unencrypted by default")
	}

	loaded, err := s.LoadPrivateKey(path, nil)
	if err != nil {
		t.Fatalf("LoadPrivateKey failed: %v", err)
	}
	if !loaded.Private.Equal(kp.Private) {
		t.Error("loaded key does not equal the original")
	}
}

func TestU_SavePrivateKey_Passphrase(t *testing.T) {
	kp := testKeyPair(t)
	path := filepath.Join(t.TempDir(), "key.pem")
	s := NewFileStore()
	passphrase := []byte("correct horse")

	if err := s.SavePrivateKey(path, kp, passphrase); err != nil {
		t.Fatalf("SavePrivateKey failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		t.Fatal("no PEM block in key file")
	}
	if !x509.IsEncryptedPEMBlock(block) { //nolint:staticcheck
		t.Fatal("key should be encrypted when a passphrase is given")
	}

	if _, err := s.LoadPrivateKey(path, nil); err == nil {
		t.Error("loading an encrypted key without passphrase should fail")
	}

	loaded, err := s.LoadPrivateKey(path, passphrase)
	if err != nil {
		t.Fatalf("LoadPrivateKey with passphrase failed: %v", err)
	}
	if !loaded.Private.Equal(kp.Private) {
		t.Error("decrypted key does not equal the original")
	}
}

func TestU_SavePrivateKey_BadPath(t *testing.T) {
	kp := testKeyPair(t)
	s := NewFileStore()

	err := s.SavePrivateKey(filepath.Join(t.TempDir(), "missing", "key.pem"), kp, nil)
	if err == nil {
		t.Fatal("writing under a missing directory should fail")
	}

	var se *StoreError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want *StoreError", err)
	}
	if se.Op != "save-key" {
		t.Errorf("Op = %q, want save-key", se.Op)
	}
}

func TestU_SaveCertificate_RoundTrip(t *testing.T) {
	cert := testCert(t)
	path := filepath.Join(t.TempDir(), "cert.pem")
	s := NewFileStore()

	if err := s.SaveCertificate(path, cert); err != nil {
		t.Fatalf("SaveCertificate failed: %v", err)
	}

	loaded, err := s.LoadCertificate(path)
	if err != nil {
		t.Fatalf("LoadCertificate failed: %v", err)
	}
	if !bytes.Equal(loaded.Raw, cert.Raw) {
		t.Error("loaded certificate DER does not equal the original")
	}
}

func TestU_SaveCertificate_BadPath(t *testing.T) {
	cert := testCert(t)
	s := NewFileStore()

	err := s.SaveCertificate(filepath.Join(t.TempDir(), "missing", "cert.pem"), cert)
	var se *StoreError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want *StoreError", err)
	}
}

func TestU_SaveCACert(t *testing.T) {
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: testCert(t).Raw})
	path := filepath.Join(t.TempDir(), "cacert.pem")
	s := NewFileStore()

	if err := s.SaveCACert(path, pemBytes); err != nil {
		t.Fatalf("SaveCACert failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !bytes.Equal(data, pemBytes) {
		t.Error("CA certificate bytes should be written exactly as fetched")
	}
}
