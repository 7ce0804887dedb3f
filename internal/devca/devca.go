// Package devca implements a minimal in-memory autosign CA for local
// development and end-to-end tests. It is the server side of the protocol
// the enrollment client speaks; it is not a production CA.
package devca

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"time"
)

// ErrUnknownProfile indicates the requested profile is not one the dev CA
// issues for.
var ErrUnknownProfile = errors.New("profile unknown")

// leafValidity is how long issued certificates live. Short on purpose:
// dev material should not linger.
const leafValidity = 90 * 24 * time.Hour

// profileUsages maps the accepted profiles to the extended key usages the
// issued certificate carries.
var profileUsages = map[string][]x509.ExtKeyUsage{
	"server":    {x509.ExtKeyUsageServerAuth},
	"webserver": {x509.ExtKeyUsageServerAuth},
	"client":    {x509.ExtKeyUsageClientAuth},
	"enduser":   {x509.ExtKeyUsageClientAuth, x509.ExtKeyUsageEmailProtection},
	"ocsp":      {x509.ExtKeyUsageOCSPSigning},
}

// CA is a self-signed issuing authority held entirely in memory.
type CA struct {
	name    string
	key     *ecdsa.PrivateKey
	cert    *x509.Certificate
	certPEM []byte
}

// New creates a CA with a fresh self-signed ECDSA P-256 root.
func New(name string) (*CA, error) {
	if name == "" {
		return nil, fmt.Errorf("CA name must not be empty")
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CA key: %w", err)
	}

	serial, err := newSerial()
	if err != nil {
		return nil, err
	}

	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: name},
		NotBefore:             time.Now().Add(-5 * time.Minute),
		NotAfter:              time.Now().Add(10 * 365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
		MaxPathLen:            0,
		MaxPathLenZero:        true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("failed to self-sign CA certificate: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse CA certificate: %w", err)
	}

	return &CA{
		name:    name,
		key:     key,
		cert:    cert,
		certPEM: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
	}, nil
}

// Name returns the CA name used in endpoint paths.
func (ca *CA) Name() string { return ca.name }

// CertPEM returns the CA's own certificate in PEM form.
func (ca *CA) CertPEM() []byte { return ca.certPEM }

// Profiles returns the profile names the CA accepts.
func Profiles() []string {
	names := make([]string, 0, len(profileUsages))
	for name := range profileUsages {
		names = append(names, name)
	}
	return names
}

// Sign validates the PEM-encoded CSR and issues a certificate under the
// given profile. The subject is taken from the CSR unchanged.
func (ca *CA) Sign(csrPEM []byte, profile string) ([]byte, error) {
	usages, ok := profileUsages[profile]
	if !ok {
		return nil, ErrUnknownProfile
	}

	block, _ := pem.Decode(csrPEM)
	if block == nil || block.Type != "CERTIFICATE REQUEST" {
		return nil, fmt.Errorf("request body is not a PEM certificate request")
	}
	req, err := x509.ParseCertificateRequest(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSR: %w", err)
	}
	if err := req.CheckSignature(); err != nil {
		return nil, fmt.Errorf("CSR signature invalid: %w", err)
	}

	serial, err := newSerial()
	if err != nil {
		return nil, err
	}

	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               req.Subject,
		NotBefore:             time.Now().Add(-5 * time.Minute),
		NotAfter:              time.Now().Add(leafValidity),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           usages,
		BasicConstraintsValid: true,
		DNSNames:              req.DNSNames,
		EmailAddresses:        req.EmailAddresses,
		IPAddresses:           req.IPAddresses,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, ca.cert, req.PublicKey, ca.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign certificate: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), nil
}

// newSerial draws a random 128-bit serial number.
func newSerial() (*big.Int, error) {
	limit := new(big.Int).Lsh(big.NewInt(1), 128)
	serial, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}
	return serial, nil
}
