// Package csr builds and signs certificate signing requests for the
// autosign enrollment flow.
package csr

import (
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"

	"github.com/remiblancher/pki-client/internal/keymat"
	"github.com/remiblancher/pki-client/internal/uid"
)

// pemTypeCertificateRequest is the PEM block type for PKCS#10 requests.
const pemTypeCertificateRequest = "CERTIFICATE REQUEST"

// CSR is a signed certificate signing request. It is immutable after New
// returns.
type CSR struct {
	// Request is the parsed form of the signed request.
	Request *x509.CertificateRequest

	der []byte
}

// New builds a request whose subject carries only a generated common name,
// signed with the key pair's private key using SHA-512.
//
// The common name is a fresh identifier; when commonNamePrefix is non-empty
// the name becomes "{prefix}-{identifier}". The subject deliberately omits
// all other attributes (O, OU, C, ...): the CA's profile decides everything
// beyond identity.
func New(kp *keymat.KeyPair, commonNamePrefix string) (*CSR, error) {
	return NewWithGenerator(kp, commonNamePrefix, uid.New())
}

// NewWithGenerator is New with an explicit identifier generator, for tests.
func NewWithGenerator(kp *keymat.KeyPair, commonNamePrefix string, gen *uid.Generator) (*CSR, error) {
	id, err := gen.Generate(uid.SizeLarge)
	if err != nil {
		return nil, fmt.Errorf("failed to generate common name: %w", err)
	}

	commonName := id
	if commonNamePrefix != "" {
		commonName = commonNamePrefix + "-" + id
	}

	template := &x509.CertificateRequest{
		Subject:            pkix.Name{CommonName: commonName},
		SignatureAlgorithm: x509.SHA512WithRSA,
	}

	der, err := x509.CreateCertificateRequest(rand.Reader, template, kp.Private)
	if err != nil {
		return nil, fmt.Errorf("failed to sign CSR: %w", err)
	}

	request, err := x509.ParseCertificateRequest(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signed CSR: %w", err)
	}

	return &CSR{Request: request, der: der}, nil
}

// CommonName returns the subject common name of the request.
func (c *CSR) CommonName() string {
	return c.Request.Subject.CommonName
}

// PEM returns the request encoded for transport to the CA.
func (c *CSR) PEM() []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  pemTypeCertificateRequest,
		Bytes: c.der,
	})
}
