// Package enroll sequences the end-to-end certificate enrollment workflow:
// trust bootstrap, key generation, CSR construction, autosign submission,
// and persistence of the resulting material.
//
// A run is synchronous and self-contained. It shares no state with other
// runs, so concurrent enrollments need no coordination; every run draws
// its own key pair and identifier salt. No step is retried: any failure
// aborts the run and propagates with its context attached.
package enroll

import (
	"crypto/x509"
	"fmt"

	"github.com/remiblancher/pki-client/internal/ca"
	"github.com/remiblancher/pki-client/internal/csr"
	"github.com/remiblancher/pki-client/internal/keymat"
	"github.com/remiblancher/pki-client/internal/store"
)

// Options configures a single enrollment run. All paths are taken as
// given; the caller resolves them.
type Options struct {
	// CAURL is the CA's base URL.
	CAURL string

	// CAName selects the CA under the base URL.
	CAName string

	// CACertPath is where the CA certificate is written.
	CACertPath string

	// KeyPath is where the private key is written.
	KeyPath string

	// CertPath is where the issued certificate is written.
	CertPath string

	// CommonNamePrefix optionally prefixes the generated common name.
	CommonNamePrefix string

	// Profile is the CA-side policy tag. Opaque here, passed through.
	Profile string

	// Passphrase encrypts the private key on disk when non-empty.
	Passphrase []byte
}

// Result reports what an enrollment run produced.
type Result struct {
	CommonName  string
	Certificate *x509.Certificate
}

// Run performs one complete enrollment. Steps execute strictly in order;
// there is no partial-success state worth keeping, so the first error wins.
func Run(opts Options) (*Result, error) {
	client, err := ca.New(opts.CAURL, opts.CAName)
	if err != nil {
		return nil, err
	}

	files := store.NewFileStore()

	caCert, err := client.FetchCACert()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch CA certificate: %w", err)
	}
	if err := files.SaveCACert(opts.CACertPath, caCert); err != nil {
		return nil, fmt.Errorf("failed to save CA certificate: %w", err)
	}

	kp, err := keymat.GenerateKeyPair()
	if err != nil {
		return nil, err
	}

	request, err := csr.New(kp, opts.CommonNamePrefix)
	if err != nil {
		return nil, err
	}

	cert, _, err := client.Submit(request.PEM(), opts.Profile)
	if err != nil {
		return nil, fmt.Errorf("failed to autosign certificate: %w", err)
	}

	if err := files.SavePrivateKey(opts.KeyPath, kp, opts.Passphrase); err != nil {
		return nil, fmt.Errorf("failed to save private key: %w", err)
	}
	if err := files.SaveCertificate(opts.CertPath, cert); err != nil {
		return nil, fmt.Errorf("failed to save certificate: %w", err)
	}

	return &Result{
		CommonName:  request.CommonName(),
		Certificate: cert,
	}, nil
}
