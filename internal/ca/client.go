// Package ca implements the HTTP client side of the autosign protocol.
//
// The CA exposes two endpoints under a base URL B for a CA named N:
//
//	GET  {B}/issuer/{N}.pem              the CA's own certificate
//	POST {B}/pki/{N}/autosign?profile=p  synchronous CSR signing
//
// Submission is single-shot: no retries, no background work. A failed
// enrollment is operator-visible and retrying is the caller's decision.
package ca

import (
	"bytes"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ContentTypePEM is the media type the autosign endpoint expects.
const ContentTypePEM = "application/x-pem-file"

// defaultTimeout bounds each HTTP call. Signing is synchronous on the CA
// side, so a generous bound still catches hung connections.
const defaultTimeout = 60 * time.Second

// Client submits certificate signing requests to a CA's autosign endpoint.
// A Client is safe for use by a single enrollment run; it holds no state
// beyond its configuration.
type Client struct {
	baseURL string
	name    string
	hc      *http.Client
}

// New returns a Client for the CA named name reachable under baseURL.
// The URL must be absolute with an http or https scheme.
func New(baseURL, name string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid CA base URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid CA base URL %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid CA base URL %q: missing host", baseURL)
	}
	if name == "" {
		return nil, fmt.Errorf("CA name must not be empty")
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		name:    name,
		hc:      &http.Client{Timeout: defaultTimeout},
	}, nil
}

// NewWithHTTPClient is New with an explicit HTTP client, for tests and
// callers that need custom transport settings.
func NewWithHTTPClient(baseURL, name string, hc *http.Client) (*Client, error) {
	c, err := New(baseURL, name)
	if err != nil {
		return nil, err
	}
	c.hc = hc
	return c, nil
}

// CACertURL returns the URL the CA publishes its own certificate under.
func (c *Client) CACertURL() string {
	return fmt.Sprintf("%s/issuer/%s.pem", c.baseURL, url.PathEscape(c.name))
}

// AutosignURL returns the autosign endpoint URL, without the profile query.
func (c *Client) AutosignURL() string {
	return fmt.Sprintf("%s/pki/%s/autosign", c.baseURL, url.PathEscape(c.name))
}

// Submit posts the PEM-encoded CSR for automatic signing under the given
// profile and returns the issued certificate together with the exact bytes
// the CA sent.
//
// Failure modes are distinguished deliberately: a non-2xx status is a
// *RejectionError carrying the CA's reason verbatim, an undecodable 2xx
// body is ErrMalformedResponse, and anything below HTTP is ErrTransport.
func (c *Client) Submit(csrPEM []byte, profile string) (*x509.Certificate, []byte, error) {
	endpoint := c.AutosignURL() + "?profile=" + url.QueryEscape(profile)

	resp, err := c.hc.Post(endpoint, ContentTypePEM, bytes.NewReader(csrPEM))
	if err != nil {
		return nil, nil, &ClientError{Op: "submit", URL: endpoint, Err: fmt.Errorf("%w: %v", ErrTransport, err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &ClientError{Op: "submit", URL: endpoint, Err: fmt.Errorf("%w: reading response: %v", ErrTransport, err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, &ClientError{Op: "submit", URL: endpoint, Err: &RejectionError{
			StatusCode: resp.StatusCode,
			Reason:     string(body),
		}}
	}

	cert, err := parseCertificatePEM(body)
	if err != nil {
		return nil, nil, &ClientError{Op: "submit", URL: endpoint, Err: fmt.Errorf("%w: %v", ErrMalformedResponse, err)}
	}
	return cert, body, nil
}

// FetchCACert retrieves the CA's own certificate in PEM form. This is the
// trust-bootstrap call; the body is returned as sent, without parsing.
func (c *Client) FetchCACert() ([]byte, error) {
	endpoint := c.CACertURL()

	resp, err := c.hc.Get(endpoint)
	if err != nil {
		return nil, &ClientError{Op: "fetch-cacert", URL: endpoint, Err: fmt.Errorf("%w: %v", ErrTransport, err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ClientError{Op: "fetch-cacert", URL: endpoint, Err: fmt.Errorf("%w: reading response: %v", ErrTransport, err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ClientError{Op: "fetch-cacert", URL: endpoint, Err: fmt.Errorf("%w: unexpected status %s", ErrTransport, resp.Status)}
	}
	return body, nil
}

// parseCertificatePEM decodes a single PEM certificate.
func parseCertificatePEM(data []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block in response")
	}
	if block.Type != "CERTIFICATE" {
		return nil, fmt.Errorf("unexpected PEM type %q", block.Type)
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %v", err)
	}
	return cert, nil
}
