package devca

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// testCSRPEM builds a signed CSR with the given common name.
func testCSRPEM(t *testing.T, commonName string) []byte {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	der, err := x509.CreateCertificateRequest(rand.Reader, &x509.CertificateRequest{
		Subject: pkix.Name{CommonName: commonName},
	}, key)
	if err != nil {
		t.Fatalf("failed to create CSR: %v", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE REQUEST", Bytes: der})
}

func TestU_Sign_IssuesUnderProfile(t *testing.T) {
	ca, err := New("TestCA")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	certPEM, err := ca.Sign(testCSRPEM(t, "unit-test-cn"), "client")
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	block, _ := pem.Decode(certPEM)
	if block == nil {
		t.Fatal("no PEM block in issued certificate")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		t.Fatalf("failed to parse issued certificate: %v", err)
	}

	if cert.Subject.CommonName != "unit-test-cn" {
		t.Errorf("issued CN = %q, want unit-test-cn", cert.Subject.CommonName)
	}
	if len(cert.ExtKeyUsage) != 1 || cert.ExtKeyUsage[0] != x509.ExtKeyUsageClientAuth {
		t.Errorf("ExtKeyUsage = %v, want [ClientAuth]", cert.ExtKeyUsage)
	}
	if cert.Issuer.CommonName != "TestCA" {
		t.Errorf("issuer CN = %q, want TestCA", cert.Issuer.CommonName)
	}
}

func TestU_Sign_UnknownProfile(t *testing.T) {
	ca, err := New("TestCA")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	_, err = ca.Sign(testCSRPEM(t, "x"), "bogus")
	if !errors.Is(err, ErrUnknownProfile) {
		t.Errorf("error = %v, want ErrUnknownProfile", err)
	}
}

func TestU_Sign_RejectsGarbage(t *testing.T) {
	ca, err := New("TestCA")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, err := ca.Sign([]byte("not a csr"), "server"); err == nil {
		t.Error("Sign should reject a non-PEM body")
	}
}

func TestU_Handler_Issuer(t *testing.T) {
	ca, err := New("TestCA")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	srv := httptest.NewServer(ca.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/issuer/TestCA.pem")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !bytes.Equal(body, ca.CertPEM()) {
		t.Error("issuer endpoint should serve the CA certificate verbatim")
	}

	// Wrong name is not found.
	resp2, err := http.Get(srv.URL + "/issuer/OtherCA.pem")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotFound {
		t.Errorf("status for unknown CA = %d, want 404", resp2.StatusCode)
	}
}

func TestU_Handler_Autosign(t *testing.T) {
	ca, err := New("TestCA")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	srv := httptest.NewServer(ca.Handler())
	defer srv.Close()

	csrPEM := testCSRPEM(t, "handler-cn")

	resp, err := http.Post(srv.URL+"/pki/TestCA/autosign?profile=server", contentTypePEM, bytes.NewReader(csrPEM))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %q", resp.StatusCode, body)
	}
	block, _ := pem.Decode(body)
	if block == nil || block.Type != "CERTIFICATE" {
		t.Fatal("response body should be a PEM certificate")
	}
}

func TestU_Handler_AutosignUnknownProfile(t *testing.T) {
	ca, err := New("TestCA")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	srv := httptest.NewServer(ca.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/pki/TestCA/autosign?profile=nope", contentTypePEM, bytes.NewReader(testCSRPEM(t, "x")))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if strings.TrimSpace(string(body)) != "profile unknown" {
		t.Errorf("body = %q, want the rejection reason", body)
	}
}
