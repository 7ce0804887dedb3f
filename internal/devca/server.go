package devca

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// maxCSRSize bounds the request body the autosign endpoint accepts.
const maxCSRSize = 1 << 20

// contentTypePEM is the media type for PEM bodies.
const contentTypePEM = "application/x-pem-file"

// Handler returns the HTTP handler exposing the autosign protocol:
//
//	GET  /issuer/{name}.pem
//	POST /pki/{name}/autosign?profile={profile}
func (ca *CA) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/issuer/{name}.pem", ca.handleIssuer)
	r.Post("/pki/{name}/autosign", ca.handleAutosign)
	return r
}

// handleIssuer serves the CA's own certificate for trust bootstrapping.
func (ca *CA) handleIssuer(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "name") != ca.name {
		http.Error(w, "unknown CA", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", contentTypePEM)
	_, _ = w.Write(ca.certPEM)
}

// handleAutosign signs the submitted CSR synchronously. Rejections carry a
// plain-text reason in the body; the client surfaces it verbatim.
func (ca *CA) handleAutosign(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "name") != ca.name {
		http.Error(w, "unknown CA", http.StatusNotFound)
		return
	}

	csrPEM, err := io.ReadAll(io.LimitReader(r.Body, maxCSRSize))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	certPEM, err := ca.Sign(csrPEM, r.URL.Query().Get("profile"))
	if err != nil {
		if !errors.Is(err, ErrUnknownProfile) {
			log.Printf("devca: refusing CSR: %v", err)
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", contentTypePEM)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(certPEM)
}
