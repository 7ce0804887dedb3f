package main

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/remiblancher/pki-client/internal/devca"
)

var devcaCmd = &cobra.Command{
	Use:   "devca",
	Short: "Run a local autosign CA for development",
	Long: `Run an in-memory autosign CA exposing the endpoints the enroll
command expects. The root key and certificate are generated fresh on every
start and never written to disk: this is a development aid, not a CA.

Endpoints:
  GET  /issuer/{name}.pem
  POST /pki/{name}/autosign?profile={profile}

Examples:
  # Serve on the default port
  pki-client devca --name RootCA

  # Enroll against it
  pki-client enroll --ca-url http://localhost:8000 --ca-name RootCA \
      --cacert cacert.pem --key node.key --certificate node.crt --profile client`,
	RunE: runDevCA,
}

var (
	devcaName   string
	devcaListen string
)

func init() {
	flags := devcaCmd.Flags()
	flags.StringVar(&devcaName, "name", "RootCA", "Name of the CA")
	flags.StringVar(&devcaListen, "listen", ":8000", "Address to listen on")
}

func runDevCA(cmd *cobra.Command, args []string) error {
	authority, err := devca.New(devcaName)
	if err != nil {
		return fmt.Errorf("failed to initialize dev CA: %w", err)
	}

	profiles := devca.Profiles()
	sort.Strings(profiles)

	fmt.Printf("Dev CA %q listening on %s\n", devcaName, devcaListen)
	fmt.Printf("  GET  /issuer/%s.pem\n", devcaName)
	fmt.Printf("  POST /pki/%s/autosign?profile={%s}\n", devcaName, strings.Join(profiles, "|"))

	srv := &http.Server{
		Addr:              devcaListen,
		Handler:           authority.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}
