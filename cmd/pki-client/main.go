// Command pki-client enrolls X.509 client certificates against a CA that
// exposes an HTTP autosign endpoint.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pki-client",
	Short: "Certificate enrollment client for autosign CAs",
	Long: `pki-client generates a key pair, builds a CSR with a unique common
name, submits it to a CA's autosign endpoint, and saves the key and the
signed certificate as PEM files.

The CA is expected to expose:
  GET  {ca-url}/issuer/{ca-name}.pem              its own certificate
  POST {ca-url}/pki/{ca-name}/autosign?profile=p  synchronous CSR signing

Examples:
  # Enroll a client certificate
  pki-client enroll --ca-url https://ca.example.com:8000 --ca-name RootCA \
      --cacert cacert.pem --key node.key --certificate node.crt \
      --profile client --common-name-prefix node-a

  # Generate just the RSA-4096 key pair
  pki-client genkey --out node.key

  # Run a local autosign CA for development
  pki-client devca --name RootCA --listen :8000`,
	Version: version,
}

func init() {
	rootCmd.AddCommand(enrollCmd)
	rootCmd.AddCommand(genkeyCmd)
	rootCmd.AddCommand(devcaCmd)
}
