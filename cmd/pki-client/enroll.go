package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/remiblancher/pki-client/internal/config"
	"github.com/remiblancher/pki-client/internal/enroll"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Enroll a certificate against the CA's autosign endpoint",
	Long: `Enroll performs the complete workflow:

  1. Fetches the CA certificate and saves it (trust bootstrap)
  2. Generates an RSA-4096 key pair
  3. Builds a CSR whose common name is a unique generated identifier
  4. Submits the CSR for automatic signing under the given profile
  5. Saves the private key and the signed certificate as PEM files

The private key is written unencrypted unless --passphrase is given.

Examples:
  # Basic enrollment
  pki-client enroll --ca-url https://ca.example.com:8000 --ca-name RootCA \
      --cacert cacert.pem --key node.key --certificate node.crt --profile client

  # With a common-name prefix and an encrypted key
  pki-client enroll --ca-url https://ca.example.com:8000 --ca-name RootCA \
      --cacert cacert.pem --key node.key --certificate node.crt \
      --profile server --common-name-prefix node-a --passphrase env:PKI_PASSPHRASE

  # Defaults from a config file, flags override
  pki-client enroll --config client.yaml --profile ocsp`,
	RunE: runEnroll,
}

var (
	enrollCAURL      string
	enrollCAName     string
	enrollCACert     string
	enrollKey        string
	enrollCert       string
	enrollPrefix     string
	enrollProfile    string
	enrollPassphrase string
	enrollConfig     string
)

func init() {
	flags := enrollCmd.Flags()
	flags.StringVar(&enrollCAURL, "ca-url", "", "Base URL of the CA (required)")
	flags.StringVar(&enrollCAName, "ca-name", "", "Name of the CA (required)")
	flags.StringVar(&enrollCACert, "cacert", "", "Path where to save the CA certificate (required)")
	flags.StringVar(&enrollKey, "key", "", "Path where to save the private key (required)")
	flags.StringVar(&enrollCert, "certificate", "", "Path where to save the certificate (required)")
	flags.StringVar(&enrollPrefix, "common-name-prefix", "", "Prefix for the common name (CN)")
	flags.StringVar(&enrollProfile, "profile", "", "Profile for certificate purpose, e.g. server, client, ocsp (required)")
	flags.StringVar(&enrollPassphrase, "passphrase", "", "Passphrase for the private key (or env:VAR_NAME); empty writes it unencrypted")
	flags.StringVar(&enrollConfig, "config", "", "YAML file supplying defaults for the flags above")
}

func runEnroll(cmd *cobra.Command, args []string) error {
	if enrollConfig != "" {
		cfg, err := config.Load(enrollConfig)
		if err != nil {
			return err
		}
		applyConfig(cmd, cfg)
	}

	if err := checkEnrollFlags(); err != nil {
		return err
	}

	passphrase, err := resolvePassphrase(enrollPassphrase)
	if err != nil {
		return err
	}

	result, err := enroll.Run(enroll.Options{
		CAURL:            enrollCAURL,
		CAName:           enrollCAName,
		CACertPath:       enrollCACert,
		KeyPath:          enrollKey,
		CertPath:         enrollCert,
		CommonNamePrefix: enrollPrefix,
		Profile:          enrollProfile,
		Passphrase:       passphrase,
	})
	if err != nil {
		return err
	}

	fmt.Println("Enrollment successful!")
	fmt.Println()
	fmt.Printf("Common name: %s\n", result.CommonName)
	fmt.Printf("Serial:      %s\n", result.Certificate.SerialNumber)
	fmt.Printf("Valid:       %s to %s\n",
		result.Certificate.NotBefore.Format("2006-01-02"),
		result.Certificate.NotAfter.Format("2006-01-02"))
	fmt.Println()
	fmt.Println("Files created:")
	fmt.Printf("  %s\n", enrollCACert)
	fmt.Printf("  %s\n", enrollKey)
	fmt.Printf("  %s\n", enrollCert)
	if len(passphrase) == 0 {
		fmt.Println()
		fmt.Println("WARNING: Private key is not encrypted.")
	}

	return nil
}

// applyConfig fills in flags the operator did not set explicitly.
func applyConfig(cmd *cobra.Command, cfg *config.Config) {
	set := func(name string, target *string, value string) {
		if !cmd.Flags().Changed(name) && value != "" {
			*target = value
		}
	}
	set("ca-url", &enrollCAURL, cfg.CAURL)
	set("ca-name", &enrollCAName, cfg.CAName)
	set("cacert", &enrollCACert, cfg.CACert)
	set("key", &enrollKey, cfg.Key)
	set("certificate", &enrollCert, cfg.Certificate)
	set("common-name-prefix", &enrollPrefix, cfg.CommonNamePrefix)
	set("profile", &enrollProfile, cfg.Profile)
}

// checkEnrollFlags validates the merged flag set. Required flags cannot use
// cobra's MarkFlagRequired because a config file may supply them.
func checkEnrollFlags() error {
	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"ca-url", enrollCAURL},
		{"ca-name", enrollCAName},
		{"cacert", enrollCACert},
		{"key", enrollKey},
		{"certificate", enrollCert},
		{"profile", enrollProfile},
	} {
		if f.value == "" {
			missing = append(missing, "--"+f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required flags: %s", strings.Join(missing, ", "))
	}
	return nil
}
