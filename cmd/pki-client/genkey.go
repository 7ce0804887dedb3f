package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/remiblancher/pki-client/internal/keymat"
	"github.com/remiblancher/pki-client/internal/store"
)

var genkeyCmd = &cobra.Command{
	Use:   "genkey",
	Short: "Generate an RSA-4096 key pair",
	Long: `Generate a new RSA-4096 key pair and save the private key as a
PKCS#1 PEM file.

Examples:
  # Generate an unencrypted key
  pki-client genkey --out node.key

  # Generate a key encrypted with a passphrase from the environment
  pki-client genkey --out node.key --passphrase env:PKI_PASSPHRASE`,
	RunE: runGenkey,
}

var (
	genkeyOutput     string
	genkeyPassphrase string
)

func init() {
	flags := genkeyCmd.Flags()
	flags.StringVarP(&genkeyOutput, "out", "o", "", "Output file (required)")
	flags.StringVarP(&genkeyPassphrase, "passphrase", "p", "", "Passphrase for encryption (or env:VAR_NAME)")

	_ = genkeyCmd.MarkFlagRequired("out")
}

func runGenkey(cmd *cobra.Command, args []string) error {
	passphrase, err := resolvePassphrase(genkeyPassphrase)
	if err != nil {
		return err
	}

	fmt.Printf("Generating RSA-%d key pair...\n", keymat.KeySize)

	kp, err := keymat.GenerateKeyPair()
	if err != nil {
		return err
	}

	if err := store.NewFileStore().SavePrivateKey(genkeyOutput, kp, passphrase); err != nil {
		return fmt.Errorf("failed to save private key: %w", err)
	}

	fmt.Printf("Private key saved to: %s\n", genkeyOutput)
	if len(passphrase) == 0 {
		fmt.Println("WARNING: Private key is not encrypted.")
	} else {
		fmt.Println("Private key is encrypted with passphrase.")
	}

	return nil
}

// resolvePassphrase turns a passphrase flag value into bytes. The value
// "env:VAR_NAME" reads the passphrase from the environment so it does not
// appear in the process arguments.
func resolvePassphrase(value string) ([]byte, error) {
	if value == "" {
		return nil, nil
	}
	if name, ok := strings.CutPrefix(value, "env:"); ok {
		secret := os.Getenv(name)
		if secret == "" {
			return nil, fmt.Errorf("environment variable %s is empty or unset", name)
		}
		return []byte(secret), nil
	}
	return []byte(value), nil
}
