package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/logyard/queuedash/internal/auth"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate the Ed25519 key pair for operator tokens",
	Long:  "Writes operator_private.pem (keep it secret) and operator_public.pem into --dir. Existing keys are never overwritten.",
	Args:  cobra.NoArgs,
	RunE:  runKeygen,
}

func init() {
	keygenCmd.Flags().String("dir", "data", "directory for the key files")
}

func runKeygen(cmd *cobra.Command, _ []string) error {
	dir, _ := cmd.Flags().GetString("dir")
	privPath, pubPath, err := auth.GenerateKeyPair(dir)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "private key: %s\n", privPath)
	fmt.Fprintf(out, "public key:  %s\n", pubPath)
	fmt.Fprintf(out, "\nServe with QUEUEDASH_JWT_PUBLIC_KEY=%s\n", pubPath)
	fmt.Fprintf(out, "Mint tokens with: queuedash token --key %s --subject <name>\n", privPath)
	return nil
}
