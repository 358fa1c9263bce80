package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/logyard/queuedash/internal/auth"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an operator token for agent start/stop",
	Long:  "Signs a token with an Ed25519 private key. The server verifies it with the matching public key set in QUEUEDASH_JWT_PUBLIC_KEY.",
	Args:  cobra.NoArgs,
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().String("key", "", "path to the Ed25519 private key (PEM)")
	tokenCmd.Flags().String("subject", "", "operator name recorded with each action")
	tokenCmd.Flags().Duration("ttl", 12*time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("key")
	_ = tokenCmd.MarkFlagRequired("subject")
}

func runToken(cmd *cobra.Command, _ []string) error {
	keyPath, _ := cmd.Flags().GetString("key")
	subject, _ := cmd.Flags().GetString("subject")
	ttl, _ := cmd.Flags().GetDuration("ttl")

	priv, err := auth.LoadPrivateKey(keyPath)
	if err != nil {
		return err
	}
	token, expires, err := auth.Issue(priv, subject, ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expires.Local().Format(time.RFC3339))
	return nil
}
