package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/solatis/docupdate/internal/core/auth"
	"github.com/solatis/docupdate/internal/core/config"
	"github.com/solatis/docupdate/internal/types"
)

var apiKeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage API keys",
}

var apiKeyCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Issue an API key for a tenant",
	Long: `create issues a key signed with one of the configured HMAC secrets.
The key is printed once and only its hash is stored.`,
	Args: cobra.NoArgs,
	RunE: runAPIKeyCreate,
}

var apiKeyRevokeCmd = &cobra.Command{
	Use:   "revoke KEY_ID",
	Short: "Revoke an API key",
	Args:  cobra.ExactArgs(1),
	RunE:  runAPIKeyRevoke,
}

func init() {
	rootCmd.AddCommand(apiKeyCmd)
	apiKeyCmd.AddCommand(apiKeyCreateCmd, apiKeyRevokeCmd)
	apiKeyCreateCmd.Flags().String("tenant", "", "tenant the key grants access to")
	apiKeyCreateCmd.Flags().String("name", "", "human readable key name")
	apiKeyCreateCmd.Flags().String("secret-id", "", "HMAC secret to sign with (default: the only configured one)")
	apiKeyCreateCmd.MarkFlagRequired("tenant")
}

func newAuthenticator() (*auth.Authenticator, func(), error) {
	database, queries, err := openDatabase()
	if err != nil {
		return nil, nil, err
	}
	secrets, err := config.HMACSecrets()
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to load HMAC secrets: %w", err)
	}
	return auth.NewAuthenticator(secrets, queries), func() { database.Close() }, nil
}

func runAPIKeyCreate(cmd *cobra.Command, args []string) error {
	tenant, _ := cmd.Flags().GetString("tenant")
	name, _ := cmd.Flags().GetString("name")
	secretID, _ := cmd.Flags().GetString("secret-id")

	if secretID == "" {
		secrets, err := config.HMACSecrets()
		if err != nil {
			return fmt.Errorf("failed to load HMAC secrets: %w", err)
		}
		if len(secrets) != 1 {
			return fmt.Errorf("--secret-id required when %d HMAC secrets are configured", len(secrets))
		}
		for id := range secrets {
			secretID = id
		}
	}

	a, closeDB, err := newAuthenticator()
	if err != nil {
		return err
	}
	defer closeDB()

	key, keyID, err := a.IssueKey(cmd.Context(), types.TenantID(tenant), name, secretID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "key_id: %s\napi_key: %s\n", keyID, key)
	return nil
}

func runAPIKeyRevoke(cmd *cobra.Command, args []string) error {
	a, closeDB, err := newAuthenticator()
	if err != nil {
		return err
	}
	defer closeDB()

	if err := a.RevokeKey(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "revoked %s\n", args[0])
	return nil
}
