// Command devtoken issues and inspects bearer tokens for local development.
package main

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/khainghsuthwe/ReserveMyTable/internal/auth"
	"github.com/khainghsuthwe/ReserveMyTable/internal/domain"
	"github.com/khainghsuthwe/ReserveMyTable/pkg/config"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "devtoken",
		Short:        "Issue and inspect development bearer tokens",
		SilenceUsage: true,
	}

	root.AddCommand(newIssueCmd())
	root.AddCommand(newVerifyCmd())
	root.AddCommand(newSecretCmd())

	return root
}

func tokenManager(ttl time.Duration) (*auth.TokenManager, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.IsProduction() {
		return nil, fmt.Errorf("devtoken refuses to run in production")
	}
	if ttl <= 0 {
		ttl = cfg.JWT.AccessTokenTTL
	}
	return auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, ttl), nil
}

func newIssueCmd() *cobra.Command {
	var (
		p   domain.Principal
		rl  string
		ttl time.Duration
	)

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Print a signed token for a principal",
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens, err := tokenManager(ttl)
			if err != nil {
				return err
			}
			p.Role = domain.Role(rl)
			token, err := tokens.Issue(&p)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&p.ID, "sub", "user-1", "principal id")
	cmd.Flags().StringVar(&p.Name, "name", "Dev User", "display name")
	cmd.Flags().StringVar(&p.Email, "email", "dev@example.com", "email")
	cmd.Flags().StringVar(&rl, "role", string(domain.RoleCustomer), "customer or owner")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default JWT_ACCESS_TOKEN_TTL)")
	return cmd
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify TOKEN",
		Short: "Validate a token and print its principal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens, err := tokenManager(0)
			if err != nil {
				return err
			}
			p, err := tokens.Validate(args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(p)
		},
	}
}

func newSecretCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "secret",
		Short: "Generate a random JWT_SECRET value",
		RunE: func(cmd *cobra.Command, args []string) error {
			b := make([]byte, 32)
			if _, err := rand.Read(b); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "export JWT_SECRET=%s\n", base64.StdEncoding.EncodeToString(b))
			return nil
		},
	}
}
