package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/celerix-dev/celerix-prefs/internal/auth"
	"github.com/celerix-dev/celerix-prefs/internal/config"
	"github.com/celerix-dev/celerix-prefs/internal/tenant"
	"github.com/celerix-dev/celerix-prefs/pkg/schema"
)

func newTokenCommand() *cobra.Command {
	v := config.NewViper()
	var tenantName, subject, caps string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a signed access token",
		Long: "Print an access token signed with the daemon's token secret. The secret is\n" +
			"read from --token-secret or CELERIX_PREFS_TOKEN_SECRET.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret := v.GetString("token-secret")
			if secret == "" {
				return errors.New("a token secret is required")
			}
			if tenantName != "" {
				if _, err := tenant.Resolve(tenantName); err != nil {
					return fmt.Errorf("invalid tenant %q: %w", tenantName, err)
				}
			}
			capabilities, err := schema.ParseCapabilities(caps)
			if err != nil {
				return err
			}

			now := time.Now()
			claims := schema.Claims{
				Tenant: tenantName,
				Caps:   capabilities,
				RegisteredClaims: jwt.RegisteredClaims{
					ID:       uuid.NewString(),
					Subject:  subject,
					IssuedAt: jwt.NewNumericDate(now),
				},
			}
			if ttl > 0 {
				claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
			}

			token, err := auth.Mint(secret, claims)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().String("token-secret", "", "HMAC secret shared with the daemon")
	if err := v.BindPFlag("token-secret", cmd.Flags().Lookup("token-secret")); err != nil {
		panic(err)
	}
	cmd.Flags().StringVar(&tenantName, "tenant", "", "tenant the token is restricted to; empty allows any tenant")
	cmd.Flags().StringVar(&subject, "subject", "", "subject recorded in the token")
	cmd.Flags().StringVar(&caps, "caps", "read,write", "comma separated capabilities (read, write)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime; 0 never expires")
	return cmd
}
