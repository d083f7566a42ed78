package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Togather-Foundation/gallery/internal/auth"
	"github.com/Togather-Foundation/gallery/internal/domain/ids"
)

func newTokenCommand() *cobra.Command {
	var expiry time.Duration
	cmd := &cobra.Command{
		Use:   "token <profile-id>",
		Short: "Mint a bearer token for a profile (development only)",
		Long: `Sign a JWT for an existing profile with the configured JWT_SECRET.
The profile's role comes from the database at request time, so the same
command works for users and administrators.

Example:
  curl -H "Authorization: Bearer $(server token 6f1c8a4e-2b3d-4c5e-8f90-1a2b3c4d5e6f)" \
    http://localhost:8080/api/v1/me`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			if cfg.Environment == "production" {
				return fmt.Errorf("refusing to mint tokens in production")
			}

			profileID, err := ids.NormalizeUUID(args[0])
			if err != nil {
				return fmt.Errorf("invalid profile id: %w", err)
			}
			if expiry <= 0 {
				expiry = cfg.Auth.JWTExpiry
			}

			token, err := auth.NewJWTManager(cfg.Auth.JWTSecret, expiry, cfg.Auth.Issuer).Generate(profileID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&expiry, "expiry", 0, "token lifetime (default: JWT_EXPIRY)")
	return cmd
}
