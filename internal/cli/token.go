package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/mcoot/draftroom/internal/dependencies/clock"
	"github.com/mcoot/draftroom/internal/model"
	"github.com/mcoot/draftroom/internal/services/auth"
	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage identity tokens",
	}

	cmd.AddCommand(newTokenSaveCmd())
	cmd.AddCommand(newTokenMintCmd())

	return cmd
}

func newTokenSaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save <token>",
		Short: "Save a token to the token file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.SaveToken(args[0]); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}
			NewOutput(cfg.Output).PrintMessage("Token saved to " + cfg.TokenFile)
			return nil
		},
	}
}

func newTokenMintCmd() *cobra.Command {
	var (
		userID        string
		name          string
		discriminator string
		roles         []string
		secret        string
		duration      time.Duration
		save          bool
	)

	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Sign a token with the server secret (development use)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return fmt.Errorf("a signing secret is required (--secret or DRAFTROOM_AUTH_SECRET)")
			}
			if userID == "" {
				return fmt.Errorf("--user is required")
			}

			svc := auth.New(clock.New(), auth.Config{Secret: secret, TokenDuration: duration})
			token, err := svc.IssueToken(model.DraftUser{
				ID:            model.UserID(userID),
				DisplayName:   name,
				Discriminator: discriminator,
			}, roles)
			if err != nil {
				return err
			}

			if save {
				if err := cfg.SaveToken(token); err != nil {
					return fmt.Errorf("failed to save token: %w", err)
				}
			}
			NewOutput(cfg.Output).PrintMessage(token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User ID (token subject)")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&discriminator, "discriminator", "", "Display discriminator")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "Roles to grant (e.g. organizer)")
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("DRAFTROOM_AUTH_SECRET"), "Signing secret")
	cmd.Flags().DurationVar(&duration, "duration", auth.DefaultConfig().TokenDuration, "Token lifetime")
	cmd.Flags().BoolVar(&save, "save", false, "Also save the token to the token file")

	return cmd
}
