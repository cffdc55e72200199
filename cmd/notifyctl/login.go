package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/notification-center/internal/credential"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Store the API token for the configured user",
		Long: `Prompt for an API token and store it in the system keyring.

The token is saved under the user id from user.id in the config file and
never appears in shell history.
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, closer, err := loadRuntime()
			if err != nil {
				return err
			}
			defer closer.Close()

			userID := cfg.User.ID
			if userID == "" {
				return errors.New("no user configured; set user.id in the config file")
			}

			var token string
			form := huh.NewForm(
				huh.NewGroup(
					huh.NewInput().
						Title("API token").
						Description("Token for " + userID).
						EchoMode(huh.EchoModePassword).
						Value(&token).
						Validate(func(s string) error {
							if strings.TrimSpace(s) == "" {
								return errors.New("token is required")
							}
							return nil
						}),
				),
			)
			if err := form.Run(); err != nil {
				return err
			}

			tokens, err := credential.Open()
			if err != nil {
				return err
			}
			if err := tokens.SetToken(userID, strings.TrimSpace(token)); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Token saved for %s.\n", userID)
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored API token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, closer, err := loadRuntime()
			if err != nil {
				return err
			}
			defer closer.Close()

			if cfg.User.ID == "" {
				return errors.New("no user configured; set user.id in the config file")
			}

			tokens, err := credential.Open()
			if err != nil {
				return err
			}
			if err := tokens.DeleteToken(cfg.User.ID); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Token removed for %s.\n", cfg.User.ID)
			return nil
		},
	}
}
