package main

import (
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/notification-center/internal/app"
	"github.com/nhle/notification-center/internal/credential"
	"github.com/nhle/notification-center/internal/model"
	"github.com/nhle/notification-center/internal/notify"
	"github.com/nhle/notification-center/internal/preference"
	"github.com/nhle/notification-center/internal/remote"
)

func newPanelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "panel",
		Short: "Open the interactive notification panel (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPanel(cmd)
		},
	}
}

func runPanel(_ *cobra.Command) error {
	cfg, logger, closer, err := loadRuntime()
	if err != nil {
		return err
	}
	defer closer.Close()

	// The panel owns the terminal; logs go to the configured file only.
	if cfg.Logging.File == "" {
		logger.SetOutput(io.Discard)
	}

	userID := cfg.User.ID
	token := ""
	if userID != "" {
		tokens, err := credential.Open()
		if err != nil {
			logger.WithError(err).Warn("keyring unavailable; continuing signed out")
		} else if token, err = tokens.Token(userID); err != nil {
			logger.WithError(err).Warn("could not read token; continuing signed out")
		}
	}

	client := remote.NewClient(cfg.API.BaseURL, token, cfg.RequestTimeout())
	svc := remote.NewService(client)

	feed := notify.NewFeed(svc, userID, cfg.Notifications.UnreadOnly, logger)
	deps := app.Deps{
		UserID:        userID,
		Role:          model.Role(cfg.User.Role),
		Rules:         preference.AccessRulesFromConfig(cfg.Preferences.AccessRules),
		HasCredential: client.HasCredential(),
		Feed:          feed,
		Poller:        notify.NewPoller(feed, cfg.PollInterval(), logger),
		Mutator:       notify.NewMutator(feed, svc, logger),
		Preferences:   preference.NewService(svc, preference.NewStore(), logger),
		Logger:        logger,
	}

	p := tea.NewProgram(app.New(deps), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
