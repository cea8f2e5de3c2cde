package commands

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/jholhewres/streambot/pkg/streambot/bot"
)

// newSetupCmd creates the `streambot setup` command: an interactive form
// collecting the bot identity and platform credentials. Credentials go to
// the OS keyring when available, never to the config file.
func newSetupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Interactive configuration",
		RunE:  runSetup,
	}
}

func runSetup(cmd *cobra.Command, _ []string) error {
	var (
		identity     string
		apiKey       string
		apiSecret    string
		accessToken  string
		accessSecret string
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Bot username").
				Description("The account the bot posts as").
				Value(&identity),
		),
		huh.NewGroup(
			huh.NewInput().Title("API key").EchoMode(huh.EchoModePassword).Value(&apiKey),
			huh.NewInput().Title("API secret").EchoMode(huh.EchoModePassword).Value(&apiSecret),
			huh.NewInput().Title("Access token").EchoMode(huh.EchoModePassword).Value(&accessToken),
			huh.NewInput().Title("Access secret").EchoMode(huh.EchoModePassword).Value(&accessSecret),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	cfg := bot.DefaultConfig()
	cfg.Identity = identity

	if bot.KeyringAvailable() {
		secrets := map[string]string{
			"api_key":       apiKey,
			"api_secret":    apiSecret,
			"access_token":  accessToken,
			"access_secret": accessSecret,
		}
		for key, value := range secrets {
			if value == "" {
				continue
			}
			if err := bot.StoreKeyring(key, value); err != nil {
				return fmt.Errorf("storing %s in keyring: %w", key, err)
			}
		}
		fmt.Println("Credentials stored in the OS keyring.")
	} else {
		cfg.Credentials = bot.CredentialsConfig{
			APIKey:       apiKey,
			APISecret:    apiSecret,
			AccessToken:  accessToken,
			AccessSecret: accessSecret,
		}
		fmt.Println("OS keyring unavailable; credentials written to the config file.")
	}

	path, _ := cmd.Root().PersistentFlags().GetString("config")
	if err := bot.SaveConfigToFile(cfg, path); err != nil {
		return err
	}
	fmt.Printf("Configuration written to %s\n", path)
	return nil
}
