package main

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/raffaelramalhorosa/folio-api/internal/config"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactively configure the journal and now-playing integrations",
	Long: `Prompt for the Notion integration token, the journal database and the
Spotify client credentials, validate them, and write the config file.

Before you start, create a Notion integration, a database with the
properties Title, Date, Excerpt, Category and Status, and share the
database with the integration.`,
	RunE: runSetup,
}

func runSetup(cmd *cobra.Command, args []string) error {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return fmt.Errorf("inspect stdin: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 {
		return errors.New("setup requires a terminal; edit the config file or set environment variables instead")
	}

	cfg, err := config.LoadFile(flagConfig)
	if err != nil {
		return err
	}

	token := cfg.Notion.Token
	dbInput := cfg.Notion.DatabaseID
	clientID := cfg.Spotify.ClientID
	clientSecret := cfg.Spotify.ClientSecret
	refresh := cfg.Spotify.RefreshToken
	withSpotify := clientID != ""
	save := true

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Notion integration token").
				Description("Starts with secret_ or ntn_").
				EchoMode(huh.EchoModePassword).
				Value(&token).
				Validate(validateNotionToken),
			huh.NewInput().
				Title("Journal database").
				Description("Database ID or the database URL").
				Value(&dbInput).
				Validate(func(s string) error {
					_, err := normalizeDatabaseID(s)
					return err
				}),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Configure the now-playing widget?").
				Value(&withSpotify),
		),
		huh.NewGroup(
			huh.NewInput().Title("Spotify client ID").Value(&clientID).Validate(required("client ID")),
			huh.NewInput().Title("Spotify client secret").EchoMode(huh.EchoModePassword).Value(&clientSecret).Validate(required("client secret")),
			huh.NewInput().
				Title("Spotify refresh token").
				Description("Leave empty and run `folio spotify authorize-url` to obtain one").
				EchoMode(huh.EchoModePassword).
				Value(&refresh),
		).WithHideFunc(func() bool { return !withSpotify }),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Write config to " + configPath() + "?").
				Value(&save),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("setup aborted: %w", err)
	}
	if !save {
		fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("nothing written"))
		return nil
	}

	dbID, _ := normalizeDatabaseID(dbInput)
	cfg.Notion.Token = strings.TrimSpace(token)
	cfg.Notion.DatabaseID = dbID
	if withSpotify {
		cfg.Spotify.ClientID = strings.TrimSpace(clientID)
		cfg.Spotify.ClientSecret = strings.TrimSpace(clientSecret)
		cfg.Spotify.RefreshToken = strings.TrimSpace(refresh)
	}

	if err := config.Save(flagConfig, cfg); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, okStyle.Render("✓ configuration saved to "+configPath()))
	printKV(out, "Database", dbID)
	if withSpotify && cfg.Spotify.RefreshToken == "" {
		fmt.Fprintln(out, warnStyle.Render("no refresh token yet: run `folio spotify authorize-url`"))
	}
	fmt.Fprintln(out, mutedStyle.Render("verify with `folio journal test`"))
	return nil
}

func configPath() string {
	if flagConfig != "" {
		return flagConfig
	}
	return config.DefaultConfigPath()
}

func required(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

var (
	hexID      = regexp.MustCompile(`^[a-fA-F0-9]{32}$`)
	hexIDInURL = regexp.MustCompile(`([a-fA-F0-9]{32})`)
)

// validateNotionToken checks the shape of an internal integration token.
func validateNotionToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token is required")
	}
	if !strings.HasPrefix(token, "secret_") && !strings.HasPrefix(token, "ntn_") {
		return errors.New("token should start with secret_ or ntn_")
	}
	if len(token) < 40 {
		return errors.New("token looks too short")
	}
	return nil
}

// normalizeDatabaseID accepts a bare or dashed 32-hex id or a notion.so URL
// and returns the bare id.
func normalizeDatabaseID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("database id is required")
	}
	if strings.Contains(raw, "notion.so") {
		// Drop the query so a view id (?v=...) is not picked up instead.
		if i := strings.IndexByte(raw, '?'); i >= 0 {
			raw = raw[:i]
		}
		m := hexIDInURL.FindAllString(strings.ReplaceAll(raw, "-", ""), -1)
		if len(m) == 0 {
			return "", errors.New("no database id found in URL")
		}
		return strings.ToLower(m[len(m)-1]), nil
	}
	id := strings.ReplaceAll(raw, "-", "")
	if !hexID.MatchString(id) {
		return "", errors.New("database id must be 32 hex characters")
	}
	return strings.ToLower(id), nil
}
