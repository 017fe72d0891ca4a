package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var spotifyCmd = &cobra.Command{
	Use:   "spotify",
	Short: "Manage the now-playing integration",
}

var spotifyNowPlayingCmd = &cobra.Command{
	Use:   "now-playing",
	Short: "Fetch the current playback status once",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		st := a.playback.Fetch(cmd.Context())
		out := cmd.OutOrStdout()
		if flagJSON {
			return printJSON(out, st)
		}

		switch {
		case st.ErrorReason != "":
			fmt.Fprintln(out, errorStyle.Render("✗ "+st.ErrorReason))
		case !st.IsActive:
			fmt.Fprintln(out, mutedStyle.Render("nothing playing"))
		default:
			fmt.Fprintf(out, "%s %s\n", titleStyle.Render(st.Title), mutedStyle.Render("by "+st.Performer))
			if st.CollectionName != "" {
				printKV(out, "Album", st.CollectionName)
			}
			if st.ElapsedMs != nil && st.TotalMs != nil {
				printKV(out, "Position", fmt.Sprintf("%s / %s", msDuration(*st.ElapsedMs), msDuration(*st.TotalMs)))
			}
			if st.ExternalURL != "" {
				printKV(out, "Link", st.ExternalURL)
			}
		}
		return nil
	},
}

var spotifyAuthorizeURLCmd = &cobra.Command{
	Use:   "authorize-url",
	Short: "Print the URL that grants this app access to playback state",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		if a.cfg.Spotify.ClientID == "" {
			return errors.New("spotify client id is not configured")
		}
		state, err := randomState()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, titleStyle.Render("1. Visit this URL to authorize:"))
		fmt.Fprintln(out, a.playback.AuthCodeURL(state))
		fmt.Fprintln(out, titleStyle.Render("2. You will be redirected to:"))
		fmt.Fprintln(out, a.cfg.Spotify.RedirectURI+"?code=YOUR_CODE")
		fmt.Fprintln(out, titleStyle.Render("3. Exchange the code:"))
		fmt.Fprintln(out, "folio spotify exchange YOUR_CODE")
		return nil
	},
}

var spotifyExchangeCmd = &cobra.Command{
	Use:   "exchange <code>",
	Short: "Exchange an authorization code for a refresh token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		tok, err := a.playback.Exchange(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("%w (run `folio spotify authorize-url` for a fresh code)", err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, okStyle.Render("✓ authorization code exchanged"))
		fmt.Fprintln(out, codeBoxStyle.Render("SPOTIFY_REFRESH_TOKEN="+tok.RefreshToken))
		if !tok.Expiry.IsZero() {
			printKV(out, "Access token expires in", time.Until(tok.Expiry).Round(time.Second).String())
		}
		return nil
	},
}

func init() {
	spotifyCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "print JSON instead of text")
	spotifyCmd.AddCommand(spotifyNowPlayingCmd)
	spotifyCmd.AddCommand(spotifyAuthorizeURLCmd)
	spotifyCmd.AddCommand(spotifyExchangeCmd)
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func msDuration(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
