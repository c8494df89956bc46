package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"

	"jobcal/internal/google"
)

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with a Google account and log in to the backend.",
		Action: func(c *cli.Context) error {
			e, err := newEnv(c)
			if err != nil {
				return err
			}
			e.logger.Info("Starting Google authentication flow.")

			config, err := google.GetOAuthConfig(e.cfg.Google.ClientID, e.cfg.Google.ClientSecret)
			if err != nil {
				return fmt.Errorf("failed to get google oauth config: %w", err)
			}

			authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Printf("Go to the following link in your browser then type the "+
				"authorization code: \n%v\n", authURL)

			fmt.Print("Enter Authorization Code: ")
			reader := bufio.NewReader(os.Stdin)
			authCode, _ := reader.ReadString('\n')
			authCode = strings.TrimSpace(authCode)

			token, err := google.TokenFromWeb(c.Context, config, authCode)
			if err != nil {
				return fmt.Errorf("unable to retrieve token from web: %w", err)
			}
			if err := google.SaveToken(e.cfg.Google.TokenFile, token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}
			e.logger.Info("Successfully authenticated and saved token.", "file", e.cfg.Google.TokenFile)

			return e.login(c.Context, config, token)
		},
	}
}

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Log in to the backend with the saved Google token.",
		Action: func(c *cli.Context) error {
			e, err := newEnv(c)
			if err != nil {
				return err
			}
			config, err := google.GetOAuthConfig(e.cfg.Google.ClientID, e.cfg.Google.ClientSecret)
			if err != nil {
				return fmt.Errorf("failed to get google oauth config: %w", err)
			}
			token, err := google.TokenFromFile(e.cfg.Google.TokenFile)
			if err != nil {
				return fmt.Errorf("could not load google token: %w. Please run the 'auth' command first", err)
			}
			return e.login(c.Context, config, token)
		},
	}
}

// login exchanges a Google ID token for a backend session and stores it.
func (e *env) login(ctx context.Context, config *oauth2.Config, token *oauth2.Token) error {
	idToken, fresh, err := google.IDToken(ctx, config, token)
	if err != nil {
		return err
	}
	if fresh != token {
		if err := google.SaveToken(e.cfg.Google.TokenFile, fresh); err != nil {
			e.logger.Warn("Failed to save refreshed token", "error", err)
		}
	}

	res, err := e.client.LoginWithGoogle(ctx, idToken)
	if err != nil {
		return fmt.Errorf("backend login failed: %w", err)
	}
	if err := e.client.SaveSession(e.cfg.SessionFile); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	fmt.Printf("ログイン中: %s\n", res.User.Email)
	fmt.Printf("Gmail連携: %s\n", connected(res.GmailAuthorized))
	return nil
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "End the backend session.",
		Action: func(c *cli.Context) error {
			e, err := newEnv(c)
			if err != nil {
				return err
			}
			if err := e.client.Logout(c.Context); err != nil {
				e.logger.Warn("Backend logout failed, clearing local session anyway", "error", err)
			}
			if err := e.client.ClearSession(e.cfg.SessionFile); err != nil {
				return err
			}
			fmt.Println("ログアウトしました")
			return nil
		},
	}
}

func whoamiCommand() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Show the logged-in user and Gmail connection status.",
		Action: func(c *cli.Context) error {
			e, err := newEnv(c)
			if err != nil {
				return err
			}
			u, err := e.client.CurrentUser(c.Context)
			if err != nil {
				return err
			}
			fmt.Printf("ログイン中: %s (%s)\n", u.Email, u.Name)
			fmt.Printf("Gmail連携: %s\n", connected(u.GmailAuthorized))
			return nil
		},
	}
}

func connected(ok bool) string {
	if ok {
		return "済み"
	}
	return "未連携"
}
