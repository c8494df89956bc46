package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

func gmailCommand() *cli.Command {
	return &cli.Command{
		Name:  "gmail",
		Usage: "Connect Gmail and inspect imported messages.",
		Subcommands: []*cli.Command{
			{
				Name:  "authorize",
				Usage: "Print the URL that connects Gmail to your account.",
				Action: func(c *cli.Context) error {
					e, err := newEnv(c)
					if err != nil {
						return err
					}
					u, err := e.client.GmailAuthorizeURL(c.Context)
					if err != nil {
						return err
					}
					fmt.Printf("Open the following link in your browser to connect Gmail:\n%s\n", u)
					return nil
				},
			},
			{
				Name:  "emails",
				Usage: "List the latest inbox messages.",
				Action: func(c *cli.Context) error {
					e, err := newEnv(c)
					if err != nil {
						return err
					}
					emails, err := e.client.Emails(c.Context)
					if err != nil {
						return err
					}
					for _, m := range emails {
						fmt.Printf("%s (%s)\n  %s\n", m.Subject, m.From, m.Snippet)
					}
					return nil
				},
			},
			{
				Name:  "import",
				Usage: "Import new inbox messages as events on the backend.",
				Action: func(c *cli.Context) error {
					e, err := newEnv(c)
					if err != nil {
						return err
					}
					res, err := e.client.ImportGmail(c.Context)
					if err != nil {
						return err
					}
					fmt.Printf("取り込んだメール: %d 件, 新しい予定: %d 件\n", res.ImportedEmails, len(res.NewEvents))
					printEvents(res.NewEvents, e.loc)
					return nil
				},
			},
		},
	}
}
