package cli

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/pagegate/pagegate/pkg/api"
)

func newWhoamiCommand() *Command {
	return &Command{
		Name:        "whoami",
		Description: "Show the current session",
		Flags:       flag.NewFlagSet("whoami", flag.ExitOnError),
		Run:         runWhoami,
	}
}

func runWhoami(args []string) error {
	cmd := newWhoamiCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	env, err := newAppEnv()
	if err != nil {
		return err
	}
	defer env.Close()

	if err := env.requireAuth(context.Background()); err != nil {
		return err
	}

	identity := env.session.Identity()
	fmt.Printf("Email: %s\n", identity.Email)
	fmt.Printf("Name:  %s\n", identity.FullName())
	fmt.Printf("Role:  %s\n", identity.Role)

	creds, err := env.store.Credentials()
	if err != nil {
		return err
	}
	if exp, err := api.AccessTokenExpiry(creds.AccessToken); err == nil {
		fmt.Printf("Access token expires in %s\n", time.Until(exp).Round(time.Second))
	}

	last, err := env.store.LastActivity()
	if err == nil && !last.IsZero() {
		fmt.Printf("Last activity: %s\n", last.Format(time.RFC3339))
	}
	return nil
}
