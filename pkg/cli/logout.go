package cli

import (
	"flag"
	"fmt"
)

func newLogoutCommand() *Command {
	return &Command{
		Name:        "logout",
		Description: "Log out and purge the local session",
		Flags:       flag.NewFlagSet("logout", flag.ExitOnError),
		Run:         runLogout,
	}
}

func runLogout(args []string) error {
	cmd := newLogoutCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	env, err := newAppEnv()
	if err != nil {
		return err
	}
	defer env.Close()

	// logout succeeds regardless of the current session state
	if err := env.session.Logout(); err != nil {
		return err
	}

	fmt.Println("Logged out")
	return nil
}
