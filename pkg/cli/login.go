package cli

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
)

func newLoginCommand() *Command {
	cmd := &Command{
		Name:        "login",
		Description: "Log in to the console backend",
		Flags:       flag.NewFlagSet("login", flag.ExitOnError),
		Run:         runLogin,
	}

	cmd.Flags.String("email", "", "Account email")
	cmd.Flags.String("password", "", "Account password (prompted when omitted)")

	return cmd
}

func runLogin(args []string) error {
	cmd := newLoginCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	email := cmd.Flags.Lookup("email").Value.String()
	password := cmd.Flags.Lookup("password").Value.String()

	if email == "" {
		return fmt.Errorf("email is required")
	}
	if password == "" {
		fmt.Print("Password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = strings.TrimSpace(line)
	}

	env, err := newAppEnv()
	if err != nil {
		return err
	}
	defer env.Close()

	identity, err := env.session.Login(context.Background(), email, password)
	if err != nil {
		return err
	}
	if err := env.monitor.Touch(); err != nil {
		return err
	}

	fmt.Printf("Logged in as %s (%s)\n", identity.FullName(), identity.Role)
	fmt.Printf("Landing page: %s\n", env.session.Destination())
	return nil
}
