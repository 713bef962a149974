package cli

import (
	"context"
	"flag"
	"fmt"
	"strings"
)

func newPagesCommand() *Command {
	cmd := &Command{
		Name:        "pages",
		Description: "List pages accessible to the current user",
		Flags:       flag.NewFlagSet("pages", flag.ExitOnError),
		Run:         runPages,
	}

	cmd.Flags.Bool("all", false, "List every registered page, not just accessible ones")

	return cmd
}

func runPages(args []string) error {
	cmd := newPagesCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}
	all := cmd.Flags.Lookup("all").Value.String() == "true"

	env, err := newAppEnv()
	if err != nil {
		return err
	}
	defer env.Close()

	ctx := context.Background()
	if err := env.requireAuth(ctx); err != nil {
		return err
	}

	if all {
		pages, err := env.client.Pages(ctx)
		if err != nil {
			return err
		}
		for _, p := range pages {
			fmt.Printf("%-4d %-25s %s\n", p.ID, p.Name, p.URL)
		}
		return nil
	}

	if err := env.resolver.Refresh(ctx); err != nil {
		return err
	}
	for _, p := range env.resolver.Pages() {
		var caps []string
		if p.Permissions.CanView {
			caps = append(caps, "view")
		}
		if p.Permissions.CanCreate {
			caps = append(caps, "create")
		}
		if p.Permissions.CanEdit {
			caps = append(caps, "edit")
		}
		if p.Permissions.CanDelete {
			caps = append(caps, "delete")
		}
		fmt.Printf("%-4d %-25s %-30s %s\n", p.ID, p.Name, p.URL, strings.Join(caps, ","))
	}
	return nil
}
