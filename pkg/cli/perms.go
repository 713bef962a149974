package cli

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/pagegate/pagegate/pkg/api"
	"github.com/pagegate/pagegate/pkg/permissions"
)

func newPermsCommand() *Command {
	cmd := &Command{
		Name:        "perms",
		Description: "Check or update page permissions",
		Flags:       flag.NewFlagSet("perms", flag.ExitOnError),
		Run:         runPerms,
	}

	cmd.Flags.Int64("page", 0, "Page ID")
	cmd.Flags.String("check", "", "Action to check: view, create, edit, delete")
	cmd.Flags.Int64("user", 0, "User ID for a grant update (superadmin)")
	cmd.Flags.String("grant", "", "Comma-separated capabilities for the update, e.g. view,edit")

	return cmd
}

func runPerms(args []string) error {
	cmd := newPermsCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	pageID, _ := strconv.ParseInt(cmd.Flags.Lookup("page").Value.String(), 10, 64)
	check := cmd.Flags.Lookup("check").Value.String()
	userID, _ := strconv.ParseInt(cmd.Flags.Lookup("user").Value.String(), 10, 64)
	grant := cmd.Flags.Lookup("grant").Value.String()

	if pageID == 0 {
		return fmt.Errorf("page is required")
	}

	env, err := newAppEnv()
	if err != nil {
		return err
	}
	defer env.Close()

	ctx := context.Background()
	if err := env.requireAuth(ctx); err != nil {
		return err
	}

	switch {
	case check != "":
		if err := env.resolver.Refresh(ctx); err != nil {
			return err
		}
		allowed := env.resolver.Check(pageID, permissions.Action(check))
		fmt.Printf("%s on page %d: %v\n", check, pageID, allowed)
		return nil

	case userID != 0:
		update := api.PermissionUpdate{UserID: userID, PageID: pageID}
		for _, cap := range splitList(grant) {
			switch cap {
			case "view":
				update.CanView = true
			case "create":
				update.CanCreate = true
			case "edit":
				update.CanEdit = true
			case "delete":
				update.CanDelete = true
			default:
				return fmt.Errorf("unknown capability: %s", cap)
			}
		}
		stored, err := env.client.UpdatePermissions(ctx, update)
		if err != nil {
			return err
		}
		// a grant update aimed at ourselves must not serve stale answers
		if err := env.resolver.HandleGrantUpdate(ctx, update.UserID); err != nil {
			return err
		}
		fmt.Printf("user %d page %d: view=%v create=%v edit=%v delete=%v\n",
			userID, pageID, stored.CanView, stored.CanCreate, stored.CanEdit, stored.CanDelete)
		return nil

	default:
		return fmt.Errorf("either -check or -user is required")
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
