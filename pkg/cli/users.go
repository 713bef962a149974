package cli

import (
	"context"
	"flag"
	"fmt"
	"strconv"

	"github.com/pagegate/pagegate/pkg/api"
	"github.com/pagegate/pagegate/pkg/session"
)

func newUsersCommand() *Command {
	cmd := &Command{
		Name:        "users",
		Description: "Manage console accounts (superadmin)",
		Flags:       flag.NewFlagSet("users", flag.ExitOnError),
		Run:         runUsers,
	}

	cmd.Flags.String("action", "list", "Action: list, create, update, delete, perms")
	cmd.Flags.Int64("id", 0, "User ID (update, delete, perms)")
	cmd.Flags.String("email", "", "Email (create, update)")
	cmd.Flags.String("first-name", "", "First name (create, update)")
	cmd.Flags.String("last-name", "", "Last name (create, update)")
	cmd.Flags.String("password", "", "Password (create)")
	cmd.Flags.String("role", "user", "Role: user or superadmin (create, update)")

	return cmd
}

func runUsers(args []string) error {
	cmd := newUsersCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	action := cmd.Flags.Lookup("action").Value.String()
	id, _ := strconv.ParseInt(cmd.Flags.Lookup("id").Value.String(), 10, 64)
	email := cmd.Flags.Lookup("email").Value.String()
	firstName := cmd.Flags.Lookup("first-name").Value.String()
	lastName := cmd.Flags.Lookup("last-name").Value.String()
	password := cmd.Flags.Lookup("password").Value.String()
	role := cmd.Flags.Lookup("role").Value.String()

	env, err := newAppEnv()
	if err != nil {
		return err
	}
	defer env.Close()

	ctx := context.Background()
	if err := env.requireAuth(ctx); err != nil {
		return err
	}

	switch action {
	case "list":
		users, err := env.client.Users(ctx)
		if err != nil {
			return err
		}
		for _, u := range users {
			fmt.Printf("%-4d %-30s %-20s %s\n", u.ID, u.Email, u.FullName(), u.Role)
		}
		return nil

	case "create":
		if email == "" || password == "" {
			return fmt.Errorf("email and password are required")
		}
		created, err := env.client.CreateUser(ctx, api.NewUser{
			Email:     email,
			FirstName: firstName,
			LastName:  lastName,
			Password:  password,
			Role:      session.Role(role),
		})
		if err != nil {
			return err
		}
		fmt.Printf("Created user %d (%s)\n", created.ID, created.Email)
		return nil

	case "update":
		if id == 0 {
			return fmt.Errorf("id is required")
		}
		var update api.UserUpdate
		if email != "" {
			update.Email = &email
		}
		if firstName != "" {
			update.FirstName = &firstName
		}
		if lastName != "" {
			update.LastName = &lastName
		}
		if visited(cmd.Flags, "role") {
			r := session.Role(role)
			update.Role = &r
		}
		updated, err := env.client.UpdateUser(ctx, id, update)
		if err != nil {
			return err
		}
		fmt.Printf("Updated user %d (%s)\n", updated.ID, updated.Email)
		return nil

	case "delete":
		if id == 0 {
			return fmt.Errorf("id is required")
		}
		if err := env.client.DeleteUser(ctx, id); err != nil {
			return err
		}
		fmt.Printf("Deleted user %d\n", id)
		return nil

	case "perms":
		if id == 0 {
			return fmt.Errorf("id is required")
		}
		pages, err := env.client.UserPermissions(ctx, id)
		if err != nil {
			return err
		}
		for _, p := range pages {
			fmt.Printf("%-4d %-25s view=%v create=%v edit=%v delete=%v\n",
				p.ID, p.Name, p.Permissions.CanView, p.Permissions.CanCreate,
				p.Permissions.CanEdit, p.Permissions.CanDelete)
		}
		return nil

	default:
		return fmt.Errorf("unknown action: %s", action)
	}
}

// visited reports whether a flag was set explicitly on the command line
func visited(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
