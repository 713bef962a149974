package api

import (
	"context"
	"fmt"

	"github.com/pagegate/pagegate/pkg/session"
)

// Users lists all accounts. Superadmin only; regular users receive
// ErrPermissionDenied from the backend.
func (c *Client) Users(ctx context.Context) ([]session.Identity, error) {
	var users []session.Identity
	if err := c.do(ctx, "GET", "/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// CreateUser provisions a new account
func (c *Client) CreateUser(ctx context.Context, user NewUser) (*session.Identity, error) {
	var created session.Identity
	if err := c.do(ctx, "POST", "/users", user, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateUser applies a partial update to an account; nil fields are untouched
func (c *Client) UpdateUser(ctx context.Context, id int64, update UserUpdate) (*session.Identity, error) {
	var updated session.Identity
	path := fmt.Sprintf("/users/%d", id)
	if err := c.do(ctx, "PUT", path, update, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteUser removes an account
func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return c.do(ctx, "DELETE", fmt.Sprintf("/users/%d", id), nil, nil)
}

// UserPermissions lists another user's page grants, for the superadmin
// permission-management screens
func (c *Client) UserPermissions(ctx context.Context, id int64) ([]PageAccess, error) {
	var pages []PageAccess
	path := fmt.Sprintf("/users/%d/permissions", id)
	if err := c.do(ctx, "GET", path, nil, &pages); err != nil {
		return nil, err
	}
	return pages, nil
}
