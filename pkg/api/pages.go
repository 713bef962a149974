package api

import "context"

// Pages lists every page registered in the console
func (c *Client) Pages(ctx context.Context) ([]Page, error) {
	var pages []Page
	if err := c.do(ctx, "GET", "/pages", nil, &pages); err != nil {
		return nil, err
	}
	return pages, nil
}

// AccessiblePages lists the pages the current user may reach, each with the
// caller's resolved grant. This is the single source the permission resolver
// hydrates from.
func (c *Client) AccessiblePages(ctx context.Context) ([]PageAccess, error) {
	var pages []PageAccess
	if err := c.do(ctx, "GET", "/user-accessible-pages", nil, &pages); err != nil {
		return nil, err
	}
	return pages, nil
}

// UpdatePermissions replaces the grant for one (user, page) pair and returns
// the grant as stored
func (c *Client) UpdatePermissions(ctx context.Context, update PermissionUpdate) (*Grant, error) {
	var grant Grant
	if err := c.do(ctx, "POST", "/permissions/update", update, &grant); err != nil {
		return nil, err
	}
	return &grant, nil
}
