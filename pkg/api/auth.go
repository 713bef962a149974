package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/pagegate/pagegate/pkg/session"
)

// LoginSuperAdmin authenticates against the superadmin endpoint. On success
// the returned tokens and identity are persisted to the session store. An
// account the backend authenticates without superadmin standing is rejected
// with ErrPermissionDenied and nothing is persisted.
func (c *Client) LoginSuperAdmin(ctx context.Context, email, password string) (*LoginResponse, error) {
	return c.login(ctx, "/login/superadmin", email, password, true)
}

// LoginUser authenticates against the regular user endpoint. A superadmin
// identity coming back from it is rejected the same way.
func (c *Client) LoginUser(ctx context.Context, email, password string) (*LoginResponse, error) {
	return c.login(ctx, "/login/user", email, password, false)
}

func (c *Client) login(ctx context.Context, path, email, password string, wantSuper bool) (*LoginResponse, error) {
	body := map[string]string{"email": email, "password": password}

	var resp LoginResponse
	if err := c.doAnon(ctx, "POST", path, body, &resp); err != nil {
		// The backend rejects bad credentials with a 400
		var verr *ValidationError
		if errors.As(err, &verr) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidCredentials, verr.Message)
		}
		return nil, err
	}
	if resp.Access == "" || resp.Refresh == "" {
		return nil, fmt.Errorf("login response missing tokens")
	}

	// The returned identity must match the endpoint's role even when the
	// backend authenticated it; checked before anything is persisted.
	if resp.User.IsSuperAdmin() != wantSuper {
		c.logger.WithField("email", resp.User.Email).
			WithField("role", string(resp.User.Role)).
			Warn("login rejected: role does not match endpoint")
		return nil, fmt.Errorf("%w: account role does not match login endpoint", ErrPermissionDenied)
	}

	creds := session.Credentials{AccessToken: resp.Access, RefreshToken: resp.Refresh}
	if err := c.store.SetCredentials(creds); err != nil {
		return nil, fmt.Errorf("failed to persist credentials: %w", err)
	}
	if err := c.store.SetIdentity(&resp.User); err != nil {
		return nil, fmt.Errorf("failed to persist identity: %w", err)
	}

	c.logger.WithField("email", resp.User.Email).
		WithField("role", string(resp.User.Role)).
		Info("login succeeded")
	return &resp, nil
}

// Profile fetches the identity the backend associates with the current
// access token
func (c *Client) Profile(ctx context.Context) (*session.Identity, error) {
	var identity session.Identity
	if err := c.do(ctx, "GET", "/profile", nil, &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

// RequestPasswordReset starts the OTP recovery flow for an account. The
// backend responds identically whether or not the email exists.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	return c.doAnon(ctx, "POST", "/password/reset/request", body, nil)
}

// VerifyPasswordResetOTP checks the one-time code sent to the account email
func (c *Client) VerifyPasswordResetOTP(ctx context.Context, email, otp string) error {
	body := map[string]string{"email": email, "otp": otp}
	return c.doAnon(ctx, "POST", "/password/reset/verify", body, nil)
}

// ConfirmPasswordReset sets a new password after OTP verification
func (c *Client) ConfirmPasswordReset(ctx context.Context, email, otp, newPassword string) error {
	body := map[string]string{"email": email, "otp": otp, "new_password": newPassword}
	return c.doAnon(ctx, "POST", "/password/reset/confirm", body, nil)
}
