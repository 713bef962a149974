package session

import "time"

// Role is the console-level role of an identity
type Role string

const (
	RoleUser       Role = "user"
	RoleSuperAdmin Role = "superadmin"
)

// Identity is the authenticated user record cached client-side
type Identity struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Role        Role   `json:"role"`
	IsSuperuser bool   `json:"is_superuser"`
}

// FullName returns the display name of the identity
func (i *Identity) FullName() string {
	if i.FirstName == "" {
		return i.LastName
	}
	if i.LastName == "" {
		return i.FirstName
	}
	return i.FirstName + " " + i.LastName
}

// IsSuperAdmin reports whether the identity bypasses grant lookups
func (i *Identity) IsSuperAdmin() bool {
	return i != nil && (i.IsSuperuser || i.Role == RoleSuperAdmin)
}

// Credentials is the token pair issued by the backend. The access token has a
// short server-defined lifetime; the refresh token outlives it.
type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Empty reports whether no tokens are held
func (c Credentials) Empty() bool {
	return c.AccessToken == "" && c.RefreshToken == ""
}

// Store holds session state for the console client.
//
// All implementations must treat Clear as atomic from the outside, and
// callers must re-read values before each decision rather than caching them
// across asynchronous suspensions — the HTTP client, session monitor, and
// auth session all touch the same store concurrently.
type Store interface {
	// Credentials returns the stored token pair; zero value when signed out
	Credentials() (Credentials, error)

	// SetCredentials replaces the token pair
	SetCredentials(creds Credentials) error

	// SetAccessToken replaces only the access token, keeping the refresh
	// token. Used after a successful refresh.
	SetAccessToken(token string) error

	// Identity returns the cached identity, or nil when none is cached
	Identity() (*Identity, error)

	// SetIdentity caches the identity
	SetIdentity(identity *Identity) error

	// LastActivity returns the last recorded user activity; zero time when
	// none is recorded
	LastActivity() (time.Time, error)

	// SetLastActivity records user activity
	SetLastActivity(t time.Time) error

	// Clear removes tokens, identity, and the last-activity marker together
	Clear() error
}
