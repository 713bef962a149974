package api

import (
	"time"

	"github.com/pagegate/pagegate/pkg/session"
)

// Page is a navigable console resource
type Page struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Grant is the per-page capability set for one user. The four booleans are
// independently settable in storage; hierarchy is applied only at check time
// by pkg/permissions.
type Grant struct {
	CanView   bool `json:"can_view"`
	CanEdit   bool `json:"can_edit"`
	CanCreate bool `json:"can_create"`
	CanDelete bool `json:"can_delete"`
}

// PageAccess is one entry of the accessible-pages listing: a page with the
// caller's resolved grant embedded.
type PageAccess struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	Permissions Grant  `json:"permissions"`
}

// LoginResponse is the payload of both login endpoints
type LoginResponse struct {
	Access  string           `json:"access"`
	Refresh string           `json:"refresh"`
	User    session.Identity `json:"user"`
}

// PermissionUpdate is the grant-update request for one (user, page) pair
type PermissionUpdate struct {
	UserID    int64 `json:"user_id"`
	PageID    int64 `json:"page_id"`
	CanView   bool  `json:"can_view"`
	CanEdit   bool  `json:"can_edit"`
	CanCreate bool  `json:"can_create"`
	CanDelete bool  `json:"can_delete"`
}

// Comment is a page comment with author attribution
type Comment struct {
	ID          int64     `json:"id"`
	PageID      int64     `json:"page_id"`
	Content     string    `json:"content"`
	AuthorID    int64     `json:"author_id"`
	AuthorName  string    `json:"author_name"`
	AuthorEmail string    `json:"author_email"`
	CreatedAt   time.Time `json:"created_at"`
	ModifiedAt  time.Time `json:"modified_at"`
}

// HistoryAction identifies a comment history entry type
type HistoryAction string

const (
	HistoryCreate HistoryAction = "CREATE"
	HistoryEdit   HistoryAction = "EDIT"
	HistoryDelete HistoryAction = "DELETE"
)

// HistoryEntry is one immutable record in a comment's modification history
type HistoryEntry struct {
	Action     HistoryAction `json:"action"`
	ActorName  string        `json:"actor_name"`
	ActorEmail string        `json:"actor_email"`
	Timestamp  time.Time     `json:"timestamp"`
	OldContent *string       `json:"old_content,omitempty"`
	NewContent *string       `json:"new_content,omitempty"`
}

// NewUser is the superadmin user-creation request
type NewUser struct {
	Email     string       `json:"email"`
	FirstName string       `json:"first_name"`
	LastName  string       `json:"last_name"`
	Password  string       `json:"password"`
	Role      session.Role `json:"role"`
}

// UserUpdate is a partial user update; nil fields are left unchanged
type UserUpdate struct {
	Email     *string       `json:"email,omitempty"`
	FirstName *string       `json:"first_name,omitempty"`
	LastName  *string       `json:"last_name,omitempty"`
	Role      *session.Role `json:"role,omitempty"`
}
