package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagegate/pagegate/pkg/session"
)

// backend is a scripted stand-in for the console API
type backend struct {
	router *mux.Router
	server *httptest.Server

	refreshCalls atomic.Int64
	refreshToken string // rotated access token handed out by /token/refresh
	refreshFail  bool
	refreshDelay time.Duration

	mu          sync.Mutex
	validTokens map[string]bool
}

func newBackend(t *testing.T) *backend {
	b := &backend{
		router:       mux.NewRouter(),
		refreshToken: "fresh-token",
		validTokens:  map[string]bool{},
	}
	b.router.HandleFunc("/token/refresh", b.handleRefresh).Methods(http.MethodPost)
	b.server = httptest.NewServer(b.router)
	t.Cleanup(b.server.Close)
	return b
}

func (b *backend) accept(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.validTokens[token] = true
}

func (b *backend) authorized(r *http.Request) bool {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.validTokens[token]
}

func (b *backend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	b.refreshCalls.Add(1)
	if b.refreshDelay > 0 {
		time.Sleep(b.refreshDelay)
	}
	var body struct {
		Refresh string `json:"refresh"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Refresh == "" {
		http.Error(w, `{"error":"refresh token required"}`, http.StatusBadRequest)
		return
	}
	if b.refreshFail {
		http.Error(w, `{"error":"token is invalid or expired"}`, http.StatusUnauthorized)
		return
	}
	b.accept(b.refreshToken)
	writeJSON(w, http.StatusOK, map[string]string{"access": b.refreshToken})
}

// guarded registers an authenticated route that 401s unless the presented
// bearer token has been accepted
func (b *backend) guarded(path string, fn http.HandlerFunc, methods ...string) {
	b.router.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		if !b.authorized(r) {
			http.Error(w, `{"error":"token expired"}`, http.StatusUnauthorized)
			return
		}
		fn(w, r)
	}).Methods(methods...)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// endRecorder captures session-end notifications
type endRecorder struct {
	mu      sync.Mutex
	reasons []string
}

func (r *endRecorder) record(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reasons = append(r.reasons, reason)
}

func (r *endRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.reasons...)
}

func newTestClient(t *testing.T, b *backend) (*Client, *session.MemoryStore, *endRecorder) {
	store := session.NewMemoryStore()
	rec := &endRecorder{}
	client := New(b.server.URL, store, WithSessionEndHandler(rec.record))
	return client, store, rec
}

func seedSession(t *testing.T, store session.Store, access, refresh string) {
	t.Helper()
	require.NoError(t, store.SetCredentials(session.Credentials{
		AccessToken: access, RefreshToken: refresh,
	}))
	require.NoError(t, store.SetIdentity(&session.Identity{
		ID: 7, Email: "ops@example.com", Role: session.RoleUser,
	}))
}

func TestClient_RefreshOnceAndRetry(t *testing.T) {
	b := newBackend(t)
	var profileCalls atomic.Int64
	b.guarded("/profile", func(w http.ResponseWriter, r *http.Request) {
		profileCalls.Add(1)
		writeJSON(w, http.StatusOK, session.Identity{ID: 7, Email: "ops@example.com"})
	}, http.MethodGet)

	client, store, rec := newTestClient(t, b)
	seedSession(t, store, "stale-token", "refresh-token") // stale: never accepted

	identity, err := client.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", identity.Email)

	assert.Equal(t, int64(1), b.refreshCalls.Load())
	assert.Equal(t, int64(1), profileCalls.Load())
	assert.Empty(t, rec.all())

	// the rotated access token is persisted, the refresh token untouched
	creds, err := store.Credentials()
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", creds.AccessToken)
	assert.Equal(t, "refresh-token", creds.RefreshToken)
}

func TestClient_SecondUnauthorizedTerminates(t *testing.T) {
	b := newBackend(t)
	var profileCalls atomic.Int64
	// always 401, even with the fresh token
	b.router.HandleFunc("/profile", func(w http.ResponseWriter, r *http.Request) {
		profileCalls.Add(1)
		http.Error(w, `{"error":"token expired"}`, http.StatusUnauthorized)
	}).Methods(http.MethodGet)

	client, store, rec := newTestClient(t, b)
	seedSession(t, store, "stale-token", "refresh-token")

	_, err := client.Profile(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.True(t, IsTerminal(err))

	// one refresh, one retry, no loop
	assert.Equal(t, int64(1), b.refreshCalls.Load())
	assert.Equal(t, int64(2), profileCalls.Load())
	assert.Equal(t, []string{TerminationRejected}, rec.all())

	creds, err := store.Credentials()
	require.NoError(t, err)
	assert.True(t, creds.Empty())
}

func TestClient_UnauthorizedWithoutRefreshToken(t *testing.T) {
	b := newBackend(t)
	b.guarded("/pages", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []Page{})
	}, http.MethodGet)

	client, store, rec := newTestClient(t, b)
	require.NoError(t, store.SetAccessToken("stale-token"))

	_, err := client.Pages(context.Background())
	assert.ErrorIs(t, err, ErrSessionExpired)

	// terminated locally, no refresh attempt on the wire
	assert.Equal(t, int64(0), b.refreshCalls.Load())
	assert.Equal(t, []string{TerminationUnauthenticated}, rec.all())
}

func TestClient_RefreshRejectedTerminates(t *testing.T) {
	b := newBackend(t)
	b.refreshFail = true
	b.guarded("/pages", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []Page{})
	}, http.MethodGet)

	client, store, rec := newTestClient(t, b)
	seedSession(t, store, "stale-token", "refresh-token")

	_, err := client.Pages(context.Background())
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, []string{TerminationRefreshFailed}, rec.all())

	identity, err := store.Identity()
	require.NoError(t, err)
	assert.Nil(t, identity)
}

func TestClient_ConcurrentRefreshCollapses(t *testing.T) {
	b := newBackend(t)
	b.refreshDelay = 50 * time.Millisecond

	client, store, _ := newTestClient(t, b)
	seedSession(t, store, "stale-token", "refresh-token")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, client.Refresh(context.Background(), TriggerProactive))
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), b.refreshCalls.Load())
}

func TestClient_ErrorTaxonomy(t *testing.T) {
	b := newBackend(t)
	b.guarded("/pages", func(w http.ResponseWriter, r *http.Request) {
		status := r.URL.Query().Get("status")
		switch status {
		case "400":
			http.Error(w, `{"error":"name required"}`, http.StatusBadRequest)
		case "403":
			http.Error(w, `{"error":"superadmin only"}`, http.StatusForbidden)
		case "404":
			http.Error(w, `{"error":"no such page"}`, http.StatusNotFound)
		default:
			http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
		}
	}, http.MethodGet)

	client, store, rec := newTestClient(t, b)
	seedSession(t, store, "good-token", "refresh-token")
	b.accept("good-token")

	get := func(status string) error {
		return client.do(context.Background(), "GET", "/pages?status="+status, nil, nil)
	}

	var verr *ValidationError
	err := get("400")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name required", verr.Message)

	assert.ErrorIs(t, get("403"), ErrPermissionDenied)
	assert.ErrorIs(t, get("404"), ErrNotFound)

	var serr *StatusError
	err = get("500")
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusInternalServerError, serr.StatusCode)

	// none of these touch the session
	assert.Empty(t, rec.all())
	creds, err := store.Credentials()
	require.NoError(t, err)
	assert.Equal(t, "good-token", creds.AccessToken)
}

func TestClient_LoginPersistsSession(t *testing.T) {
	b := newBackend(t)
	b.router.HandleFunc("/login/user", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["email"] != "ops@example.com" || body["password"] != "hunter2" {
			http.Error(w, `{"error":"invalid email or password"}`, http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, LoginResponse{
			Access:  "access-1",
			Refresh: "refresh-1",
			User: session.Identity{
				ID: 7, Email: "ops@example.com",
				FirstName: "Jo", LastName: "Ops", Role: session.RoleUser,
			},
		})
	}).Methods(http.MethodPost)

	client, store, _ := newTestClient(t, b)

	resp, err := client.LoginUser(context.Background(), "ops@example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, session.RoleUser, resp.User.Role)

	creds, err := store.Credentials()
	require.NoError(t, err)
	assert.Equal(t, "access-1", creds.AccessToken)
	assert.Equal(t, "refresh-1", creds.RefreshToken)

	identity, err := store.Identity()
	require.NoError(t, err)
	require.NotNil(t, identity)
	assert.Equal(t, "Jo Ops", identity.FullName())

	// wrong password maps to invalid credentials, not a validation error
	_, err = client.LoginUser(context.Background(), "ops@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestClient_LoginRejectsMismatchedRole(t *testing.T) {
	b := newBackend(t)
	// both endpoints authenticate the account but hand back the other
	// endpoint's role
	b.router.HandleFunc("/login/superadmin", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, LoginResponse{
			Access: "access-1", Refresh: "refresh-1",
			User: session.Identity{ID: 7, Email: "ops@example.com", Role: session.RoleUser},
		})
	}).Methods(http.MethodPost)
	b.router.HandleFunc("/login/user", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, LoginResponse{
			Access: "access-2", Refresh: "refresh-2",
			User: session.Identity{
				ID: 1, Email: "root@example.com",
				Role: session.RoleSuperAdmin, IsSuperuser: true,
			},
		})
	}).Methods(http.MethodPost)

	client, store, _ := newTestClient(t, b)
	ctx := context.Background()

	_, err := client.LoginSuperAdmin(ctx, "ops@example.com", "hunter2")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = client.LoginUser(ctx, "root@example.com", "hunter2")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	// neither rejected login left anything behind
	creds, err := store.Credentials()
	require.NoError(t, err)
	assert.True(t, creds.Empty())
	identity, err := store.Identity()
	require.NoError(t, err)
	assert.Nil(t, identity)
}

func TestClient_LogoutDuringRefreshStaysSignedOut(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/token/refresh", r.URL.Path)
		close(started)
		<-release
		writeJSON(w, http.StatusOK, map[string]string{"access": "fresh-token"})
	}))
	t.Cleanup(server.Close)

	store := session.NewMemoryStore()
	client := New(server.URL, store)
	seedSession(t, store, "stale-token", "refresh-token")

	errCh := make(chan error, 1)
	go func() {
		errCh <- client.Refresh(context.Background(), TriggerProactive)
	}()

	// log out while the refresh is on the wire
	<-started
	require.NoError(t, store.Clear())
	close(release)

	err := <-errCh
	assert.ErrorIs(t, err, ErrSessionExpired)

	// the completed flight must not resurrect a partial session
	creds, err := store.Credentials()
	require.NoError(t, err)
	assert.True(t, creds.Empty())
	identity, err := store.Identity()
	require.NoError(t, err)
	assert.Nil(t, identity)
}

func TestClient_LoginWrongRole(t *testing.T) {
	b := newBackend(t)
	b.router.HandleFunc("/login/superadmin", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not a superadmin account"}`, http.StatusForbidden)
	}).Methods(http.MethodPost)

	client, _, _ := newTestClient(t, b)

	_, err := client.LoginSuperAdmin(context.Background(), "ops@example.com", "hunter2")
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestClient_CommentHistory(t *testing.T) {
	b := newBackend(t)
	b.guarded("/comments/42/history", func(w http.ResponseWriter, r *http.Request) {
		old, updated := "first draft", "second draft"
		writeJSON(w, http.StatusOK, []HistoryEntry{
			{Action: HistoryCreate, ActorName: "Jo Ops", NewContent: &old},
			{Action: HistoryEdit, ActorName: "Jo Ops", OldContent: &old, NewContent: &updated},
			{Action: HistoryDelete, ActorName: "Sam Admin", OldContent: &updated},
		})
	}, http.MethodGet)

	client, store, _ := newTestClient(t, b)
	seedSession(t, store, "good-token", "refresh-token")
	b.accept("good-token")

	history, err := client.CommentHistory(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, HistoryCreate, history[0].Action)
	assert.Nil(t, history[0].OldContent)
	require.NotNil(t, history[1].OldContent)
	assert.Equal(t, "first draft", *history[1].OldContent)
	assert.Equal(t, HistoryDelete, history[2].Action)
	assert.Nil(t, history[2].NewContent)
}

func TestClient_UpdatePermissions(t *testing.T) {
	b := newBackend(t)
	b.guarded("/permissions/update", func(w http.ResponseWriter, r *http.Request) {
		var update PermissionUpdate
		require.NoError(t, json.NewDecoder(r.Body).Decode(&update))
		assert.Equal(t, int64(7), update.UserID)
		writeJSON(w, http.StatusOK, Grant{
			CanView: update.CanView, CanEdit: update.CanEdit,
			CanCreate: update.CanCreate, CanDelete: update.CanDelete,
		})
	}, http.MethodPost)

	client, store, _ := newTestClient(t, b)
	seedSession(t, store, "good-token", "refresh-token")
	b.accept("good-token")

	grant, err := client.UpdatePermissions(context.Background(), PermissionUpdate{
		UserID: 7, PageID: 3, CanView: true, CanDelete: true,
	})
	require.NoError(t, err)
	assert.True(t, grant.CanView)
	assert.True(t, grant.CanDelete)
	assert.False(t, grant.CanEdit)
}

func TestClient_PasswordResetFlow(t *testing.T) {
	b := newBackend(t)
	var stage atomic.Int64
	for i, path := range []string{
		"/password/reset/request",
		"/password/reset/verify",
		"/password/reset/confirm",
	} {
		step := int64(i)
		b.router.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			stage.Store(step + 1)
			writeJSON(w, http.StatusOK, map[string]string{"detail": "ok"})
		}).Methods(http.MethodPost)
	}

	client, _, _ := newTestClient(t, b)
	ctx := context.Background()

	require.NoError(t, client.RequestPasswordReset(ctx, "ops@example.com"))
	require.NoError(t, client.VerifyPasswordResetOTP(ctx, "ops@example.com", "123456"))
	require.NoError(t, client.ConfirmPasswordReset(ctx, "ops@example.com", "123456", "n3w-p4ss"))
	assert.Equal(t, int64(3), stage.Load())
}

func TestAccessTokenExpiry(t *testing.T) {
	exp := time.Now().Add(15 * time.Minute).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp":  exp.Unix(),
		"sub":  "7",
		"role": "user",
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)

	got, err := AccessTokenExpiry(token)
	require.NoError(t, err)
	assert.True(t, got.Equal(exp), fmt.Sprintf("want %v, got %v", exp, got))

	_, err = AccessTokenExpiry("not-a-jwt")
	assert.Error(t, err)
}
