package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIdentity() *Identity {
	return &Identity{
		ID:        7,
		Email:     "jane@example.com",
		FirstName: "Jane",
		LastName:  "Doe",
		Role:      RoleUser,
	}
}

// storeUnderTest builds each Store implementation against real backing state
func storesUnderTest(t *testing.T) map[string]Store {
	t.Helper()

	dir := t.TempDir()
	fileStore, err := NewFileStore(filepath.Join(dir, "credentials.json"))
	require.NoError(t, err)
	t.Cleanup(func() { fileStore.Close() })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   fileStore,
		"redis":  NewRedisStoreWithClient(client, "test-session"),
	}
}

func TestStore_RoundTrip(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			creds := Credentials{AccessToken: "acc-1", RefreshToken: "ref-1"}
			require.NoError(t, store.SetCredentials(creds))

			got, err := store.Credentials()
			require.NoError(t, err)
			assert.Equal(t, creds, got)

			require.NoError(t, store.SetAccessToken("acc-2"))
			got, err = store.Credentials()
			require.NoError(t, err)
			assert.Equal(t, "acc-2", got.AccessToken)
			assert.Equal(t, "ref-1", got.RefreshToken, "refresh token must survive access token rotation")

			require.NoError(t, store.SetIdentity(testIdentity()))
			identity, err := store.Identity()
			require.NoError(t, err)
			require.NotNil(t, identity)
			assert.Equal(t, "jane@example.com", identity.Email)

			now := time.Now().Truncate(time.Millisecond)
			require.NoError(t, store.SetLastActivity(now))
			activity, err := store.LastActivity()
			require.NoError(t, err)
			assert.WithinDuration(t, now, activity, time.Millisecond)
		})
	}
}

func TestStore_ClearRemovesEverything(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.SetCredentials(Credentials{AccessToken: "a", RefreshToken: "r"}))
			require.NoError(t, store.SetIdentity(testIdentity()))
			require.NoError(t, store.SetLastActivity(time.Now()))

			require.NoError(t, store.Clear())

			creds, err := store.Credentials()
			require.NoError(t, err)
			assert.True(t, creds.Empty(), "access and refresh tokens must be cleared together")

			identity, err := store.Identity()
			require.NoError(t, err)
			assert.Nil(t, identity, "identity must not survive a clear")

			activity, err := store.LastActivity()
			require.NoError(t, err)
			assert.True(t, activity.IsZero(), "last-activity marker must not survive a clear")
		})
	}
}

func TestStore_EmptyState(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			creds, err := store.Credentials()
			require.NoError(t, err)
			assert.True(t, creds.Empty())

			identity, err := store.Identity()
			require.NoError(t, err)
			assert.Nil(t, identity)

			activity, err := store.LastActivity()
			require.NoError(t, err)
			assert.True(t, activity.IsZero())
		})
	}
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")

	store, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.SetCredentials(Credentials{AccessToken: "acc", RefreshToken: "ref"}))
	require.NoError(t, store.SetIdentity(testIdentity()))
	require.NoError(t, store.Close())

	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	creds, err := reopened.Credentials()
	require.NoError(t, err)
	assert.Equal(t, "acc", creds.AccessToken)

	identity, err := reopened.Identity()
	require.NoError(t, err)
	require.NotNil(t, identity)
	assert.Equal(t, int64(7), identity.ID)
}

func TestFileStore_ReloadsExternalWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")

	store, err := NewFileStore(path)
	require.NoError(t, err)
	defer store.Close()

	// Simulate another process rotating the token behind our back
	external := fileState{AccessToken: "rotated", RefreshToken: "ref"}
	data, err := json.Marshal(external)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	assert.Eventually(t, func() bool {
		creds, err := store.Credentials()
		return err == nil && creds.AccessToken == "rotated"
	}, 2*time.Second, 10*time.Millisecond, "file store should pick up external writes")
}

func TestFileStore_CorruptFileTreatedAsSignedOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	store, err := NewFileStore(path)
	require.NoError(t, err)
	defer store.Close()

	creds, err := store.Credentials()
	require.NoError(t, err)
	assert.True(t, creds.Empty())
}

func TestIdentity_IsSuperAdmin(t *testing.T) {
	tests := []struct {
		name     string
		identity *Identity
		expected bool
	}{
		{"nil identity", nil, false},
		{"regular user", &Identity{Role: RoleUser}, false},
		{"superadmin role", &Identity{Role: RoleSuperAdmin}, true},
		{"superuser flag", &Identity{Role: RoleUser, IsSuperuser: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.identity.IsSuperAdmin())
		})
	}
}
