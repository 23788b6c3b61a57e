package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	d, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func TestEnsureAdmin(t *testing.T) {
	d := newTestDB(t)

	require.NoError(t, d.EnsureAdmin("admin", "pass"))
	u, err := d.GetUserByUsername("admin")
	require.NoError(t, err)
	assert.Equal(t, "admin", u.Role)
	assert.NotEqual(t, "pass", u.Password) // stored hashed

	// Idempotent: a second call doesn't create another admin.
	require.NoError(t, d.EnsureAdmin("admin2", "pass2"))
	_, err = d.GetUserByUsername("admin2")
	assert.Error(t, err)

	byID, err := d.GetUserByID(u.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin", byID.Username)
}

func TestSettings(t *testing.T) {
	d := newTestDB(t)

	assert.Equal(t, "fallback", d.GetSetting("nope", "fallback"))

	require.NoError(t, d.SetSetting("youtube_api_key", "AIzaXYZ"))
	assert.Equal(t, "AIzaXYZ", d.GetSetting("youtube_api_key", ""))

	// Upsert overwrites.
	require.NoError(t, d.SetSetting("youtube_api_key", "AIzaNEW"))
	assert.Equal(t, "AIzaNEW", d.GetSetting("youtube_api_key", ""))

	all, err := d.GetAllSettings()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"youtube_api_key": "AIzaNEW"}, all)
}

func TestMetadataCache(t *testing.T) {
	d := newTestDB(t)

	_, _, err := d.GetCachedMetadata("dQw4w9WgXcQ")
	assert.Error(t, err)

	require.NoError(t, d.SaveCachedMetadata("dQw4w9WgXcQ", `{"title":"v1"}`))
	payload, fetchedAt, err := d.GetCachedMetadata("dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, `{"title":"v1"}`, payload)
	assert.WithinDuration(t, time.Now(), fetchedAt, time.Minute)

	require.NoError(t, d.SaveCachedMetadata("dQw4w9WgXcQ", `{"title":"v2"}`))
	payload, _, err = d.GetCachedMetadata("dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, `{"title":"v2"}`, payload)
}
