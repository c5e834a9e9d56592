package fs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/panyam/authcore/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sessions.json"))
	require.NoError(t, err)
	return s
}

func live(token string) *client.ServerCredential {
	return &client.ServerCredential{SessionToken: token, ExpiresAt: time.Now().Add(time.Hour)}
}

func TestGetSetByOrigin(t *testing.T) {
	s := openTemp(t)

	got, err := s.GetCredential("http://localhost:8080")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.SetCredential("http://localhost:8080/api/v1", &client.ServerCredential{
		SessionToken: "tok",
		UserID:       "user-1",
		ExpiresAt:    time.Now().Add(time.Hour),
	}))
	for _, u := range []string{"http://localhost:8080", "http://localhost:8080/other"} {
		got, err = s.GetCredential(u)
		require.NoError(t, err)
		require.NotNil(t, got, u)
		assert.Equal(t, "tok", got.SessionToken)
		assert.Equal(t, "user-1", got.UserID)
	}

	got, err = s.GetCredential("https://localhost:8080")
	require.NoError(t, err)
	assert.Nil(t, got, "scheme is part of the key")

	_, err = s.GetCredential("not a url")
	assert.Error(t, err)
}

func TestRemoveAndList(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, s.SetCredential("https://b.example.com", live("b")))
	require.NoError(t, s.SetCredential("https://a.example.com", live("a")))
	require.NoError(t, s.SetCredential("http://localhost:9090", live("c")))

	require.NoError(t, s.RemoveCredential("https://b.example.com/x"))
	servers, err := s.ListServers()
	require.NoError(t, err)
	assert.Equal(t, []string{"http://localhost:9090", "https://a.example.com"}, servers)
}

func TestSaveAndReopen(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, s.SetCredential("http://localhost:8080", live("persisted")))
	require.NoError(t, s.Save())

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Open(s.Path())
	require.NoError(t, err)
	got, err := again.GetCredential("http://localhost:8080")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "persisted", got.SessionToken)

	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestOpenRejectsNewerVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version": 99, "sessions": {}}`), 0o600))
	_, err := Open(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`{`), 0o600))
	_, err = Open(path)
	assert.Error(t, err)
}

func TestDefaultPath(t *testing.T) {
	path, err := DefaultPath("testapp")
	require.NoError(t, err)
	assert.Equal(t, "sessions.json", filepath.Base(path))
	assert.Equal(t, "testapp", filepath.Base(filepath.Dir(path)))
}

func TestPrune(t *testing.T) {
	s := openTemp(t)
	now := time.Now()
	require.NoError(t, s.SetCredential("https://live.example.com", &client.ServerCredential{SessionToken: "a", ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, s.SetCredential("https://old.example.com", &client.ServerCredential{SessionToken: "b", ExpiresAt: now.Add(-time.Hour)}))

	assert.Equal(t, 1, s.Prune(now))
	servers, err := s.ListServers()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://live.example.com"}, servers)
}
