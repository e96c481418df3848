package userstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRegisterAndVerifyRoundTrip(t *testing.T) {
	s := openTemp(t)

	res, err := s.RegisterUser("alice", "secret")
	require.NoError(t, err)
	require.Equal(t, Registered, res)

	ok, err := s.VerifyPassword("alice", "secret")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.VerifyPassword("alice", "wrong")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	s := openTemp(t)

	res, err := s.RegisterUser("alice", "secret")
	require.NoError(t, err)
	require.Equal(t, Registered, res)

	res, err = s.RegisterUser("alice", "different")
	require.NoError(t, err)
	require.Equal(t, AlreadyExists, res)

	ok, err := s.VerifyPassword("alice", "secret")
	require.NoError(t, err)
	require.True(t, ok, "original record must survive a duplicate registration")
}

func TestIsRegistered(t *testing.T) {
	s := openTemp(t)

	ok, err := s.IsRegistered("bob")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = s.RegisterUser("bob", "hunter2")
	require.NoError(t, err)

	ok, err = s.IsRegistered("bob")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerifyPasswordUnknownUser(t *testing.T) {
	s := openTemp(t)

	ok, err := s.VerifyPassword("nobody", "whatever")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestOpenCreatesParentDirectories(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "dir", "users.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(filepath.Dir(path))
	require.NoError(t, err)
}
