package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionFile_RoundTrip(t *testing.T) {
	s := sessionFile{path: filepath.Join(t.TempDir(), "nested", "session")}

	token, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, s.Save("sealed.token"))
	info, err := os.Stat(s.path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	token, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, "sealed.token", token)

	require.NoError(t, s.Save(""))
	_, err = os.Stat(s.path)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, s.Clear())
}
