package serverselect

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sendwave-dev/sendwave/internal/cli/config"
	"github.com/sendwave-dev/sendwave/internal/cli/userconfig"
)

// inProject runs the test from a directory holding servers in sendwave.json
func inProject(t *testing.T, servers ...config.Server) {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	t.Setenv("SENDWAVE_SERVER", "")

	dir := t.TempDir()
	if len(servers) > 0 {
		require.NoError(t, config.Save(filepath.Join(dir, config.ConfigFileName), &config.Config{Servers: servers}))
	}

	original, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(original) })
}

func TestResolveServer_FlagWins(t *testing.T) {
	inProject(t, config.Server{Alias: "prod", URL: "https://app.example.com"})
	require.NoError(t, userconfig.SetSelectedServer("https://selected.example.com"))

	server, err := ResolveServer("prod")
	require.NoError(t, err)
	assert.Equal(t, "https://app.example.com", server)

	server, err = ResolveServer("http://localhost:8080/")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", server)
}

func TestResolveServer_EnvThenSelected(t *testing.T) {
	inProject(t)
	require.NoError(t, userconfig.SetSelectedServer("https://selected.example.com"))

	server, err := ResolveServer("")
	require.NoError(t, err)
	assert.Equal(t, "https://selected.example.com", server)

	t.Setenv("SENDWAVE_SERVER", "https://env.example.com")
	server, err = ResolveServer("")
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", server)
}

func TestResolveServer_SingleProjectServerIsRemembered(t *testing.T) {
	inProject(t, config.Server{Alias: "local", URL: "http://localhost:8080"})

	server, err := ResolveServer("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", server)

	selected, err := userconfig.GetSelectedServer()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", selected)
}

func TestResolveServer_NothingConfigured(t *testing.T) {
	inProject(t)

	_, err := ResolveServer("")
	assert.ErrorIs(t, err, ErrNoServer)
}

func TestLookup_RejectsUnknownAlias(t *testing.T) {
	_, err := Lookup(&config.Config{}, "nope")
	assert.Error(t, err)
}
