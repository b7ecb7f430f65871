package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "trailing slash", raw: "https://gw.example.com/", want: "https://gw.example.com"},
		{name: "with port", raw: "http://localhost:8080", want: "http://localhost:8080"},
		{name: "whitespace", raw: "  https://gw.example.com  ", want: "https://gw.example.com"},
		{name: "missing scheme", raw: "gw.example.com", wantErr: true},
		{name: "ftp", raw: "ftp://gw.example.com", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeURL(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadFromCurrentDir_SearchesParents(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, Save(filepath.Join(root, ConfigFileName), &Config{
		Servers: []Server{
			{Alias: "staging", URL: "https://staging.example.com/"},
			{Alias: "prod", URL: "https://app.example.com"},
		},
	}))

	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))

	original, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(nested))
	t.Cleanup(func() { os.Chdir(original) })

	cfg, err := LoadFromCurrentDir()
	require.NoError(t, err)
	require.Len(t, cfg.Servers, 2)
	assert.Equal(t, "https://staging.example.com", cfg.Servers[0].URL)

	server, err := cfg.GetServer("prod")
	require.NoError(t, err)
	assert.Equal(t, "https://app.example.com", server.URL)

	server, err = cfg.GetServer("https://staging.example.com/")
	require.NoError(t, err)
	assert.Equal(t, "staging", server.Alias)

	_, err = cfg.GetServer("missing")
	assert.Error(t, err)
}

func TestLoad_InvalidServerURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(`{"servers":[{"alias":"bad","url":"not a url"}]}`), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}
