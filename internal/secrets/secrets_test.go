// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(t *testing.T) string
		want   map[string]string
		errMsg string
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "gemini-api-key", "  AIza-abc123  \n")
				writeFile(t, dir, "other-token", "tok_xyz789")
				return dir
			},
			want: map[string]string{
				"gemini-api-key": "AIza-abc123",
				"other-token":    "tok_xyz789",
			},
		},
		{
			name: "returns empty map for nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: map[string]string{},
		},
		{
			name: "skips empty files",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "gemini-api-key", "valid-key")
				writeFile(t, dir, "empty-key", "")
				writeFile(t, dir, "whitespace-only", "   \n\t  ")
				return dir
			},
			want: map[string]string{
				"gemini-api-key": "valid-key",
			},
		},
		{
			name: "skips dotfiles",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, ".gitkeep", "")
				writeFile(t, dir, ".hidden-key", "secret")
				writeFile(t, dir, "gemini-api-key", "AIza-real")
				return dir
			},
			want: map[string]string{
				"gemini-api-key": "AIza-real",
			},
		},
		{
			name: "skips subdirectories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "gemini-api-key", "AIza-123")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
				return dir
			},
			want: map[string]string{
				"gemini-api-key": "AIza-123",
			},
		},
		{
			name: "returns empty map for empty directory",
			setup: func(t *testing.T) string {
				return t.TempDir()
			},
			want: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := tt.setup(t)
			logger, _ := test.NewNullLogger()
			got, err := Load(dir, logger)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good-key", "value123")

	// Create a file then remove read permission.
	badPath := filepath.Join(dir, "bad-key")
	require.NoError(t, os.WriteFile(badPath, []byte("secret"), 0o000))
	t.Cleanup(func() { os.Chmod(badPath, 0o644) })

	if os.Geteuid() == 0 {
		t.Skip("root can read files without permission bits")
	}

	logger, hook := test.NewNullLogger()
	got, err := Load(dir, logger)
	require.NoError(t, err)
	assert.Equal(t, "value123", got["good-key"])
	_, hasBad := got["bad-key"]
	assert.False(t, hasBad, "unreadable file should not appear in result")

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "bad-key", hook.LastEntry().Data["secret"])
}

func TestResolveAPIKey(t *testing.T) {
	env := map[string]string{"GEMINI_API_KEY": "from-gemini-env", "GOOGLE_API_KEY": "from-google-env"}
	getenv := func(k string) string { return env[k] }
	loaded := map[string]string{GeminiKeyFile: "from-file"}

	key, src := ResolveAPIKey("from-config", loaded, getenv)
	assert.Equal(t, "from-config", key)
	assert.Equal(t, "config", src)

	key, src = ResolveAPIKey("  ", loaded, getenv)
	assert.Equal(t, "from-file", key)
	assert.Equal(t, filepath.Join(".secrets", "gemini-api-key"), src)

	key, src = ResolveAPIKey("", nil, getenv)
	assert.Equal(t, "from-gemini-env", key)
	assert.Equal(t, "GEMINI_API_KEY", src)

	delete(env, "GEMINI_API_KEY")
	key, src = ResolveAPIKey("", nil, getenv)
	assert.Equal(t, "from-google-env", key)
	assert.Equal(t, "GOOGLE_API_KEY", src)

	delete(env, "GOOGLE_API_KEY")
	key, src = ResolveAPIKey("", map[string]string{}, getenv)
	assert.Empty(t, key)
	assert.Empty(t, src)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
