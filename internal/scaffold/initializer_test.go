package scaffold

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/code-troopers/postits/internal/config"
	"github.com/code-troopers/postits/internal/printer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize(t *testing.T) {
	tests := []struct {
		name  string
		opts  Options
		check func(t *testing.T, cfg *config.PostitsConfig)
	}{
		{
			name: "defaults",
			check: func(t *testing.T, cfg *config.PostitsConfig) {
				assert.Equal(t, "http://localhost:3010", cfg.Server.APIURL)
				assert.Equal(t, "ws://localhost:3010", cfg.Server.WSURL)
				assert.Equal(t, config.TransportWebSocket, cfg.Transport.Kind)
			},
		},
		{
			name: "custom server",
			opts: Options{APIURL: "https://boards.example.com"},
			check: func(t *testing.T, cfg *config.PostitsConfig) {
				assert.Equal(t, "wss://boards.example.com", cfg.Server.WSURL)
			},
		},
		{
			name: "redis transport",
			opts: Options{Transport: config.TransportRedis, RedisURL: "redis://localhost:6379/0"},
			check: func(t *testing.T, cfg *config.PostitsConfig) {
				assert.Equal(t, config.TransportRedis, cfg.Transport.Kind)
				assert.Equal(t, "redis://localhost:6379/0", cfg.Transport.RedisURL)
				assert.Equal(t, "default", cfg.Transport.Instance)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("POSTITS_API_URL", "")
			t.Setenv("POSTITS_REDIS_URL", "")
			dir := t.TempDir()

			path, err := Initialize(dir, tt.opts, false)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(dir, "postits.yml"), path)

			cfg, err := config.Load(path)
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestInitializeExisting(t *testing.T) {
	printer.SetOutput(&discard{}, &discard{})
	t.Cleanup(func() { printer.SetOutput(nil, nil) })

	dir := t.TempDir()
	path := filepath.Join(dir, "postits.yml")
	require.NoError(t, os.WriteFile(path, []byte("old content"), 0644))

	_, err := Initialize(dir, Options{}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "project already initialized")
	assert.Contains(t, err.Error(), "postits init --force")

	content, _ := os.ReadFile(path)
	assert.Equal(t, "old content", string(content), "existing file left untouched")

	_, err = Initialize(dir, Options{}, true)
	require.NoError(t, err)
	content, _ = os.ReadFile(path)
	assert.Contains(t, string(content), `version: "1.0"`)
}

func TestCheckExisting(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, CheckExisting(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "postits.yml"), nil, 0644))
	assert.Error(t, CheckExisting(dir))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
