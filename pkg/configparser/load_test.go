package configparser

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name string `env:"TEST_CP_NAME" default:"dispatch"`
	DB   struct {
		Host string `env:"TEST_CP_DB_HOST" default:"localhost"`
		Port int    `env:"TEST_CP_DB_PORT" default:"5432"`
	}
	Radius  float64       `env:"TEST_CP_RADIUS" default:"3"`
	Enabled bool          `env:"TEST_CP_ENABLED" default:"true"`
	TTL     time.Duration `env:"TEST_CP_TTL" default:"10m"`
	Empty   string        `env:"TEST_CP_EMPTY"`
}

func TestParseEnv_Defaults(t *testing.T) {
	var cfg testConfig
	require.NoError(t, ParseEnv(&cfg))

	assert.Equal(t, "dispatch", cfg.Name)
	assert.Equal(t, "localhost", cfg.DB.Host)
	assert.Equal(t, 5432, cfg.DB.Port)
	assert.InDelta(t, 3.0, cfg.Radius, 1e-9)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 10*time.Minute, cfg.TTL)
	assert.Empty(t, cfg.Empty)
}

func TestParseEnv_EnvOverrides(t *testing.T) {
	t.Setenv("TEST_CP_DB_PORT", "6543")
	t.Setenv("TEST_CP_RADIUS", "1.5")
	t.Setenv("TEST_CP_ENABLED", "no")

	var cfg testConfig
	require.NoError(t, ParseEnv(&cfg))

	assert.Equal(t, 6543, cfg.DB.Port)
	assert.InDelta(t, 1.5, cfg.Radius, 1e-9)
	assert.False(t, cfg.Enabled)
}

func TestParseEnv_BadValue(t *testing.T) {
	t.Setenv("TEST_CP_TTL", "ten minutes")

	var cfg testConfig
	assert.Error(t, ParseEnv(&cfg))
}

func TestParseEnv_NotPointer(t *testing.T) {
	assert.ErrorIs(t, ParseEnv(testConfig{}), ErrNotStructPointer)
}

func TestLoadYamlFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
test_cp:
  db:
    host: db.internal
  name: ${TEST_CP_FROM_ENV:-fallback}
  radius: 2.5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("TEST_CP_RADIUS", "9")
	// t.Setenv registers cleanup; clear vars the loader may set
	t.Setenv("TEST_CP_DB_HOST", "")
	os.Unsetenv("TEST_CP_DB_HOST")
	t.Setenv("TEST_CP_NAME", "")
	os.Unsetenv("TEST_CP_NAME")

	require.NoError(t, LoadYamlFile(path))

	assert.Equal(t, "db.internal", os.Getenv("TEST_CP_DB_HOST"))
	assert.Equal(t, "fallback", os.Getenv("TEST_CP_NAME"))
	// existing env wins
	assert.Equal(t, "9", os.Getenv("TEST_CP_RADIUS"))
}

func TestLoadYamlFile_NoPath(t *testing.T) {
	assert.ErrorIs(t, LoadYamlFile(""), ErrNoFilePath)
}
