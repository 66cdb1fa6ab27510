package project

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBootstrap(t *testing.T, root, contents string) {
	t.Helper()
	dir := filepath.Join(root, "core", "includes")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bootstrap.inc"), []byte(contents), 0644))
}

func TestFindRoot(t *testing.T) {
	root := t.TempDir()
	writeBootstrap(t, root, "<?php\n")
	nested := filepath.Join(root, "sites", "multi_one")
	require.NoError(t, os.MkdirAll(nested, 0755))

	got, err := FindRoot(nested)
	require.NoError(t, err)
	want, _ := filepath.Abs(root)
	assert.Equal(t, want, got)
	assert.True(t, IsRoot(got))

	_, err = FindRoot(t.TempDir())
	assert.True(t, errors.Is(err, ErrRootNotFound))
}

func TestVersion(t *testing.T) {
	root := t.TempDir()
	assert.Equal(t, "Unknown", Version(root))

	writeBootstrap(t, root, "<?php\n/**\n * The current system version.\n */\ndefine('BACKDROP_VERSION', '1.27.1');\n")
	assert.Equal(t, "1.27.1", Version(root))
}

func TestDetect_YAML(t *testing.T) {
	root := t.TempDir()
	yamlBody := `
sites:
  multi_two:
    - multi-2.localhost
database:
  host: database
  user: backdrop
  name: multi
error_log: logs/php_errors.log
`
	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFile), []byte(yamlBody), 0644))

	cfg, err := Detect(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"multi-2.localhost"}, cfg.Sites["multi_two"])
	assert.Equal(t, "database", cfg.Database.Host)
	assert.Equal(t, "multi", cfg.Database.Name)
	assert.True(t, cfg.Database.IsSet())
	assert.Equal(t, filepath.Join(root, "logs", "php_errors.log"), cfg.ErrorLog)
}

func TestDetect_EnvOverridesYAML(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFile), []byte("database:\n  host: yaml-host\n"), 0644))
	t.Setenv("B_DB_HOST", "env-host")

	cfg, err := Detect(root)
	require.NoError(t, err)
	assert.Equal(t, "env-host", cfg.Database.Host)
}

func TestDetect_DotEnv(t *testing.T) {
	root := t.TempDir()
	t.Setenv("B_DB_USER", "")
	os.Unsetenv("B_DB_USER")
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte("B_DB_USER=lando\n"), 0644))

	cfg, err := Detect(root)
	require.NoError(t, err)
	assert.Equal(t, "lando", cfg.Database.User)
	assert.NotNil(t, cfg.Sites)
}

func TestDetect_InvalidYAML(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFile), []byte("sites: [unclosed"), 0644))

	_, err := Detect(root)
	assert.Error(t, err)
}
