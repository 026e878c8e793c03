package repo

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test 1: Config values survive a write and read.
func TestConfig_RoundTrip(t *testing.T) {
	r := initRepo(t)

	require.NoError(t, r.SetConfig("user", "name", "Ada Lovelace"))
	require.NoError(t, r.SetConfig("user", "email", "ada@example.com"))
	require.NoError(t, r.SetRemote("origin", "https://example.com/repo.twig"))

	cfg, err := r.ReadConfig()
	require.NoError(t, err)

	name, ok := cfg.Lookup("user", "name")
	assert.True(t, ok)
	assert.Equal(t, "Ada Lovelace", name)
	url, ok := cfg.Lookup("remote", "origin")
	assert.True(t, ok)
	assert.Equal(t, "https://example.com/repo.twig", url)
	_, ok = cfg.Lookup("user", "nickname")
	assert.False(t, ok)

	data, err := os.ReadFile(r.configPath())
	require.NoError(t, err)
	assert.Contains(t, string(data), "[user]")
}

// Test 2: Missing and empty config files read as empty config.
func TestConfig_MissingIsEmpty(t *testing.T) {
	r := initRepo(t)

	cfg, err := r.ReadConfig()
	require.NoError(t, err)
	assert.Empty(t, cfg.User.Name)
	assert.NotNil(t, cfg.Remotes)

	require.NoError(t, os.Remove(r.configPath()))
	cfg, err = r.ReadConfig()
	require.NoError(t, err)
	assert.Empty(t, cfg.Remotes)
}

// Test 3: Unknown keys and malformed files are errors.
func TestConfig_Errors(t *testing.T) {
	r := initRepo(t)

	assert.ErrorIs(t, r.SetConfig("user", "shoe_size", "9"), ErrUnknownConfigKey)
	assert.ErrorIs(t, r.SetConfig("core", "editor", "vi"), ErrUnknownConfigKey)
	assert.ErrorIs(t, r.SetConfig("user", "name", "Eve\nparent"), ErrInvalidIdentity)
	assert.ErrorIs(t, r.SetConfig("user", "email", "<e@x>"), ErrInvalidIdentity)

	_, _, err := SplitConfigKey("username")
	assert.ErrorIs(t, err, ErrUnknownConfigKey)
	section, key, err := SplitConfigKey("user.email")
	require.NoError(t, err)
	assert.Equal(t, "user", section)
	assert.Equal(t, "email", key)

	require.NoError(t, os.WriteFile(r.configPath(), []byte("[user\nname = "), 0o644))
	_, err = r.ReadConfig()
	assert.Error(t, err)
}

// Test 4: Identity precedence is environment, config, placeholder.
func TestIdentity_Precedence(t *testing.T) {
	r := initRepo(t)

	id, err := r.Identity()
	require.NoError(t, err)
	assert.Equal(t, Identity{Name: DefaultAuthorName, Email: DefaultAuthorEmail}, id)

	require.NoError(t, r.SetConfig("user", "name", "Configured"))
	id, err = r.Identity()
	require.NoError(t, err)
	assert.Equal(t, Identity{Name: "Configured", Email: DefaultAuthorEmail}, id)

	t.Setenv(envAuthorName, "FromEnv")
	t.Setenv(envAuthorEmail, "env@example.com")
	id, err = r.Identity()
	require.NoError(t, err)
	assert.Equal(t, Identity{Name: "FromEnv", Email: "env@example.com"}, id)
}

// Test 5: Remotes can be listed and removed.
func TestConfig_Remotes(t *testing.T) {
	r := initRepo(t)
	require.NoError(t, r.SetRemote("upstream", "u"))
	require.NoError(t, r.SetRemote("origin", "o"))

	cfg, err := r.ReadConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"origin", "upstream"}, cfg.RemoteNames())

	require.NoError(t, r.RemoveRemote("origin"))
	assert.ErrorIs(t, r.RemoveRemote("origin"), ErrRefNotFound)

	_, err = r.RemoteURL("origin")
	assert.Error(t, err)
	url, err := r.RemoteURL("upstream")
	require.NoError(t, err)
	assert.Equal(t, "u", url)

	assert.Error(t, r.SetRemote("", "x"))
	assert.Error(t, r.SetRemote("x", " "))
}
