package repo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test 1: Init creates the .twig/ structure.
func TestInit_CreatesStructure(t *testing.T) {
	dir := t.TempDir()

	r, err := Init(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, r.RootDir)

	twigDir := filepath.Join(dir, DirName)
	assert.Equal(t, twigDir, r.Dir)

	assertDir(t, twigDir)
	assertDir(t, filepath.Join(twigDir, "objects"))
	assertDir(t, filepath.Join(twigDir, "refs", "heads"))
	assertDir(t, filepath.Join(twigDir, "refs", "tags"))
	assertDir(t, filepath.Join(twigDir, "logs", "refs", "heads"))
	assertFile(t, filepath.Join(twigDir, "index"))
	assertFile(t, filepath.Join(twigDir, "config"))
	assert.NotNil(t, r.Store)
	assert.NotNil(t, r.Logger)
}

// Test 2: Init on an existing repo is ErrAlreadyInitialized and changes
// nothing.
func TestInit_ExistingRepo_Error(t *testing.T) {
	dir := t.TempDir()
	r, err := Init(dir)
	require.NoError(t, err)
	commitFile(t, r, "a.txt", "a", "initial")

	headBefore, err := os.ReadFile(filepath.Join(r.Dir, "HEAD"))
	require.NoError(t, err)
	indexBefore, err := os.ReadFile(r.indexPath())
	require.NoError(t, err)

	_, err = Init(dir)
	assert.ErrorIs(t, err, ErrAlreadyInitialized)

	headAfter, err := os.ReadFile(filepath.Join(r.Dir, "HEAD"))
	require.NoError(t, err)
	indexAfter, err := os.ReadFile(r.indexPath())
	require.NoError(t, err)
	assert.Equal(t, headBefore, headAfter)
	assert.Equal(t, indexBefore, indexAfter)
}

// Test 3: Open finds .twig/ from a subdirectory.
func TestOpen_FromSubdirectory(t *testing.T) {
	dir := t.TempDir()
	_, err := Init(dir)
	require.NoError(t, err)

	sub := filepath.Join(dir, "a", "b", "c")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	r, err := Open(sub)
	require.NoError(t, err)
	assert.Equal(t, dir, r.RootDir)
	assert.Equal(t, filepath.Join(dir, DirName), r.Dir)
}

// Test 4: Open in a non-repo directory returns ErrNotInitialized.
func TestOpen_NoRepo_Error(t *testing.T) {
	_, err := Open(t.TempDir())
	assert.ErrorIs(t, err, ErrNotInitialized)
}

// Test 5: HEAD defaults to "ref: refs/heads/main".
func TestInit_HeadDefault(t *testing.T) {
	r, err := Init(t.TempDir())
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(r.Dir, "HEAD"))
	require.NoError(t, err)
	assert.Equal(t, "ref: refs/heads/main\n", string(data))
}

func assertDir(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if assert.NoError(t, err, path) {
		assert.True(t, info.IsDir(), "%s is not a directory", path)
	}
}

func assertFile(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if assert.NoError(t, err, path) {
		assert.False(t, info.IsDir(), "%s is a directory", path)
	}
}
