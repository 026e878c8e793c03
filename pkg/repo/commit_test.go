package repo

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/twig/pkg/object"
)

var testEpoch = time.Unix(1700000000, 0).UTC()

// testClock returns a clock that advances one second per call, so commits
// made in a test never share a timestamp.
func testClock() func() time.Time {
	next := testEpoch
	return func() time.Time {
		now := next
		next = next.Add(time.Second)
		return now
	}
}

// initRepo creates an empty repository in a temp dir with a deterministic
// clock and no identity coming from the environment.
func initRepo(t *testing.T) *Repo {
	t.Helper()
	t.Setenv(envAuthorName, "")
	t.Setenv(envAuthorEmail, "")

	r, err := Init(t.TempDir(), WithClock(testClock()), WithLockTimeout(200*time.Millisecond))
	require.NoError(t, err)
	return r
}

// writeFile writes content to a repo-relative path, creating parents.
func writeFile(t *testing.T, r *Repo, rel, content string) {
	t.Helper()
	abs := filepath.Join(r.RootDir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
}

// initRepoWithFile creates a repository with a single staged file.
func initRepoWithFile(t *testing.T, name string, content []byte) *Repo {
	t.Helper()
	r := initRepo(t)
	writeFile(t, r, name, string(content))
	_, err := r.Stage(name)
	require.NoError(t, err)
	return r
}

// commitFile writes, stages and commits one file on the current branch.
func commitFile(t *testing.T, r *Repo, name, content, message string) object.Hash {
	t.Helper()
	writeFile(t, r, name, content)
	_, err := r.Stage(name)
	require.NoError(t, err)
	h, err := r.Commit(message, Identity{})
	require.NoError(t, err)
	return h
}

// Test 1: The first commit stores a root commit holding the staged tree.
func TestCommit_CreatesObject(t *testing.T) {
	r := initRepoWithFile(t, "main.go", []byte("package main\n"))

	h, err := r.Commit("initial commit", Identity{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)

	c, err := r.Store.ReadCommit(h)
	require.NoError(t, err)
	assert.False(t, c.HasParent())
	assert.Equal(t, "initial commit", c.Message)
	assert.Equal(t, "Ada", c.Author.Name)
	assert.Equal(t, "ada@example.com", c.Committer.Email)
	assert.True(t, testEpoch.Equal(c.Author.When))

	files, err := r.TreeFiles(c.TreeHash)
	require.NoError(t, err)
	require.Contains(t, files, "main.go")
	assert.Equal(t, object.HashObject(object.TypeBlob, []byte("package main\n")), files["main.go"].BlobHash)
}

// Test 2: Committing advances the active branch and leaves HEAD symbolic.
func TestCommit_UpdatesBranch(t *testing.T) {
	r := initRepoWithFile(t, "main.go", []byte("package main\n"))

	h, err := r.Commit("initial commit", Identity{})
	require.NoError(t, err)

	tip, err := r.ResolveRef("main")
	require.NoError(t, err)
	assert.Equal(t, h, tip)

	head, err := r.Head()
	require.NoError(t, err)
	assert.Equal(t, HeadState{Branch: "main", Hash: h}, head)
}

// Test 3: The second commit's parent is the first.
func TestCommit_SecondHasParent(t *testing.T) {
	r := initRepo(t)
	first := commitFile(t, r, "a.txt", "one", "first")
	second := commitFile(t, r, "a.txt", "two", "second")

	c, err := r.Store.ReadCommit(second)
	require.NoError(t, err)
	assert.Equal(t, first, c.Parent)
}

// Test 4: Commit with nothing staged.
func TestCommit_EmptyStagingArea(t *testing.T) {
	r := initRepo(t)

	_, err := r.Commit("nothing", Identity{})
	assert.ErrorIs(t, err, ErrEmptyStagingArea)

	// A deleted index file is treated as empty.
	require.NoError(t, os.Remove(r.indexPath()))
	_, err = r.Commit("nothing", Identity{})
	assert.ErrorIs(t, err, ErrEmptyStagingArea)
}

// Test 5: Committing while HEAD is detached is rejected and moves nothing.
func TestCommit_DetachedHeadRejected(t *testing.T) {
	r := initRepo(t)
	first := commitFile(t, r, "a.txt", "one", "first")

	_, err := r.Checkout(string(first))
	require.NoError(t, err)

	writeFile(t, r, "a.txt", "two")
	_, err = r.Stage("a.txt")
	require.NoError(t, err)

	_, err = r.Commit("detached", Identity{})
	assert.ErrorIs(t, err, ErrDetachedHead)

	tip, err := r.ResolveRef("main")
	require.NoError(t, err)
	assert.Equal(t, first, tip)
}

// Test 6: The index accumulates across commits.
func TestCommit_IndexIsCumulative(t *testing.T) {
	r := initRepo(t)
	first := commitFile(t, r, "a.txt", "a", "first")
	second := commitFile(t, r, "b.txt", "b", "second")

	c1, err := r.Store.ReadCommit(first)
	require.NoError(t, err)
	c2, err := r.Store.ReadCommit(second)
	require.NoError(t, err)

	files, err := r.TreeFiles(c2.TreeHash)
	require.NoError(t, err)
	assert.Len(t, files, 2)
	assert.NotEqual(t, c1.TreeHash, c2.TreeHash)

	// Committing again without staging reuses the same tree.
	third, err := r.Commit("again", Identity{})
	require.NoError(t, err)
	c3, err := r.Store.ReadCommit(third)
	require.NoError(t, err)
	assert.Equal(t, c2.TreeHash, c3.TreeHash)
	assert.Equal(t, second, c3.Parent)
}

// Test 7: A zero identity falls back to config, then the placeholder.
func TestCommit_IdentityFallback(t *testing.T) {
	r := initRepoWithFile(t, "a.txt", []byte("a"))

	h, err := r.Commit("placeholder", Identity{})
	require.NoError(t, err)
	c, err := r.Store.ReadCommit(h)
	require.NoError(t, err)
	assert.Equal(t, DefaultAuthorName, c.Author.Name)
	assert.Equal(t, DefaultAuthorEmail, c.Author.Email)

	require.NoError(t, r.SetConfig("user", "name", "Grace"))
	require.NoError(t, r.SetConfig("user", "email", "grace@example.com"))
	h, err = r.Commit("configured", Identity{})
	require.NoError(t, err)
	c, err = r.Store.ReadCommit(h)
	require.NoError(t, err)
	assert.Equal(t, "Grace <grace@example.com>", c.Author.Name+" <"+c.Author.Email+">")
}

// Test 8: The signer sees the unsigned payload and its output is stored.
func TestCommitWithSigner(t *testing.T) {
	r := initRepoWithFile(t, "a.txt", []byte("a"))

	var signed []byte
	h, err := r.CommitWithSigner("signed", Identity{}, func(payload []byte) (string, error) {
		signed = append([]byte(nil), payload...)
		return "test-signature", nil
	})
	require.NoError(t, err)

	c, err := r.Store.ReadCommit(h)
	require.NoError(t, err)
	assert.Equal(t, "test-signature", c.Signature)
	assert.Equal(t, object.CommitSigningPayload(c), signed)
}

// Test 9: A failing signer aborts the commit before the branch moves.
func TestCommitWithSigner_Error(t *testing.T) {
	r := initRepoWithFile(t, "a.txt", []byte("a"))

	boom := errors.New("no key")
	_, err := r.CommitWithSigner("signed", Identity{}, func([]byte) (string, error) {
		return "", boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = r.ResolveRef("HEAD")
	assert.ErrorIs(t, err, ErrNoCommitsYet)
}

// Test 10: Identities that would break the commit header are rejected
// before anything is written, whichever source they come from.
func TestCommit_RejectsUnsafeIdentity(t *testing.T) {
	r := initRepo(t)
	base := commitFile(t, r, "a.txt", "a", "base")
	writeFile(t, r, "a.txt", "b")
	_, err := r.Stage("a.txt")
	require.NoError(t, err)

	for _, id := range []Identity{
		{Name: "Eve\nparent 0000", Email: "e@x"},
		{Name: "Eve", Email: "e@x>\rtree"},
		{Name: "Eve <evil", Email: "e@x"},
	} {
		_, err := r.Commit("msg", id)
		assert.ErrorIs(t, err, ErrInvalidIdentity, "%q", id)
	}

	t.Setenv(envAuthorName, "Eve\nparent 0000")
	_, err = r.Commit("from env", Identity{})
	assert.ErrorIs(t, err, ErrInvalidIdentity)
	t.Setenv(envAuthorName, "")

	require.NoError(t, os.WriteFile(r.configPath(), []byte("[user]\nname = \"Eve <e@x>\"\n"), 0o644))
	_, err = r.Commit("from config", Identity{})
	assert.ErrorIs(t, err, ErrInvalidIdentity)

	tip, err := r.ResolveRef("HEAD")
	require.NoError(t, err)
	assert.Equal(t, base, tip, "branch must not move")

	entries, err := r.Log(tip, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
