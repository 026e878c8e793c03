package repo

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/twig/pkg/object"
)

func testHash(s string) object.Hash {
	return object.HashObject(object.TypeCommit, []byte(s))
}

// Test 1: A fresh repository has a symbolic HEAD with no commits.
func TestHead_Unborn(t *testing.T) {
	r := initRepo(t)

	head, err := r.Head()
	require.NoError(t, err)
	assert.Equal(t, HeadState{Branch: DefaultBranch}, head)
	assert.False(t, head.Detached())

	_, err = r.ResolveRef("HEAD")
	assert.ErrorIs(t, err, ErrNoCommitsYet)
	_, err = r.ResolveRef("main")
	assert.ErrorIs(t, err, ErrRefNotFound)
}

// Test 2: UpdateRef and ResolveRef round trip, by short and full name.
func TestUpdateRef_ResolveRef_RoundTrip(t *testing.T) {
	r := initRepo(t)
	h := testHash("a")

	require.NoError(t, r.UpdateRef("refs/heads/main", h))

	for _, name := range []string{"HEAD", "main", "refs/heads/main"} {
		got, err := r.ResolveRef(name)
		require.NoError(t, err, name)
		assert.Equal(t, h, got, name)
	}

	data, err := os.ReadFile(filepath.Join(r.Dir, "refs", "heads", "main"))
	require.NoError(t, err)
	assert.Equal(t, string(h)+"\n", string(data))
}

// Test 3: Compare-and-swap semantics.
func TestUpdateRefCAS(t *testing.T) {
	r := initRepo(t)
	a, b, c := testHash("a"), testHash("b"), testHash("c")

	require.NoError(t, r.UpdateRefCAS("refs/heads/x", a, ""))
	assert.ErrorIs(t, r.UpdateRefCAS("refs/heads/x", b, ""), ErrRefCASMismatch)
	assert.ErrorIs(t, r.UpdateRefCAS("refs/heads/x", b, c), ErrRefCASMismatch)
	require.NoError(t, r.UpdateRefCAS("refs/heads/x", b, a))

	got, err := r.ResolveRef("x")
	require.NoError(t, err)
	assert.Equal(t, b, got)

	assert.Error(t, r.UpdateRefCAS("refs/heads/x", "not-a-hash"))
	assert.Error(t, r.UpdateRefCAS("refs/heads/x", c, a, b))

	_, err = os.Stat(filepath.Join(r.Dir, "refs", "heads", "x.lock"))
	assert.True(t, os.IsNotExist(err), "lock file must be cleaned up")
}

// Test 4: A reflog append failure still leaves the ref updated.
func TestUpdateRef_ReflogFailure(t *testing.T) {
	r := initRepo(t)
	h := testHash("a")

	// A directory where the reflog file should be makes the append fail.
	require.NoError(t, os.MkdirAll(filepath.Join(r.Dir, "logs", "refs", "heads", "blocked"), 0o755))

	err := r.UpdateRef("refs/heads/blocked", h)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRefUpdatedButReflogAppendFailed)

	var rerr *RefUpdateReflogError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, h, rerr.NewHash)

	got, err := r.ResolveRef("blocked")
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

// Test 5: Resolve prefers branches, then tags, then object ids.
func TestResolve_Order(t *testing.T) {
	r := initRepo(t)
	first := commitFile(t, r, "a.txt", "1", "first")
	second := commitFile(t, r, "a.txt", "2", "second")

	_, err := r.CreateTagAt("release", string(first))
	require.NoError(t, err)
	_, err = r.CreateTagAt("main", string(first))
	require.NoError(t, err)

	tests := []struct {
		in   string
		want object.Hash
	}{
		{in: "HEAD", want: second},
		{in: "main", want: second},
		{in: "refs/tags/main", want: first},
		{in: "release", want: first},
		{in: string(first), want: first},
		{in: first.Short(6), want: first},
	}
	for _, tc := range tests {
		got, err := r.Resolve(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	for _, bad := range []string{"", "nope", "abc", string(testHash("ghost"))} {
		_, err := r.Resolve(bad)
		assert.ErrorIs(t, err, ErrRefNotFound, "Resolve(%q)", bad)
	}
}

// Test 6: A malformed detached HEAD is reported, not guessed at.
func TestHead_Malformed(t *testing.T) {
	r := initRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(r.Dir, "HEAD"), []byte("garbage\n"), 0o644))

	_, err := r.Head()
	assert.Error(t, err)
}

// Test 7: ListRefs skips in-flight lock files.
func TestListRefs(t *testing.T) {
	r := initRepo(t)
	h := testHash("a")
	require.NoError(t, r.UpdateRef("refs/heads/main", h))
	require.NoError(t, r.UpdateRef("refs/tags/v1", h))
	require.NoError(t, os.WriteFile(filepath.Join(r.Dir, "refs", "heads", "busy.lock"), []byte("x"), 0o644))

	refs, err := r.ListRefs("")
	require.NoError(t, err)
	assert.Equal(t, map[string]object.Hash{"heads/main": h, "tags/v1": h}, refs)
}

// Test 8: Ref name validation.
func TestValidateRefName(t *testing.T) {
	for _, ok := range []string{"main", "feature/x", "v1.0.0", "release-2"} {
		assert.NoError(t, validateRefName(ok), ok)
	}
	for _, bad := range []string{"", "HEAD", "a..b", "/x", "x/", "a//b", "-x", ".x", "x.lock", "a b", "a:b", "a~1", "a^", "a*", "a?", "a[", "a\\b", "a\nb"} {
		assert.ErrorIs(t, validateRefName(bad), ErrInvalidRefName, bad)
	}
}

// Test 9: The branch reflog records each commit, newest first.
func TestReflog_Commits(t *testing.T) {
	r := initRepo(t)
	first := commitFile(t, r, "a.txt", "1", "first")
	second := commitFile(t, r, "a.txt", "2", "second\n\nbody")

	entries, err := r.ReadReflog("", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "refs/heads/main", entries[0].Ref)
	assert.Equal(t, first, entries[0].OldHash)
	assert.Equal(t, second, entries[0].NewHash)
	assert.Equal(t, "commit: second", entries[0].Reason)

	assert.Equal(t, zeroHash, entries[1].OldHash)
	assert.Equal(t, "commit (initial): first", entries[1].Reason)

	limited, err := r.ReadReflog("main", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	none, err := r.ReadReflog("other", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

// Test 10: Ref files without an object id are skipped by ListRefs and
// reported by Verify.
func TestListRefs_SkipsMalformed(t *testing.T) {
	r := initRepo(t)
	tip := commitFile(t, r, "a.txt", "a", "initial")
	require.NoError(t, os.WriteFile(filepath.Join(r.Dir, "refs", "heads", "junk"), []byte("not a hash\n"), 0o644))

	branches, err := r.ListBranches()
	require.NoError(t, err)
	assert.Equal(t, []string{"main"}, branches)

	refs, err := r.ListRefs("")
	require.NoError(t, err)
	assert.Equal(t, map[string]object.Hash{"heads/main": tip}, refs)

	problems, err := r.Verify()
	require.NoError(t, err)
	require.Len(t, problems, 1)
	assert.Equal(t, "refs/heads/junk", problems[0].Ref)
	assert.Empty(t, problems[0].Hash)
	assert.Equal(t, "refs/heads/junk: "+problems[0].Err.Error(), problems[0].String())
}

// Test 11: Reflog lines round trip through the line codec; damaged lines
// are skipped.
func TestReflog_LineCodec(t *testing.T) {
	a, b := testHash("a"), testHash("b")
	e := ReflogEntry{Ref: "refs/heads/main", OldHash: a, NewHash: b, Timestamp: 1700000000, Reason: "commit: two\nlines"}
	line := e.encode()
	assert.Equal(t, string(a)+" "+string(b)+" 1700000000 commit: two lines\n", line)

	got, ok := decodeReflogLine("refs/heads/main", line)
	require.True(t, ok)
	assert.Equal(t, ReflogEntry{Ref: "refs/heads/main", OldHash: a, NewHash: b, Timestamp: 1700000000, Reason: "commit: two lines"}, got)

	initial := ReflogEntry{NewHash: b}.encode()
	assert.Equal(t, string(zeroHash)+" "+string(b)+" 0 update\n", initial)

	for _, bad := range []string{"", "x y 1 r", string(a) + " " + string(b) + " soon r", string(a) + " " + string(b) + " 1"} {
		_, ok := decodeReflogLine("HEAD", bad)
		assert.False(t, ok, "%q", bad)
	}

	r := initRepo(t)
	commitFile(t, r, "a.txt", "1", "first")
	logPath := r.reflogPath("refs/heads/main")
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("garbage line\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	commitFile(t, r, "a.txt", "2", "second")

	entries, err := r.ReadReflog("main", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "commit: second", entries[0].Reason)
}
