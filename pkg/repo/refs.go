package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/odvcencio/twig/pkg/object"
)

const (
	refLockRetryDelay = 5 * time.Millisecond
	refLockWaitLimit  = 2 * time.Second

	headsPrefix = "refs/heads/"
	tagsPrefix  = "refs/tags/"
	symrefLabel = "ref: "
)

// RefUpdateReflogError indicates the ref file update succeeded, but appending
// the corresponding reflog entry failed.
type RefUpdateReflogError struct {
	Ref     string
	OldHash object.Hash
	NewHash object.Hash
	Err     error
}

func (e *RefUpdateReflogError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf(
		"update ref %q: %s (old=%s new=%s): %v",
		e.Ref,
		ErrRefUpdatedButReflogAppendFailed,
		e.OldHash,
		e.NewHash,
		e.Err,
	)
}

func (e *RefUpdateReflogError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *RefUpdateReflogError) Is(target error) bool {
	return target == ErrRefUpdatedButReflogAppendFailed
}

// HeadState describes what HEAD points at.
type HeadState struct {
	// Branch is the active branch name when HEAD is symbolic, "" when detached.
	Branch string
	// Hash is the commit HEAD resolves to: the detached commit, or the branch
	// tip. It is empty on a branch that has no commits yet.
	Hash object.Hash
}

// Detached reports whether HEAD holds a literal commit id.
func (h HeadState) Detached() bool {
	return h.Branch == ""
}

// Head reads .twig/HEAD. A "ref: refs/heads/<name>" line is a symbolic HEAD;
// anything else must be a literal commit id (detached HEAD).
func (r *Repo) Head() (HeadState, error) {
	data, err := os.ReadFile(filepath.Join(r.Dir, "HEAD"))
	if err != nil {
		return HeadState{}, fmt.Errorf("head: %w", err)
	}
	content := strings.TrimSpace(string(data))

	if target, ok := strings.CutPrefix(content, symrefLabel); ok {
		branch, ok := strings.CutPrefix(strings.TrimSpace(target), headsPrefix)
		if !ok || validateRefName(branch) != nil {
			return HeadState{}, fmt.Errorf("head: malformed symbolic ref %q", content)
		}
		tip, err := r.readRef(headsPrefix + branch)
		if err != nil {
			return HeadState{}, fmt.Errorf("head: %w", err)
		}
		return HeadState{Branch: branch, Hash: tip}, nil
	}

	h, err := object.ParseHash(content)
	if err != nil {
		return HeadState{}, fmt.Errorf("head: malformed detached HEAD: %w", err)
	}
	return HeadState{Hash: h}, nil
}

// CurrentBranch returns the active branch name. The boolean is false when
// HEAD is detached.
func (r *Repo) CurrentBranch() (string, bool, error) {
	head, err := r.Head()
	if err != nil {
		return "", false, fmt.Errorf("current branch: %w", err)
	}
	if head.Detached() {
		return "", false, nil
	}
	return head.Branch, true, nil
}

// ResolveRef resolves a ref name to a commit hash.
//
// Resolution order:
//  1. If name is "HEAD", read HEAD. A branch with no commits yields
//     ErrNoCommitsYet.
//  2. If name starts with "refs/", read .twig/<name>.
//  3. Otherwise, try "refs/heads/<name>".
//
// A ref file that does not exist yields ErrRefNotFound.
func (r *Repo) ResolveRef(name string) (object.Hash, error) {
	if name == "HEAD" {
		head, err := r.Head()
		if err != nil {
			return "", err
		}
		if head.Hash == "" {
			return "", fmt.Errorf("resolve HEAD: branch %q: %w", head.Branch, ErrNoCommitsYet)
		}
		return head.Hash, nil
	}

	refName := name
	if !strings.HasPrefix(name, "refs/") {
		refName = headsPrefix + name
	}
	h, err := r.readRef(refName)
	if err != nil {
		return "", fmt.Errorf("resolve ref %q: %w", name, err)
	}
	if h == "" {
		return "", fmt.Errorf("resolve ref %q: %w", name, ErrRefNotFound)
	}
	return h, nil
}

// Resolve turns a user-supplied name into an object id. It tries, in order:
// HEAD, a full "refs/..." path, a branch, a tag, a full object id of a stored
// object and finally a unique abbreviated object id.
func (r *Repo) Resolve(nameOrID string) (object.Hash, error) {
	nameOrID = strings.TrimSpace(nameOrID)
	if nameOrID == "" {
		return "", fmt.Errorf("resolve: empty name: %w", ErrRefNotFound)
	}
	if nameOrID == "HEAD" || strings.HasPrefix(nameOrID, "refs/") {
		return r.ResolveRef(nameOrID)
	}

	if validateRefName(nameOrID) == nil {
		for _, prefix := range []string{headsPrefix, tagsPrefix} {
			h, err := r.readRef(prefix + nameOrID)
			if err != nil {
				return "", fmt.Errorf("resolve %q: %w", nameOrID, err)
			}
			if h != "" {
				return h, nil
			}
		}
	}

	h, err := r.Store.ResolvePrefix(nameOrID)
	if err == nil {
		return h, nil
	}
	if errors.Is(err, object.ErrAmbiguousPrefix) {
		return "", fmt.Errorf("resolve %q: %w", nameOrID, err)
	}
	return "", fmt.Errorf("resolve %q: %w", nameOrID, ErrRefNotFound)
}

// UpdateRef writes a hash to the named ref file under .twig/. Parent
// directories are created as needed.
func (r *Repo) UpdateRef(name string, h object.Hash) error {
	return r.updateRef(name, h, "update")
}

// UpdateRefCAS writes a hash to the named ref file under .twig/ using
// lockfile + rename atomic semantics. If expectedOld is provided, the
// update only succeeds when the current ref hash matches it; an empty
// expectedOld means the ref must not exist yet.
//
// Reflog append happens after the ref rename; if reflog append fails, the ref
// update remains committed and a RefUpdateReflogError is returned.
func (r *Repo) UpdateRefCAS(name string, h object.Hash, expectedOld ...object.Hash) error {
	return r.updateRef(name, h, "update", expectedOld...)
}

// AdvanceBranch moves branch name to h, provided it still points at
// expectedOld ("" for a branch that has no commits yet).
func (r *Repo) AdvanceBranch(name string, h, expectedOld object.Hash, reason string) error {
	if err := validateRefName(name); err != nil {
		return fmt.Errorf("advance branch: %w", err)
	}
	return r.updateRef(headsPrefix+name, h, reason, expectedOld)
}

func (r *Repo) updateRef(name string, h object.Hash, reason string, expectedOld ...object.Hash) error {
	if len(expectedOld) > 1 {
		return fmt.Errorf("update ref %q: expected at most one old hash", name)
	}
	if err := object.ValidateHash(string(h)); err != nil {
		return fmt.Errorf("update ref %q: %w", name, err)
	}
	hasExpectedOld := len(expectedOld) == 1
	wantOldHash := object.Hash("")
	if hasExpectedOld {
		wantOldHash = expectedOld[0]
	}

	refPath := filepath.Join(r.Dir, filepath.FromSlash(name))

	dir := filepath.Dir(refPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("update ref %q: mkdir: %w", name, err)
	}

	lockPath := refPath + ".lock"
	lockFile, err := acquireRefLock(lockPath)
	if err != nil {
		return fmt.Errorf("update ref %q: lock: %w", name, err)
	}
	cleanupLock := true
	defer func() {
		if lockFile != nil {
			_ = lockFile.Close()
		}
		if cleanupLock {
			_ = os.Remove(lockPath)
		}
	}()

	oldHash, err := readRefHash(refPath)
	if err != nil {
		return fmt.Errorf("update ref %q: read old hash: %w", name, err)
	}
	if hasExpectedOld && oldHash != wantOldHash {
		return fmt.Errorf(
			"update ref %q: %w (expected %s, found %s)",
			name,
			ErrRefCASMismatch,
			wantOldHash,
			oldHash,
		)
	}

	if _, err := lockFile.WriteString(string(h) + "\n"); err != nil {
		return fmt.Errorf("update ref %q: write: %w", name, err)
	}
	if err := lockFile.Sync(); err != nil {
		return fmt.Errorf("update ref %q: sync: %w", name, err)
	}
	if err := lockFile.Close(); err != nil {
		lockFile = nil
		return fmt.Errorf("update ref %q: close: %w", name, err)
	}
	lockFile = nil

	if err := os.Rename(lockPath, refPath); err != nil {
		return fmt.Errorf("update ref %q: rename: %w", name, err)
	}
	cleanupLock = false
	r.Logger.Debug("updated ref", "ref", name, "old", oldHash, "new", h)

	if err := r.appendReflog(name, oldHash, h, reason); err != nil {
		return &RefUpdateReflogError{
			Ref:     name,
			OldHash: oldHash,
			NewHash: h,
			Err:     err,
		}
	}

	return nil
}

// deleteRef removes a ref file. It returns ErrRefNotFound when the ref does
// not exist.
func (r *Repo) deleteRef(name string) (object.Hash, error) {
	refPath := filepath.Join(r.Dir, filepath.FromSlash(name))
	old, err := readRefHash(refPath)
	if err != nil {
		return "", err
	}
	if old == "" {
		return "", ErrRefNotFound
	}
	if err := os.Remove(refPath); err != nil {
		if os.IsNotExist(err) {
			return "", ErrRefNotFound
		}
		return "", err
	}
	r.Logger.Debug("deleted ref", "ref", name, "old", old)
	return old, nil
}

// writeHead atomically replaces .twig/HEAD.
func (r *Repo) writeHead(content string) error {
	tmp, err := os.CreateTemp(r.Dir, ".HEAD-tmp-*")
	if err != nil {
		return fmt.Errorf("write HEAD: tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(content + "\n"); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write HEAD: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write HEAD: close: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(r.Dir, "HEAD")); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write HEAD: rename: %w", err)
	}
	return nil
}

// readRef reads the ref at name (e.g. "refs/heads/main"). A missing ref
// yields an empty hash and no error.
func (r *Repo) readRef(name string) (object.Hash, error) {
	return readRefHash(filepath.Join(r.Dir, filepath.FromSlash(name)))
}

func acquireRefLock(lockPath string) (*os.File, error) {
	deadline := time.Now().Add(refLockWaitLimit)
	for {
		f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, nil
		}
		if os.IsExist(err) {
			if time.Now().After(deadline) {
				return nil, fmt.Errorf("timeout waiting for lock %q", lockPath)
			}
			time.Sleep(refLockRetryDelay)
			continue
		}
		return nil, err
	}
}

// readRefHash returns "" for a ref that does not exist, including a path
// that is only a namespace directory for nested refs.
func readRefHash(refPath string) (object.Hash, error) {
	data, err := os.ReadFile(refPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		if info, statErr := os.Stat(refPath); statErr == nil && info.IsDir() {
			return "", nil
		}
		return "", err
	}
	h, err := object.ParseHash(string(data))
	if err != nil {
		return "", fmt.Errorf("malformed ref file %s: %w", refPath, err)
	}
	return h, nil
}

// validateRefName rejects names that cannot be stored as a single ref file
// under refs/heads or refs/tags.
func validateRefName(name string) error {
	switch {
	case name == "", name == "HEAD":
		return fmt.Errorf("%w %q", ErrInvalidRefName, name)
	case strings.HasPrefix(name, "/"), strings.HasSuffix(name, "/"):
		return fmt.Errorf("%w %q", ErrInvalidRefName, name)
	case strings.HasPrefix(name, "-"), strings.HasPrefix(name, "."):
		return fmt.Errorf("%w %q", ErrInvalidRefName, name)
	case strings.Contains(name, ".."), strings.Contains(name, "//"):
		return fmt.Errorf("%w %q", ErrInvalidRefName, name)
	case strings.HasSuffix(name, ".lock"):
		return fmt.Errorf("%w %q", ErrInvalidRefName, name)
	case strings.ContainsAny(name, " \t\n\r\\:~^?*["):
		return fmt.Errorf("%w %q", ErrInvalidRefName, name)
	}
	return nil
}

// ListRefs lists references under .twig/refs.
// Names are returned relative to refs root, e.g. "heads/main", "tags/v1".
// In-flight ".lock" files are skipped, as are ref files that do not hold an
// object id (logged at warn level; Verify reports them).
func (r *Repo) ListRefs(prefix string) (map[string]object.Hash, error) {
	return r.walkRefs(prefix, func(name string, err error) {
		r.Logger.Warn("skip malformed ref", "ref", "refs/"+name, "error", err)
	})
}

func (r *Repo) walkRefs(prefix string, malformed func(name string, err error)) (map[string]object.Hash, error) {
	root := filepath.Join(r.Dir, "refs")
	dir := root
	if strings.TrimSpace(prefix) != "" {
		dir = filepath.Join(root, filepath.FromSlash(prefix))
	}

	refs := make(map[string]object.Hash)
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || strings.HasSuffix(d.Name(), ".lock") {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		h, err := readRefHash(path)
		if err != nil {
			malformed(name, err)
			return nil
		}
		refs[name] = h
		return nil
	})
	if os.IsNotExist(err) {
		return refs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}
	return refs, nil
}
