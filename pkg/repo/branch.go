package repo

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/odvcencio/twig/pkg/object"
)

// CreateBranch creates a branch at the commit the current branch (or
// detached HEAD) points at. It returns ErrAlreadyExists when the branch is
// present and ErrNoCommitsYet when there is no commit to copy. HEAD is not
// moved.
func (r *Repo) CreateBranch(name string) (object.Hash, error) {
	var tip object.Hash
	err := r.withLock("create branch", func() error {
		if err := r.checkNewRef(headsPrefix, name); err != nil {
			return fmt.Errorf("create branch: %w", err)
		}
		head, err := r.Head()
		if err != nil {
			return fmt.Errorf("create branch: %w", err)
		}
		if head.Hash == "" {
			return fmt.Errorf("create branch %q: %w", name, ErrNoCommitsYet)
		}
		tip = head.Hash
		return r.createRef(headsPrefix+name, tip, "branch: created from HEAD")
	})
	return tip, err
}

// CreateBranchAt creates a branch at an explicit start point, which may be
// anything Resolve accepts but must name a commit.
func (r *Repo) CreateBranchAt(name, target string) (object.Hash, error) {
	var tip object.Hash
	err := r.withLock("create branch", func() error {
		if err := r.checkNewRef(headsPrefix, name); err != nil {
			return fmt.Errorf("create branch: %w", err)
		}
		h, err := r.resolveCommit(target)
		if err != nil {
			return fmt.Errorf("create branch %q: %w", name, err)
		}
		tip = h
		return r.createRef(headsPrefix+name, tip, "branch: created from "+target)
	})
	return tip, err
}

// DeleteBranch removes the branch ref file .twig/refs/heads/<name> and its
// reflog. It refuses to delete the checked-out branch.
func (r *Repo) DeleteBranch(name string) error {
	return r.withLock("delete branch", func() error {
		if err := validateRefName(name); err != nil {
			return fmt.Errorf("delete branch: %w", err)
		}
		current, ok, err := r.CurrentBranch()
		if err != nil {
			return fmt.Errorf("delete branch: %w", err)
		}
		if ok && current == name {
			return fmt.Errorf("delete branch %q: %w", name, ErrCurrentBranch)
		}

		if _, err := r.deleteRef(headsPrefix + name); err != nil {
			if errors.Is(err, ErrRefNotFound) || os.IsNotExist(err) {
				return fmt.Errorf("delete branch %q: %w", name, ErrRefNotFound)
			}
			return fmt.Errorf("delete branch %q: %w", name, err)
		}
		if err := os.Remove(r.reflogPath(headsPrefix + name)); err != nil && !os.IsNotExist(err) {
			r.Logger.Debug("remove branch reflog", "branch", name, "error", err)
		}
		return nil
	})
}

// ListBranches returns the branch names sorted alphabetically.
func (r *Repo) ListBranches() ([]string, error) {
	refs, err := r.ListRefs("heads")
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}

	names := make([]string, 0, len(refs))
	for full := range refs {
		names = append(names, strings.TrimPrefix(full, "heads/"))
	}
	sort.Strings(names)
	return names, nil
}

// checkNewRef validates name and reports ErrAlreadyExists when
// <prefix><name> is present.
func (r *Repo) checkNewRef(prefix, name string) error {
	if err := validateRefName(name); err != nil {
		return err
	}
	existing, err := r.readRef(prefix + name)
	if err != nil {
		return err
	}
	if existing != "" {
		return fmt.Errorf("%s%s: %w", prefix, name, ErrAlreadyExists)
	}
	if conflict := r.refPathConflict(prefix + name); conflict != "" {
		return fmt.Errorf("%s%s conflicts with %s: %w", prefix, name, conflict, ErrAlreadyExists)
	}
	return nil
}

// refPathConflict reports a ref that would share a path with refName: a
// namespace directory at refName ("feature" when "feature/x" exists) or a
// ref file at one of its parents ("feature/x" when "feature" exists).
func (r *Repo) refPathConflict(refName string) string {
	if info, err := os.Stat(filepath.Join(r.Dir, filepath.FromSlash(refName))); err == nil && info.IsDir() {
		return refName + "/"
	}
	for dir := path.Dir(refName); strings.Count(dir, "/") >= 2; dir = path.Dir(dir) {
		if info, err := os.Stat(filepath.Join(r.Dir, filepath.FromSlash(dir))); err == nil && !info.IsDir() {
			return dir
		}
	}
	return ""
}

// createRef writes a new ref, failing with ErrAlreadyExists if another
// writer created it first.
func (r *Repo) createRef(refName string, h object.Hash, reason string) error {
	if err := r.updateRef(refName, h, reason, ""); err != nil {
		if errors.Is(err, ErrRefCASMismatch) {
			return fmt.Errorf("%s: %w", refName, ErrAlreadyExists)
		}
		return err
	}
	return nil
}

// resolveCommit resolves target and checks that it names a commit object.
func (r *Repo) resolveCommit(target string) (object.Hash, error) {
	h, err := r.Resolve(target)
	if err != nil {
		return "", err
	}
	objType, _, err := r.Store.Read(h)
	if err != nil {
		if errors.Is(err, object.ErrObjectNotFound) {
			return "", fmt.Errorf("%q: %w", target, ErrRefNotFound)
		}
		return "", err
	}
	if objType != object.TypeCommit {
		return "", fmt.Errorf("%q is a %s, not a commit: %w", target, objType, ErrRefNotFound)
	}
	return h, nil
}
