package repo

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/odvcencio/twig/pkg/object"
)

// CreateTag creates a lightweight tag at the commit HEAD resolves to. Tags
// never move: an existing tag is ErrAlreadyExists.
func (r *Repo) CreateTag(name string) (object.Hash, error) {
	var target object.Hash
	err := r.withLock("create tag", func() error {
		name = strings.TrimSpace(name)
		if err := r.checkNewRef(tagsPrefix, name); err != nil {
			return fmt.Errorf("create tag: %w", err)
		}
		head, err := r.Head()
		if err != nil {
			return fmt.Errorf("create tag: %w", err)
		}
		if head.Hash == "" {
			return fmt.Errorf("create tag %q: %w", name, ErrNoCommitsYet)
		}
		target = head.Hash
		return r.createRef(tagsPrefix+name, target, "tag: created at HEAD")
	})
	return target, err
}

// CreateTagAt creates a lightweight tag at an explicit commit.
func (r *Repo) CreateTagAt(name, target string) (object.Hash, error) {
	var h object.Hash
	err := r.withLock("create tag", func() error {
		name = strings.TrimSpace(name)
		if err := r.checkNewRef(tagsPrefix, name); err != nil {
			return fmt.Errorf("create tag: %w", err)
		}
		resolved, err := r.resolveCommit(target)
		if err != nil {
			return fmt.Errorf("create tag %q: %w", name, err)
		}
		h = resolved
		return r.createRef(tagsPrefix+name, h, "tag: created at "+target)
	})
	return h, err
}

// DeleteTag removes a tag ref from refs/tags/.
func (r *Repo) DeleteTag(name string) error {
	return r.withLock("delete tag", func() error {
		name = strings.TrimSpace(name)
		if err := validateRefName(name); err != nil {
			return fmt.Errorf("delete tag: %w", err)
		}
		if _, err := r.deleteRef(tagsPrefix + name); err != nil {
			if errors.Is(err, ErrRefNotFound) || os.IsNotExist(err) {
				return fmt.Errorf("delete tag %q: %w", name, ErrRefNotFound)
			}
			return fmt.Errorf("delete tag: %w", err)
		}
		return nil
	})
}

// ResolveTag resolves a tag name under refs/tags/.
func (r *Repo) ResolveTag(name string) (object.Hash, error) {
	name = strings.TrimSpace(name)
	if err := validateRefName(name); err != nil {
		return "", fmt.Errorf("resolve tag: %w", err)
	}
	return r.ResolveRef(tagsPrefix + name)
}

// ListTags lists tag names sorted alphabetically.
func (r *Repo) ListTags() ([]string, error) {
	refs, err := r.ListRefs("tags")
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}

	names := make([]string, 0, len(refs))
	for full := range refs {
		names = append(names, strings.TrimPrefix(full, "tags/"))
	}
	sort.Strings(names)
	return names, nil
}

// ListTagsWithHashes returns tag name -> target hash.
func (r *Repo) ListTagsWithHashes() (map[string]object.Hash, error) {
	refs, err := r.ListRefs("tags")
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}

	out := make(map[string]object.Hash, len(refs))
	for full, hash := range refs {
		out[strings.TrimPrefix(full, "tags/")] = hash
	}
	return out, nil
}
