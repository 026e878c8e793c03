package object

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Reachability is the result of walking the object graph from a set of roots.
type Reachability struct {
	// Objects maps every readable reachable object to its type.
	Objects map[Hash]ObjectType
	// Missing maps an absent object to the object that referenced it. Roots
	// that are absent map to the empty hash.
	Missing map[Hash]Hash
	// Corrupt maps unreadable objects to the read or parse error.
	Corrupt map[Hash]error
}

// Reachable walks every object reachable from roots by following commit ->
// tree, commit -> parent and tree -> blob links. Missing and corrupt objects
// are recorded rather than aborting the walk.
func (s *Store) Reachable(roots []Hash) *Reachability {
	out := &Reachability{
		Objects: make(map[Hash]ObjectType),
		Missing: make(map[Hash]Hash),
		Corrupt: make(map[Hash]error),
	}

	type item struct {
		hash Hash
		from Hash
	}
	roots = uniqueNormalizedHashes(roots)
	stack := make([]item, 0, len(roots))
	for _, r := range roots {
		stack = append(stack, item{hash: r})
	}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		h := it.hash
		if _, ok := out.Objects[h]; ok {
			continue
		}
		if _, ok := out.Missing[h]; ok {
			continue
		}
		if _, ok := out.Corrupt[h]; ok {
			continue
		}

		objType, data, err := s.Read(h)
		if err != nil {
			if errors.Is(err, ErrObjectNotFound) {
				out.Missing[h] = it.from
			} else {
				out.Corrupt[h] = err
			}
			continue
		}
		refs, err := referencedHashes(objType, data)
		if err != nil {
			out.Corrupt[h] = fmt.Errorf("parse %s (%s): %w", h, objType, err)
			continue
		}
		out.Objects[h] = objType
		for _, ref := range refs {
			stack = append(stack, item{hash: ref, from: h})
		}
	}
	return out
}

func referencedHashes(objType ObjectType, data []byte) ([]Hash, error) {
	switch objType {
	case TypeBlob:
		return nil, nil
	case TypeCommit:
		commit, err := UnmarshalCommit(data)
		if err != nil {
			return nil, err
		}
		refs := []Hash{commit.TreeHash}
		if commit.HasParent() {
			refs = append(refs, commit.Parent)
		}
		return refs, nil
	case TypeTree:
		tree, err := UnmarshalTree(data)
		if err != nil {
			return nil, err
		}
		refs := make([]Hash, 0, len(tree.Entries))
		for _, e := range tree.Entries {
			refs = append(refs, e.BlobHash)
		}
		return refs, nil
	default:
		return nil, fmt.Errorf("unsupported object type %q", objType)
	}
}

func uniqueNormalizedHashes(in []Hash) []Hash {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[Hash]struct{}, len(in))
	out := make([]Hash, 0, len(in))
	for _, h := range in {
		h = Hash(strings.TrimSpace(string(h)))
		if h == "" {
			continue
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
