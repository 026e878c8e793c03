package repo

import (
	"fmt"
	"sort"

	"github.com/odvcencio/twig/pkg/object"
)

// VerifyProblem is one integrity failure found by Verify.
type VerifyProblem struct {
	Ref  string      // ref whose history reaches the object, or "HEAD"
	Hash object.Hash // missing or unreadable object; empty for a malformed ref file
	Err  error
}

func (p VerifyProblem) String() string {
	if p.Hash == "" {
		return fmt.Sprintf("%s: %v", p.Ref, p.Err)
	}
	return fmt.Sprintf("%s: %s: %v", p.Ref, p.Hash, p.Err)
}

// Verify walks every branch, tag and a detached HEAD, following parents,
// trees and blobs, and reports every missing or corrupt object. Each object
// is reported once, under the first ref (in sorted order) that reaches it.
// Ref files that do not hold an object id are reported first, with an
// empty Hash.
func (r *Repo) Verify() ([]VerifyProblem, error) {
	var problems []VerifyProblem
	refs, err := r.walkRefs("", func(name string, err error) {
		problems = append(problems, VerifyProblem{Ref: "refs/" + name, Err: err})
	})
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}
	sort.Slice(problems, func(i, j int) bool { return problems[i].Ref < problems[j].Ref })

	names := make([]string, 0, len(refs)+1)
	roots := make(map[string]object.Hash, len(refs)+1)
	for name, h := range refs {
		full := "refs/" + name
		names = append(names, full)
		roots[full] = h
	}
	sort.Strings(names)

	head, err := r.Head()
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}
	if head.Detached() {
		names = append(names, "HEAD")
		roots["HEAD"] = head.Hash
	}

	reported := make(map[object.Hash]bool)
	report := func(ref string, h object.Hash, err error) {
		if reported[h] {
			return
		}
		reported[h] = true
		problems = append(problems, VerifyProblem{Ref: ref, Hash: h, Err: err})
	}

	for _, name := range names {
		root := roots[name]
		reach := r.Store.Reachable([]object.Hash{root})

		if t, ok := reach.Objects[root]; ok && t != object.TypeCommit {
			report(name, root, fmt.Errorf("ref target is a %s, not a commit", t))
		}
		for _, h := range sortedHashes(reach.Missing) {
			from := reach.Missing[h]
			if from == "" {
				report(name, h, fmt.Errorf("ref target: %w", object.ErrObjectNotFound))
				continue
			}
			report(name, h, fmt.Errorf("referenced by %s: %w", from, object.ErrObjectNotFound))
		}
		for _, h := range sortedHashes(reach.Corrupt) {
			report(name, h, reach.Corrupt[h])
		}
		r.Logger.Debug("verified ref", "ref", name, "objects", len(reach.Objects))
	}
	return problems, nil
}

func sortedHashes[V any](m map[object.Hash]V) []object.Hash {
	out := make([]object.Hash, 0, len(m))
	for h := range m {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
