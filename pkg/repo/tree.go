package repo

import (
	"fmt"

	"github.com/odvcencio/twig/pkg/object"
)

// BuildTree snapshots the staging index into a tree object and returns its
// id. The tree holds one entry per staged path, carrying the path's latest
// blob id, in order of each path's first appearance in the index. An
// unchanged index always produces the same tree id.
func (r *Repo) BuildTree() (object.Hash, error) {
	ix, err := r.ReadIndex()
	if err != nil {
		return "", fmt.Errorf("build tree: %w", err)
	}
	return r.buildTree(ix)
}

func (r *Repo) buildTree(ix *Index) (object.Hash, error) {
	if ix.Len() == 0 {
		return "", fmt.Errorf("build tree: %w", ErrEmptyStagingArea)
	}

	reduced := ix.Reduce()
	entries := make([]object.TreeEntry, 0, len(reduced))
	for _, e := range reduced {
		entries = append(entries, object.TreeEntry{
			Mode:     object.TreeModeFile,
			BlobHash: e.Hash,
			Path:     e.Path,
		})
	}

	h, err := r.Store.WriteTree(&object.TreeObj{Entries: entries})
	if err != nil {
		return "", fmt.Errorf("build tree: write tree: %w", err)
	}
	r.Logger.Debug("built tree", "tree", h, "entries", len(entries))
	return h, nil
}

// TreeFiles reads the tree at h and returns its entries keyed by path.
func (r *Repo) TreeFiles(h object.Hash) (map[string]object.TreeEntry, error) {
	tree, err := r.Store.ReadTree(h)
	if err != nil {
		return nil, fmt.Errorf("tree files %s: %w", h, err)
	}
	files := make(map[string]object.TreeEntry, len(tree.Entries))
	for _, e := range tree.Entries {
		files[e.Path] = e
	}
	return files, nil
}
