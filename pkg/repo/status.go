package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/odvcencio/twig/pkg/object"
)

// FileStatus represents the state of a file in the working tree or index.
type FileStatus int

const (
	StatusClean     FileStatus = iota // file matches between compared areas
	StatusNew                         // staged, not in HEAD tree
	StatusModified                    // content differs between compared areas
	StatusDeleted                     // staged but missing from the working tree
	StatusUntracked                   // in working dir but never staged
)

func (s FileStatus) String() string {
	switch s {
	case StatusClean:
		return "clean"
	case StatusNew:
		return "new"
	case StatusModified:
		return "modified"
	case StatusDeleted:
		return "deleted"
	case StatusUntracked:
		return "untracked"
	default:
		return fmt.Sprintf("FileStatus(%d)", int(s))
	}
}

// StatusEntry records the status of a single file.
type StatusEntry struct {
	Path        string     // repo-relative path
	IndexStatus FileStatus // latest staged blob vs HEAD tree
	WorkStatus  FileStatus // working tree vs latest staged blob
}

// Staged reports whether the index holds content HEAD does not.
func (e StatusEntry) Staged() bool {
	return e.IndexStatus == StatusNew || e.IndexStatus == StatusModified
}

// Status computes the working tree status for the repository.
//
// Algorithm:
//  1. Read the staging index and the HEAD tree (empty before the first commit).
//  2. Walk the working directory, skipping .twig/ and ignored paths.
//  3. Compare working files against the latest staged blob of each path.
//  4. Compare latest staged blobs against the HEAD tree.
//  5. Return entries sorted by path; clean files are omitted.
func (r *Repo) Status() ([]StatusEntry, error) {
	ix, err := r.ReadIndex()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	headFiles, err := r.headTreeFiles()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}

	workFiles, err := r.walkFiles(".", NewIgnoreChecker(r.RootDir, r.Logger))
	if err != nil {
		return nil, fmt.Errorf("status: walk: %w", err)
	}
	onDisk := make(map[string]bool, len(workFiles))

	var entries []StatusEntry
	for _, p := range workFiles {
		onDisk[p] = true
		staged, ok := ix.Latest(p)
		if !ok {
			entries = append(entries, StatusEntry{Path: p, IndexStatus: StatusClean, WorkStatus: StatusUntracked})
			continue
		}
		work, err := r.hashWorkingFile(p)
		if err != nil {
			return nil, fmt.Errorf("status: %w", err)
		}
		e := StatusEntry{Path: p, IndexStatus: indexStatus(headFiles, p, staged), WorkStatus: StatusClean}
		if work != staged {
			e.WorkStatus = StatusModified
		}
		if e.IndexStatus != StatusClean || e.WorkStatus != StatusClean {
			entries = append(entries, e)
		}
	}

	for _, se := range ix.Reduce() {
		if onDisk[se.Path] {
			continue
		}
		entries = append(entries, StatusEntry{
			Path:        se.Path,
			IndexStatus: indexStatus(headFiles, se.Path, se.Hash),
			WorkStatus:  StatusDeleted,
		})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

// Diff returns the staged paths whose working copy differs from the latest
// staged content, sorted.
func (r *Repo) Diff() ([]string, error) {
	entries, err := r.Status()
	if err != nil {
		return nil, fmt.Errorf("diff: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.WorkStatus == StatusModified {
			paths = append(paths, e.Path)
		}
	}
	return paths, nil
}

func indexStatus(headFiles map[string]object.TreeEntry, path string, staged object.Hash) FileStatus {
	he, ok := headFiles[path]
	switch {
	case !ok:
		return StatusNew
	case he.BlobHash != staged:
		return StatusModified
	default:
		return StatusClean
	}
}

func (r *Repo) headTreeFiles() (map[string]object.TreeEntry, error) {
	head, err := r.Head()
	if err != nil {
		return nil, err
	}
	if head.Hash == "" {
		return map[string]object.TreeEntry{}, nil
	}
	c, err := r.Store.ReadCommit(head.Hash)
	if err != nil {
		return nil, fmt.Errorf("read HEAD commit: %w", err)
	}
	return r.TreeFiles(c.TreeHash)
}

// hashWorkingFile computes the blob id of a working file without storing it.
func (r *Repo) hashWorkingFile(relPath string) (object.Hash, error) {
	data, err := os.ReadFile(filepath.Join(r.RootDir, filepath.FromSlash(relPath)))
	if err != nil {
		return "", fmt.Errorf("read %q: %w", relPath, err)
	}
	return object.HashObject(object.TypeBlob, data), nil
}
