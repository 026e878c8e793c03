package repo

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/odvcencio/twig/pkg/object"
)

const maxIndexLine = 1 << 20

// StagingEntry records one staging event: the blob id of a file's content
// at the time it was staged.
type StagingEntry struct {
	Hash object.Hash
	Path string
}

func (e StagingEntry) line() string {
	return string(e.Hash) + " " + e.Path + "\n"
}

// Index is the staging index: an ordered, append-only log of staging events.
// A path may appear several times; the last entry for a path is its current
// staged content.
type Index struct {
	entries []StagingEntry
	latest  map[string]int
	order   []string
}

func newIndex() *Index {
	return &Index{latest: make(map[string]int)}
}

func (ix *Index) add(e StagingEntry) {
	if _, seen := ix.latest[e.Path]; !seen {
		ix.order = append(ix.order, e.Path)
	}
	ix.latest[e.Path] = len(ix.entries)
	ix.entries = append(ix.entries, e)
}

// Entries returns every staging event in file order.
func (ix *Index) Entries() []StagingEntry {
	out := make([]StagingEntry, len(ix.entries))
	copy(out, ix.entries)
	return out
}

// Len reports the number of staging events.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// Latest returns the most recently staged blob id for path.
func (ix *Index) Latest(path string) (object.Hash, bool) {
	i, ok := ix.latest[path]
	if !ok {
		return "", false
	}
	return ix.entries[i].Hash, true
}

// Paths returns the distinct staged paths in order of first appearance.
func (ix *Index) Paths() []string {
	out := make([]string, len(ix.order))
	copy(out, ix.order)
	return out
}

// Reduce returns one entry per path carrying its latest blob id, ordered by
// the first appearance of each path.
func (ix *Index) Reduce() []StagingEntry {
	out := make([]StagingEntry, 0, len(ix.order))
	for _, p := range ix.order {
		out = append(out, ix.entries[ix.latest[p]])
	}
	return out
}

// indexPath returns the filesystem path to the staging index file.
func (r *Repo) indexPath() string {
	return filepath.Join(r.Dir, "index")
}

// ReadIndex loads .twig/index. A missing index file is an empty index.
// Malformed lines are dropped.
func (r *Repo) ReadIndex() (*Index, error) {
	data, err := os.ReadFile(r.indexPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return newIndex(), nil
		}
		return nil, fmt.Errorf("read index: %w", err)
	}
	ix, err := parseIndex(bytes.NewReader(data), r.Logger)
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	return ix, nil
}

func parseIndex(rd io.Reader, logger *slog.Logger) (*Index, error) {
	ix := newIndex()
	scanner := bufio.NewScanner(rd)
	scanner.Buffer(make([]byte, 0, 4096), maxIndexLine)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}
		hashField, path, ok := strings.Cut(line, " ")
		if !ok || path == "" {
			logger.Debug("dropping index line", "line", lineNo, "reason", "missing path")
			continue
		}
		h, err := object.ParseHash(hashField)
		if err != nil {
			logger.Debug("dropping index line", "line", lineNo, "reason", err)
			continue
		}
		ix.add(StagingEntry{Hash: h, Path: path})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return ix, nil
}

// AppendIndex appends a single staging event to .twig/index.
func (r *Repo) AppendIndex(e StagingEntry) error {
	return r.withLock("append index", func() error {
		return r.appendIndex(e)
	})
}

func (r *Repo) appendIndex(e StagingEntry) error {
	if err := object.ValidateHash(string(e.Hash)); err != nil {
		return fmt.Errorf("append index: %w", err)
	}
	if err := validateIndexPath(e.Path); err != nil {
		return fmt.Errorf("append index: %w", err)
	}

	f, err := os.OpenFile(r.indexPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("append index: open: %w", err)
	}
	if _, err := f.WriteString(e.line()); err != nil {
		f.Close()
		return fmt.Errorf("append index: write: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("append index: close: %w", err)
	}
	r.Logger.Debug("staged", "path", e.Path, "blob", e.Hash)
	return nil
}

func validateIndexPath(p string) error {
	switch {
	case p == "":
		return errors.New("empty path")
	case strings.ContainsAny(p, "\n\r"):
		return fmt.Errorf("path %q contains a line break", p)
	}
	return nil
}

// StageOutcome classifies what staging did for one path.
type StageOutcome int

const (
	// StageAdded means the path was staged for the first time.
	StageAdded StageOutcome = iota
	// StageUpdated means new content was staged for an already staged path.
	StageUpdated
	// StageUnchanged means the content matched the latest staged blob and
	// nothing was appended.
	StageUnchanged
)

func (o StageOutcome) String() string {
	switch o {
	case StageAdded:
		return "added"
	case StageUpdated:
		return "updated"
	case StageUnchanged:
		return "unchanged"
	default:
		return fmt.Sprintf("StageOutcome(%d)", int(o))
	}
}

// StageResult reports the staging outcome for one file.
type StageResult struct {
	Path    string
	Hash    object.Hash
	Outcome StageOutcome
}

// Stage stages the given paths. Each path is resolved relative to the repo
// root; directories are walked recursively, skipping ignored entries. For
// each file:
//  1. The raw content is written as a blob to the object store.
//  2. The blob id is compared with the latest staged id for the path.
//  3. If it differs, a new entry is appended to the index.
//
// Results are returned in staging order. On error, the results staged so far
// are returned alongside it.
func (r *Repo) Stage(paths ...string) ([]StageResult, error) {
	var results []StageResult
	err := r.withLock("stage", func() error {
		ix, err := r.ReadIndex()
		if err != nil {
			return fmt.Errorf("stage: %w", err)
		}
		ignore := NewIgnoreChecker(r.RootDir, r.Logger)

		for _, p := range paths {
			relPath, err := r.repoRelPath(p)
			if err != nil {
				return fmt.Errorf("stage: resolve path %q: %w", p, err)
			}
			info, err := os.Stat(filepath.Join(r.RootDir, filepath.FromSlash(relPath)))
			if err != nil {
				return fmt.Errorf("stage: %w", err)
			}

			if !info.IsDir() {
				res, err := r.stageFile(ix, relPath)
				if err != nil {
					return err
				}
				results = append(results, res)
				continue
			}

			files, err := r.walkFiles(relPath, ignore)
			if err != nil {
				return fmt.Errorf("stage: %w", err)
			}
			for _, f := range files {
				res, err := r.stageFile(ix, f)
				if err != nil {
					return err
				}
				results = append(results, res)
			}
		}
		return nil
	})
	return results, err
}

func (r *Repo) stageFile(ix *Index, relPath string) (StageResult, error) {
	if err := validateIndexPath(relPath); err != nil {
		return StageResult{}, fmt.Errorf("stage: %w", err)
	}
	content, err := os.ReadFile(filepath.Join(r.RootDir, filepath.FromSlash(relPath)))
	if err != nil {
		return StageResult{}, fmt.Errorf("stage: read %q: %w", relPath, err)
	}

	blobHash, err := r.Store.WriteBlob(&object.Blob{Data: content})
	if err != nil {
		return StageResult{}, fmt.Errorf("stage: write blob %q: %w", relPath, err)
	}

	res := StageResult{Path: relPath, Hash: blobHash, Outcome: StageAdded}
	if prev, ok := ix.Latest(relPath); ok {
		if prev == blobHash {
			res.Outcome = StageUnchanged
			return res, nil
		}
		res.Outcome = StageUpdated
	}

	entry := StagingEntry{Hash: blobHash, Path: relPath}
	if err := r.appendIndex(entry); err != nil {
		return StageResult{}, fmt.Errorf("stage %q did not complete: %w", relPath, err)
	}
	ix.add(entry)
	return res, nil
}

// walkFiles lists the regular files under relDir, in lexical order, that are
// not ignored.
func (r *Repo) walkFiles(relDir string, ignore *IgnoreChecker) ([]string, error) {
	var files []string
	root := filepath.Join(r.RootDir, filepath.FromSlash(relDir))
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(r.RootDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}
		if ignore.IsIgnored(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			files = append(files, rel)
		}
		return nil
	})
	return files, err
}

// repoRelPath converts a path (absolute, or relative to CWD) into a path
// relative to the repository root. A relative path that does not resolve
// inside the repo through the CWD is treated as already repo-relative.
// Paths that escape the root or point into .twig/ are rejected.
func (r *Repo) repoRelPath(p string) (string, error) {
	var rel string
	if filepath.IsAbs(p) {
		var err error
		rel, err = filepath.Rel(r.RootDir, p)
		if err != nil {
			return "", fmt.Errorf("cannot make %q relative to %q: %w", p, r.RootDir, err)
		}
	} else {
		rel = filepath.Clean(p)
		if cwd, err := os.Getwd(); err == nil {
			if fromCwd, err := filepath.Rel(r.RootDir, filepath.Join(cwd, p)); err == nil && !escapesRoot(fromCwd) {
				rel = fromCwd
			}
		}
	}

	rel = filepath.ToSlash(filepath.Clean(rel))
	if escapesRoot(rel) {
		return "", fmt.Errorf("%q is outside repository %q", p, r.RootDir)
	}
	if rel == DirName || strings.HasPrefix(rel, DirName+"/") {
		return "", fmt.Errorf("%q is inside the repository metadata directory", p)
	}
	return rel, nil
}

func escapesRoot(rel string) bool {
	rel = filepath.ToSlash(rel)
	return rel == ".." || strings.HasPrefix(rel, "../")
}
