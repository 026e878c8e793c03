package repo

import (
	"fmt"
	"os"
	"path/filepath"
)

// Init creates a new twig repository at path. It creates the .twig/
// directory structure: HEAD, index, config, objects/, refs/heads/,
// refs/tags/ and logs/. If a .twig/ directory already exists the
// repository is left untouched and ErrAlreadyInitialized is returned.
func Init(path string, opts ...Option) (*Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("init: abs path: %w", err)
	}
	dir := filepath.Join(abs, DirName)

	if _, err := os.Stat(dir); err == nil {
		return nil, fmt.Errorf("init: %s: %w", dir, ErrAlreadyInitialized)
	}

	// Create directory structure.
	dirs := []string{
		filepath.Join(dir, "objects"),
		filepath.Join(dir, "refs", "heads"),
		filepath.Join(dir, "refs", "tags"),
		filepath.Join(dir, "logs", "refs", "heads"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("init: mkdir %s: %w", d, err)
		}
	}

	files := map[string]string{
		"HEAD":   "ref: refs/heads/" + DefaultBranch + "\n",
		"index":  "",
		"config": "",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			return nil, fmt.Errorf("init: write %s: %w", name, err)
		}
	}

	r := newRepo(abs, dir, opts...)
	r.Logger.Debug("initialized repository", "dir", dir)
	return r, nil
}

// Open searches upward from path for a .twig/ directory and opens the
// repository. Returns ErrNotInitialized if no .twig/ directory is found.
func Open(path string, opts ...Option) (*Repo, error) {
	// Resolve to absolute path for consistent traversal.
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("open: abs path: %w", err)
	}

	cur := abs
	for {
		dir := filepath.Join(cur, DirName)
		info, err := os.Stat(dir)
		if err == nil && info.IsDir() {
			return newRepo(cur, dir, opts...), nil
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			// Reached filesystem root without finding .twig/.
			return nil, fmt.Errorf("open %s: %w", abs, ErrNotInitialized)
		}
		cur = parent
	}
}
