package repo

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/denormal/go-gitignore"
)

// IgnoreFileName is the per-repository ignore file read from the working
// directory root. It uses gitignore syntax.
const IgnoreFileName = ".twigignore"

// alwaysIgnored names path segments that are never walked or staged.
var alwaysIgnored = map[string]bool{
	DirName: true,
	".git":  true,
}

// IgnoreChecker determines if a path should be ignored.
type IgnoreChecker struct {
	matcher gitignore.GitIgnore
}

// NewIgnoreChecker creates an IgnoreChecker for the given repository root.
// It always ignores .twig/ and .git/. If a .twigignore file exists in
// repoRoot, its patterns are parsed and applied. Malformed patterns are
// skipped and logged at debug level.
func NewIgnoreChecker(repoRoot string, logger *slog.Logger) *IgnoreChecker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	content, err := os.ReadFile(filepath.Join(repoRoot, IgnoreFileName))
	if err != nil && !os.IsNotExist(err) {
		logger.Debug("read ignore file", "path", IgnoreFileName, "error", err)
	}

	matcher := gitignore.New(
		bytes.NewReader(content),
		repoRoot,
		func(e gitignore.Error) bool {
			logger.Debug("skipping ignore pattern", "position", e.Position().String(), "error", e.Underlying())
			return true
		},
	)
	return &IgnoreChecker{matcher: matcher}
}

// IsIgnored checks whether a relative path should be ignored. The path must
// use forward slashes and be relative to the repository root. A path is
// ignored when it or any of its parent directories matches.
func (ic *IgnoreChecker) IsIgnored(path string, isDir bool) bool {
	path = strings.Trim(filepath.ToSlash(path), "/")
	if path == "" || path == "." {
		return false
	}

	segments := strings.Split(path, "/")
	for _, seg := range segments {
		if alwaysIgnored[seg] {
			return true
		}
	}
	if ic == nil || ic.matcher == nil {
		return false
	}

	for i := 1; i < len(segments); i++ {
		if ic.ignored(filepath.Join(segments[:i]...), true) {
			return true
		}
	}
	return ic.ignored(filepath.FromSlash(path), isDir)
}

func (ic *IgnoreChecker) ignored(rel string, isDir bool) bool {
	m := ic.matcher.Relative(rel, isDir)
	if m == nil {
		return false
	}
	return m.Ignore()
}
