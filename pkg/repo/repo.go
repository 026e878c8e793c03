package repo

import (
	"log/slog"
	"time"

	"github.com/odvcencio/twig/pkg/object"
)

const (
	// DirName is the repository marker directory created by Init.
	DirName = ".twig"
	// DefaultBranch is the branch HEAD points at in a new repository.
	DefaultBranch = "main"
)

// Repo represents an opened twig repository. Every operation goes through a
// Repo value; there is no package-level repository state.
type Repo struct {
	RootDir string        // working directory root
	Dir     string        // .twig/ directory
	Store   *object.Store // content-addressed object store

	// Logger receives debug records for object, index and ref writes.
	Logger *slog.Logger
	// Now is the clock used for commit and reflog timestamps.
	Now func() time.Time
	// LockTimeout bounds how long mutating operations wait for the
	// repository lock.
	LockTimeout time.Duration
}

// Option configures a Repo returned by Init or Open.
type Option func(*Repo)

// WithLogger sets the logger used by the repository.
func WithLogger(l *slog.Logger) Option {
	return func(r *Repo) {
		if l != nil {
			r.Logger = l
		}
	}
}

// WithClock overrides the wall clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Repo) {
		if now != nil {
			r.Now = now
		}
	}
}

// WithLockTimeout overrides how long to wait for the repository lock.
func WithLockTimeout(d time.Duration) Option {
	return func(r *Repo) {
		if d > 0 {
			r.LockTimeout = d
		}
	}
}

func newRepo(rootDir, dir string, opts ...Option) *Repo {
	r := &Repo{
		RootDir:     rootDir,
		Dir:         dir,
		Store:       object.NewStore(dir),
		Logger:      slog.New(slog.DiscardHandler),
		Now:         time.Now,
		LockTimeout: repoLockWaitLimit,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}
