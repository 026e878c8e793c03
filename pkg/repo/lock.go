package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/multierr"
)

const (
	repoLockWaitLimit  = 2 * time.Second
	repoLockRetryDelay = 10 * time.Millisecond
	repoLockFile       = "twig.lock"
)

// withLock runs fn while holding an exclusive advisory lock on
// .twig/twig.lock. Mutating operations (stage, commit, branch, tag,
// checkout, config writes) go through withLock so that two processes
// cannot interleave index appends or ref moves. withLock is not
// reentrant: fn must not call another locking operation.
func (r *Repo) withLock(op string, fn func() error) (retErr error) {
	lockPath := filepath.Join(r.Dir, repoLockFile)
	fl := flock.New(lockPath)

	ctx, cancel := context.WithTimeout(context.Background(), r.LockTimeout)
	defer cancel()

	locked, err := fl.TryLockContext(ctx, repoLockRetryDelay)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%s: %w (waited %s)", op, ErrLocked, r.LockTimeout)
		}
		return fmt.Errorf("%s: lock %q: %w", op, lockPath, err)
	}
	if !locked {
		return fmt.Errorf("%s: %w", op, ErrLocked)
	}
	defer func() {
		retErr = multierr.Append(retErr, fl.Unlock())
	}()

	return fn()
}
