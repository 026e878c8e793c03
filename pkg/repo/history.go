package repo

import (
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/odvcencio/twig/pkg/object"
)

// CommitWalker iterates first-parent history lazily, newest first.
type CommitWalker struct {
	r       *Repo
	next    object.Hash
	started bool
	err     error
}

// History returns a walker starting at the given commit.
func (r *Repo) History(start object.Hash) *CommitWalker {
	return &CommitWalker{r: r, next: start}
}

// Next returns the next commit. It returns io.EOF once the root commit has
// been returned. A missing start commit is reported as
// object.ErrObjectNotFound; a parent that cannot be read is reported as
// ErrCorruptHistory. After an error, Next keeps returning it.
func (w *CommitWalker) Next() (object.Hash, *object.CommitObj, error) {
	if w.err != nil {
		return "", nil, w.err
	}
	if w.next == "" {
		w.err = io.EOF
		return "", nil, w.err
	}

	h := w.next
	c, err := w.r.Store.ReadCommit(h)
	if err != nil {
		if w.started {
			w.err = fmt.Errorf("history: parent %s: %w: %w", h, ErrCorruptHistory, err)
		} else {
			w.err = fmt.Errorf("history: start %s: %w", h, err)
		}
		return "", nil, w.err
	}
	w.started = true
	w.next = c.Parent
	return h, c, nil
}

// All adapts the walker to a range-over-func sequence. Iteration stops after
// the root commit or at the first error; check Err afterwards.
func (w *CommitWalker) All() iter.Seq2[object.Hash, *object.CommitObj] {
	return func(yield func(object.Hash, *object.CommitObj) bool) {
		for {
			h, c, err := w.Next()
			if err != nil {
				return
			}
			if !yield(h, c) {
				return
			}
		}
	}
}

// Err returns the error that stopped the walker, or nil if it reached the
// root commit or has not stopped yet.
func (w *CommitWalker) Err() error {
	if errors.Is(w.err, io.EOF) {
		return nil
	}
	return w.err
}

// LogEntry is one commit in Log output.
type LogEntry struct {
	Hash   object.Hash
	Commit *object.CommitObj
}

// Log walks the commit history starting from the given hash, following
// first-parent links, returning up to limit commits in reverse-chronological
// order (newest first). A limit <= 0 means no limit.
func (r *Repo) Log(start object.Hash, limit int) ([]LogEntry, error) {
	var entries []LogEntry
	w := r.History(start)
	for limit <= 0 || len(entries) < limit {
		h, c, err := w.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return entries, fmt.Errorf("log: %w", err)
		}
		entries = append(entries, LogEntry{Hash: h, Commit: c})
	}
	return entries, nil
}
