package repo

import (
	"fmt"

	"github.com/odvcencio/twig/pkg/object"
)

// CheckoutResult describes where HEAD points after a checkout.
type CheckoutResult struct {
	Branch   string
	Hash     object.Hash
	Detached bool
}

// Checkout moves HEAD to target. The target can be:
//   - an existing branch name: HEAD becomes symbolic ("ref: refs/heads/<name>")
//   - anything else Resolve accepts that names a commit (full or abbreviated
//     id, tag, HEAD): HEAD is detached and holds the literal commit id
//
// Checkout only moves HEAD. The staging index and the working directory are
// left untouched. Unknown targets and non-commit objects yield
// ErrRefNotFound.
func (r *Repo) Checkout(target string) (*CheckoutResult, error) {
	var res *CheckoutResult
	err := r.withLock("checkout", func() error {
		prev, err := r.Head()
		if err != nil {
			return fmt.Errorf("checkout: %w", err)
		}

		if validateRefName(target) == nil {
			tip, err := r.readRef(headsPrefix + target)
			if err != nil {
				return fmt.Errorf("checkout: %w", err)
			}
			if tip != "" || (!prev.Detached() && prev.Branch == target) {
				if err := r.writeHead(symrefLabel + headsPrefix + target); err != nil {
					return fmt.Errorf("checkout: %w", err)
				}
				res = &CheckoutResult{Branch: target, Hash: tip}
				r.logHeadMove(prev, target, tip)
				return nil
			}
		}

		h, err := r.resolveCommit(target)
		if err != nil {
			return fmt.Errorf("checkout: %w", err)
		}
		if err := r.writeHead(string(h)); err != nil {
			return fmt.Errorf("checkout: %w", err)
		}
		res = &CheckoutResult{Hash: h, Detached: true}
		r.logHeadMove(prev, string(h), h)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *Repo) logHeadMove(prev HeadState, to string, newHash object.Hash) {
	from := prev.Branch
	if prev.Detached() {
		from = string(prev.Hash)
	}
	reason := fmt.Sprintf("checkout: moving from %s to %s", from, to)
	if err := r.appendReflog("HEAD", prev.Hash, newHash, reason); err != nil {
		r.Logger.Warn("append HEAD reflog", "error", err)
	}
	r.Logger.Debug("checked out", "from", from, "to", to, "commit", newHash)
}
