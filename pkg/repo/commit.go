package repo

import (
	"fmt"

	"github.com/odvcencio/twig/pkg/object"
)

// CommitSigner signs canonical commit payload bytes and returns an encoded
// signature string to be persisted in CommitObj.Signature.
type CommitSigner func(payload []byte) (string, error)

// Commit creates a new commit from the current staging index on the active
// branch. A zero author uses Identity().
//
//  1. Read the index; an empty index is ErrEmptyStagingArea
//  2. Require a symbolic HEAD; detached HEAD is ErrDetachedHead
//  3. Resolve the author; '<', '>' or a line break in it is ErrInvalidIdentity
//  4. Build the tree from the index
//  5. Create a CommitObj whose parent is the branch tip, if any
//  6. Write the commit to the store
//  7. Advance the branch from the old tip to the new commit
//
// The index is not cleared: the next commit snapshots it again, plus
// whatever is staged in between.
func (r *Repo) Commit(message string, author Identity) (object.Hash, error) {
	return r.CommitWithSigner(message, author, nil)
}

// CommitWithSigner creates a new commit and signs it when signer is provided.
func (r *Repo) CommitWithSigner(message string, author Identity, signer CommitSigner) (object.Hash, error) {
	var commitHash object.Hash
	err := r.withLock("commit", func() error {
		h, err := r.commitLocked(message, author, signer)
		commitHash = h
		return err
	})
	return commitHash, err
}

func (r *Repo) commitLocked(message string, author Identity, signer CommitSigner) (object.Hash, error) {
	ix, err := r.ReadIndex()
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	if ix.Len() == 0 {
		return "", fmt.Errorf("commit: %w", ErrEmptyStagingArea)
	}

	head, err := r.Head()
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	if head.Detached() {
		return "", fmt.Errorf("commit: %w", ErrDetachedHead)
	}

	if author.IsZero() {
		author, err = r.Identity()
		if err != nil {
			return "", fmt.Errorf("commit: %w", err)
		}
	}
	if err := author.Validate(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}

	treeHash, err := r.buildTree(ix)
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	sig := object.Signature{Name: author.Name, Email: author.Email, When: r.Now()}

	commitObj := &object.CommitObj{
		TreeHash:  treeHash,
		Parent:    head.Hash,
		Author:    sig,
		Committer: sig,
		Message:   message,
	}
	if signer != nil {
		payload := object.CommitSigningPayload(commitObj)
		signature, err := signer(payload)
		if err != nil {
			return "", fmt.Errorf("commit: sign commit: %w", err)
		}
		commitObj.Signature = signature
	}

	commitHash, err := r.Store.WriteCommit(commitObj)
	if err != nil {
		return "", fmt.Errorf("commit: write commit: %w", err)
	}

	reason := "commit: " + firstLine(message)
	if head.Hash == "" {
		reason = "commit (initial): " + firstLine(message)
	}
	if err := r.AdvanceBranch(head.Branch, commitHash, head.Hash, reason); err != nil {
		// A RefUpdateReflogError still moved the branch; report the commit.
		return commitHash, fmt.Errorf("commit: %w", err)
	}

	r.Logger.Debug("committed", "branch", head.Branch, "commit", commitHash, "parent", head.Hash)
	return commitHash, nil
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}
