package repo

import "errors"

var (
	ErrNotInitialized     = errors.New("not a twig repository (or any parent up to /)")
	ErrAlreadyInitialized = errors.New("repository already initialized")
	ErrRefNotFound        = errors.New("ref not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrNoCommitsYet       = errors.New("no commits yet")
	ErrEmptyStagingArea   = errors.New("nothing staged")
	ErrCorruptHistory     = errors.New("corrupt history")
	ErrDetachedHead       = errors.New("HEAD is detached, no branch is active")
	ErrInvalidRefName     = errors.New("invalid ref name")
	ErrLocked             = errors.New("repository is locked by another process")
	ErrRefCASMismatch     = errors.New("ref compare-and-swap mismatch")
	ErrUnknownConfigKey   = errors.New("unknown config key")
	ErrCurrentBranch      = errors.New("cannot delete the checked-out branch")
	ErrInvalidIdentity    = errors.New("invalid identity")

	ErrRefUpdatedButReflogAppendFailed = errors.New("ref updated but reflog append failed")
)
