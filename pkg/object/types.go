package object

import (
	"fmt"
	"time"
)

// Hash is a 40-character lowercase hex-encoded SHA-1 digest.
type Hash string

// HashHexLen is the length of a rendered Hash.
const HashHexLen = 40

// Short returns the first n characters of h, or h itself when shorter.
func (h Hash) Short(n int) string {
	if len(h) <= n {
		return string(h)
	}
	return string(h[:n])
}

// ObjectType identifies the kind of object stored.
type ObjectType string

const (
	TypeBlob   ObjectType = "blob"
	TypeTree   ObjectType = "tree"
	TypeCommit ObjectType = "commit"
)

// Valid reports whether t is one of the known object types.
func (t ObjectType) Valid() bool {
	switch t {
	case TypeBlob, TypeTree, TypeCommit:
		return true
	}
	return false
}

const (
	// Tree mode constants compatible with Git's canonical mode strings.
	TreeModeFile       = "100644"
	TreeModeExecutable = "100755"
)

// Blob holds raw file data.
type Blob struct {
	Data []byte
}

// TreeEntry is one entry in a tree object. Path is an opaque,
// slash-separated repository path; trees are never nested.
type TreeEntry struct {
	Mode     string
	BlobHash Hash
	Path     string
}

// TreeObj holds the flat list of staged files for one commit, in index order.
type TreeObj struct {
	Entries []TreeEntry
}

// Signature identifies who authored or committed a change, and when.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

// String renders the signature the way it appears in a commit header:
//
//	Name <email> 1700000000 +0000
func (s Signature) String() string {
	return fmt.Sprintf("%s <%s> %d %s", s.Name, s.Email, s.When.Unix(), formatTimezoneOffset(s.When))
}

// CommitObj represents a commit pointing to a tree with metadata. A commit
// has at most one parent; the root commit has none.
type CommitObj struct {
	TreeHash  Hash
	Parent    Hash
	Author    Signature
	Committer Signature
	Signature string
	Message   string
}

// HasParent reports whether the commit links to a parent commit.
func (c *CommitObj) HasParent() bool {
	return c.Parent != ""
}

func formatTimezoneOffset(t time.Time) string {
	_, offset := t.Zone()
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	hours := offset / 3600
	minutes := (offset % 3600) / 60
	return fmt.Sprintf("%s%02d%02d", sign, hours, minutes)
}
