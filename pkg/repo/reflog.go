package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/odvcencio/twig/pkg/object"
)

var zeroHash = object.Hash(strings.Repeat("0", object.HashHexLen))

// ReflogEntry records one movement of a ref. On disk each entry is one line:
//
//	<old> <new> <unix-seconds> <reason>
type ReflogEntry struct {
	Ref       string
	OldHash   object.Hash
	NewHash   object.Hash
	Timestamp int64
	Reason    string
}

func (e ReflogEntry) encode() string {
	oldHash, newHash := e.OldHash, e.NewHash
	if oldHash == "" {
		oldHash = zeroHash
	}
	if newHash == "" {
		newHash = zeroHash
	}
	reason := strings.ReplaceAll(strings.TrimSpace(e.Reason), "\n", " ")
	if reason == "" {
		reason = "update"
	}
	return fmt.Sprintf("%s %s %d %s\n", oldHash, newHash, e.Timestamp, reason)
}

// decodeReflogLine parses one reflog line. Lines with a bad id or
// timestamp are rejected.
func decodeReflogLine(ref, line string) (ReflogEntry, bool) {
	fields := strings.SplitN(strings.TrimSpace(line), " ", 4)
	if len(fields) != 4 {
		return ReflogEntry{}, false
	}
	if object.ValidateHash(fields[0]) != nil || object.ValidateHash(fields[1]) != nil {
		return ReflogEntry{}, false
	}
	ts, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return ReflogEntry{}, false
	}
	return ReflogEntry{
		Ref:       ref,
		OldHash:   object.Hash(fields[0]),
		NewHash:   object.Hash(fields[1]),
		Timestamp: ts,
		Reason:    fields[3],
	}, true
}

func (r *Repo) reflogPath(ref string) string {
	return filepath.Join(r.Dir, "logs", filepath.FromSlash(ref))
}

func (r *Repo) appendReflog(ref string, oldHash, newHash object.Hash, reason string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}
	entry := ReflogEntry{Ref: ref, OldHash: oldHash, NewHash: newHash, Timestamp: r.Now().Unix(), Reason: reason}

	path := r.reflogPath(ref)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("reflog %s: %w", ref, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("reflog %s: %w", ref, err)
	}
	_, werr := f.WriteString(entry.encode())
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return fmt.Errorf("reflog %s: %w", ref, werr)
	}
	return nil
}

// ReadReflog returns up to limit entries for ref, newest first. An empty ref
// selects the current branch (or HEAD when detached); "HEAD" selects the log
// of HEAD movements made by checkout. Unparseable lines are skipped.
func (r *Repo) ReadReflog(ref string, limit int) ([]ReflogEntry, error) {
	refName, err := r.resolveReflogRefName(ref)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(r.reflogPath(refName))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read reflog: %w", err)
	}

	var entries []ReflogEntry
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		e, ok := decodeReflogLine(refName, line)
		if !ok {
			r.Logger.Debug("skip malformed reflog line", "ref", refName, "line", line)
			continue
		}
		entries = append(entries, e)
	}

	slices.Reverse(entries)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (r *Repo) resolveReflogRefName(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		head, err := r.Head()
		if err != nil {
			return "", fmt.Errorf("read reflog: %w", err)
		}
		if head.Detached() {
			return "HEAD", nil
		}
		return headsPrefix + head.Branch, nil
	case ref == "HEAD", strings.HasPrefix(ref, "refs/"):
		return ref, nil
	}
	if err := validateRefName(ref); err != nil {
		return "", fmt.Errorf("read reflog: %w", err)
	}
	return headsPrefix + ref, nil
}
