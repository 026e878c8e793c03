package object

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Blob
// ---------------------------------------------------------------------------

// MarshalBlob serializes a Blob to raw bytes (identity).
func MarshalBlob(b *Blob) []byte {
	out := make([]byte, len(b.Data))
	copy(out, b.Data)
	return out
}

// UnmarshalBlob deserializes raw bytes into a Blob.
func UnmarshalBlob(data []byte) (*Blob, error) {
	out := make([]byte, len(data))
	copy(out, data)
	return &Blob{Data: out}, nil
}

// ---------------------------------------------------------------------------
// TreeObj
// ---------------------------------------------------------------------------

// MarshalTree serializes a TreeObj. Entries keep their order; each entry is
// one line and lines are joined without a trailing newline:
//
//	<mode> blob <hash>\t<path>
func MarshalTree(tr *TreeObj) []byte {
	var buf bytes.Buffer
	for i, e := range tr.Entries {
		if i > 0 {
			buf.WriteByte('\n')
		}
		mode := e.Mode
		if strings.TrimSpace(mode) == "" {
			mode = TreeModeFile
		}
		fmt.Fprintf(&buf, "%s %s %s\t%s", mode, TypeBlob, e.BlobHash, e.Path)
	}
	return buf.Bytes()
}

// UnmarshalTree parses a TreeObj from its serialized form.
func UnmarshalTree(data []byte) (*TreeObj, error) {
	tr := &TreeObj{}
	if len(data) == 0 {
		return tr, nil
	}
	for _, line := range strings.Split(string(data), "\n") {
		meta, path, ok := strings.Cut(line, "\t")
		if !ok || path == "" {
			return nil, fmt.Errorf("unmarshal tree: malformed entry %q", line)
		}
		fields := strings.Split(meta, " ")
		if len(fields) != 3 || fields[1] != string(TypeBlob) {
			return nil, fmt.Errorf("unmarshal tree: malformed entry %q", line)
		}
		switch fields[0] {
		case TreeModeFile, TreeModeExecutable:
		default:
			return nil, fmt.Errorf("unmarshal tree: unknown mode %q", fields[0])
		}
		h, err := ParseHash(fields[2])
		if err != nil {
			return nil, fmt.Errorf("unmarshal tree: %w", err)
		}
		tr.Entries = append(tr.Entries, TreeEntry{Mode: fields[0], BlobHash: h, Path: path})
	}
	return tr, nil
}

// ---------------------------------------------------------------------------
// CommitObj
// ---------------------------------------------------------------------------

// MarshalCommit serializes a CommitObj:
//
//	tree H
//	parent H     (optional)
//	author A <e> T Z
//	committer C <e> T Z
//	signature S  (optional)
//
//	message
func MarshalCommit(c *CommitObj) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", string(c.TreeHash))
	if c.Parent != "" {
		fmt.Fprintf(&buf, "parent %s\n", string(c.Parent))
	}
	fmt.Fprintf(&buf, "author %s\n", c.Author)
	fmt.Fprintf(&buf, "committer %s\n", c.Committer)
	if strings.TrimSpace(c.Signature) != "" {
		fmt.Fprintf(&buf, "signature %s\n", c.Signature)
	}
	buf.WriteByte('\n')
	buf.WriteString(c.Message)
	return buf.Bytes()
}

// UnmarshalCommit parses a CommitObj from its serialized form.
func UnmarshalCommit(data []byte) (*CommitObj, error) {
	idx := bytes.Index(data, []byte("\n\n"))
	if idx < 0 {
		return nil, fmt.Errorf("unmarshal commit: missing header/message separator")
	}
	header := string(data[:idx])
	message := string(data[idx+2:])

	c := &CommitObj{Message: message}
	for _, line := range strings.Split(header, "\n") {
		key, val, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("unmarshal commit: malformed header line %q", line)
		}
		switch key {
		case "tree":
			h, err := ParseHash(val)
			if err != nil {
				return nil, fmt.Errorf("unmarshal commit: tree: %w", err)
			}
			c.TreeHash = h
		case "parent":
			if c.Parent != "" {
				return nil, fmt.Errorf("unmarshal commit: more than one parent")
			}
			h, err := ParseHash(val)
			if err != nil {
				return nil, fmt.Errorf("unmarshal commit: parent: %w", err)
			}
			c.Parent = h
		case "author":
			sig, err := ParseSignature(val)
			if err != nil {
				return nil, fmt.Errorf("unmarshal commit: author: %w", err)
			}
			c.Author = sig
		case "committer":
			sig, err := ParseSignature(val)
			if err != nil {
				return nil, fmt.Errorf("unmarshal commit: committer: %w", err)
			}
			c.Committer = sig
		case "signature":
			c.Signature = val
		default:
			return nil, fmt.Errorf("unmarshal commit: unknown header key %q", key)
		}
	}
	if c.TreeHash == "" {
		return nil, fmt.Errorf("unmarshal commit: missing tree")
	}
	return c, nil
}

// ParseSignature parses "Name <email> unix-seconds +hhmm".
func ParseSignature(s string) (Signature, error) {
	open := strings.Index(s, "<")
	end := strings.LastIndex(s, ">")
	if open < 0 || end < open {
		return Signature{}, fmt.Errorf("malformed identity %q", s)
	}
	sig := Signature{
		Name:  strings.TrimSpace(s[:open]),
		Email: s[open+1 : end],
	}

	fields := strings.Fields(s[end+1:])
	if len(fields) != 2 {
		return Signature{}, fmt.Errorf("malformed identity time %q", s)
	}
	ts, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Signature{}, fmt.Errorf("bad timestamp %q: %w", fields[0], err)
	}
	loc, err := parseTimezoneOffset(fields[1])
	if err != nil {
		return Signature{}, err
	}
	sig.When = time.Unix(ts, 0).In(loc)
	return sig, nil
}

func parseTimezoneOffset(z string) (*time.Location, error) {
	if len(z) != 5 || (z[0] != '+' && z[0] != '-') {
		return nil, fmt.Errorf("bad timezone %q", z)
	}
	hours, err := strconv.Atoi(z[1:3])
	if err != nil {
		return nil, fmt.Errorf("bad timezone %q: %w", z, err)
	}
	minutes, err := strconv.Atoi(z[3:5])
	if err != nil {
		return nil, fmt.Errorf("bad timezone %q: %w", z, err)
	}
	offset := hours*3600 + minutes*60
	if z[0] == '-' {
		offset = -offset
	}
	if offset == 0 {
		return time.UTC, nil
	}
	return time.FixedZone("", offset), nil
}
