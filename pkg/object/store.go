package object

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	// ErrObjectNotFound is returned when no shard file exists for an id.
	ErrObjectNotFound = errors.New("object not found")
	// ErrCorruptObject is returned when a stored object cannot be decoded,
	// parsed, or is not of the expected type.
	ErrCorruptObject = errors.New("corrupt object")
	// ErrAmbiguousPrefix is returned when an abbreviated id matches more than
	// one stored object.
	ErrAmbiguousPrefix = errors.New("ambiguous object id prefix")
)

// MinPrefixLen is the shortest abbreviated id ResolvePrefix accepts.
const MinPrefixLen = 4

// Store is a content-addressed object store with a 2-character fan-out
// directory layout: objects/ab/cdef0123...
type Store struct {
	root string
}

// NewStore creates a Store rooted at the given directory. The objects/
// subdirectory is created lazily on first write.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// objectPath returns the filesystem path for a given hash.
func (s *Store) objectPath(h Hash) string {
	return filepath.Join(s.root, "objects", string(h[:2]), string(h[2:]))
}

// Has reports whether the store contains an object with the given hash.
func (s *Store) Has(h Hash) bool {
	if ValidateHash(string(h)) != nil {
		return false
	}
	_, err := os.Stat(s.objectPath(h))
	return err == nil
}

// Write stores an object and returns its content hash. The on-disk format
// is the zlib stream of "type len\0content". If the object is already present
// nothing is written. New objects are written to a temp file and renamed into
// place.
func (s *Store) Write(objType ObjectType, data []byte) (Hash, error) {
	h, encoded, err := Encode(objType, data)
	if err != nil {
		return "", fmt.Errorf("object write: %w", err)
	}

	// Fast path: already exists.
	if s.Has(h) {
		return h, nil
	}

	dir := filepath.Join(s.root, "objects", string(h[:2]))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("object write mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("object write tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(encoded); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("object write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("object write close: %w", err)
	}

	if err := os.Rename(tmpName, s.objectPath(h)); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("object write rename: %w", err)
	}

	return h, nil
}

// Read retrieves an object by hash, returning its type and content with the
// envelope header stripped.
func (s *Store) Read(h Hash) (ObjectType, []byte, error) {
	if err := ValidateHash(string(h)); err != nil {
		return "", nil, fmt.Errorf("object read: %w: %v", ErrObjectNotFound, err)
	}
	encoded, err := os.ReadFile(s.objectPath(h))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil, fmt.Errorf("object read %s: %w", h, ErrObjectNotFound)
		}
		return "", nil, fmt.Errorf("object read %s: %w", h, err)
	}

	raw, err := Decode(encoded)
	if err != nil {
		return "", nil, fmt.Errorf("object read %s: %w: %w", h, ErrCorruptObject, err)
	}
	if got, _ := digest(raw); got != h {
		return "", nil, fmt.Errorf("object read %s: %w: content hashes to %s", h, ErrCorruptObject, got)
	}
	objType, content, err := ParseEnvelope(raw)
	if err != nil {
		return "", nil, fmt.Errorf("object read %s: %w: %v", h, ErrCorruptObject, err)
	}
	return objType, content, nil
}

// readTyped reads h and checks that it is of the wanted type.
func (s *Store) readTyped(h Hash, want ObjectType) ([]byte, error) {
	objType, data, err := s.Read(h)
	if err != nil {
		return nil, err
	}
	if objType != want {
		return nil, fmt.Errorf("object %s: %w: type mismatch: got %q, want %q", h, ErrCorruptObject, objType, want)
	}
	return data, nil
}

// ResolvePrefix expands an abbreviated object id to the single stored object
// it names. A full-length id is returned as is when the object exists.
func (s *Store) ResolvePrefix(prefix string) (Hash, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if len(prefix) < MinPrefixLen || len(prefix) > HashHexLen || !isLowerHex(prefix) {
		return "", fmt.Errorf("resolve prefix %q: %w", prefix, ErrObjectNotFound)
	}
	if len(prefix) == HashHexLen {
		if s.Has(Hash(prefix)) {
			return Hash(prefix), nil
		}
		return "", fmt.Errorf("resolve prefix %q: %w", prefix, ErrObjectNotFound)
	}

	entries, err := os.ReadDir(filepath.Join(s.root, "objects", prefix[:2]))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("resolve prefix %q: %w", prefix, ErrObjectNotFound)
		}
		return "", fmt.Errorf("resolve prefix %q: %w", prefix, err)
	}

	var matches []Hash
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if strings.HasPrefix(name, prefix[2:]) {
			matches = append(matches, Hash(prefix[:2]+name))
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("resolve prefix %q: %w", prefix, ErrObjectNotFound)
	case 1:
		return matches[0], nil
	default:
		sort.Slice(matches, func(i, j int) bool { return matches[i] < matches[j] })
		return "", fmt.Errorf("resolve prefix %q: %w (%d candidates)", prefix, ErrAmbiguousPrefix, len(matches))
	}
}

// ---------------------------------------------------------------------------
// Typed convenience methods
// ---------------------------------------------------------------------------

// WriteBlob serializes and stores a Blob.
func (s *Store) WriteBlob(b *Blob) (Hash, error) {
	return s.Write(TypeBlob, MarshalBlob(b))
}

// ReadBlob reads and deserializes a Blob.
func (s *Store) ReadBlob(h Hash) (*Blob, error) {
	data, err := s.readTyped(h, TypeBlob)
	if err != nil {
		return nil, err
	}
	return UnmarshalBlob(data)
}

// WriteTree serializes and stores a TreeObj.
func (s *Store) WriteTree(tr *TreeObj) (Hash, error) {
	return s.Write(TypeTree, MarshalTree(tr))
}

// ReadTree reads and deserializes a TreeObj.
func (s *Store) ReadTree(h Hash) (*TreeObj, error) {
	data, err := s.readTyped(h, TypeTree)
	if err != nil {
		return nil, err
	}
	tr, err := UnmarshalTree(data)
	if err != nil {
		return nil, fmt.Errorf("object %s: %w: %v", h, ErrCorruptObject, err)
	}
	return tr, nil
}

// WriteCommit serializes and stores a CommitObj.
func (s *Store) WriteCommit(c *CommitObj) (Hash, error) {
	return s.Write(TypeCommit, MarshalCommit(c))
}

// ReadCommit reads and deserializes a CommitObj.
func (s *Store) ReadCommit(h Hash) (*CommitObj, error) {
	data, err := s.readTyped(h, TypeCommit)
	if err != nil {
		return nil, err
	}
	c, err := UnmarshalCommit(data)
	if err != nil {
		return nil, fmt.Errorf("object %s: %w: %v", h, ErrCorruptObject, err)
	}
	return c, nil
}
