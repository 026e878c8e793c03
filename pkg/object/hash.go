package object

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/pjbgf/sha1cd"
)

// envelopeHeader returns the canonical "type len\0" prefix for an object.
func envelopeHeader(objType ObjectType, size int) []byte {
	return []byte(fmt.Sprintf("%s %d\x00", objType, size))
}

// envelope returns header and payload joined into one buffer.
func envelope(objType ObjectType, data []byte) []byte {
	header := envelopeHeader(objType, len(data))
	raw := make([]byte, 0, len(header)+len(data))
	raw = append(raw, header...)
	return append(raw, data...)
}

// digest computes the SHA-1 of raw with collision detection. The boolean is
// true when raw matches a known SHA-1 collision attack pattern.
func digest(raw []byte) (Hash, bool) {
	sum, collision := sha1cd.Sum(raw)
	return Hash(hex.EncodeToString(sum[:])), collision
}

// HashObject computes the SHA-1 of the envelope "type len\0content", the same
// fingerprint Store.Write would assign, without compressing or writing.
func HashObject(objType ObjectType, data []byte) Hash {
	h, _ := digest(envelope(objType, data))
	return h
}

// ValidateHash reports whether s is a well-formed object id.
func ValidateHash(s string) error {
	if len(s) != HashHexLen {
		return fmt.Errorf("invalid object id %q: want %d hex characters, got %d", s, HashHexLen, len(s))
	}
	if !isLowerHex(s) {
		return fmt.Errorf("invalid object id %q: not lowercase hex", s)
	}
	return nil
}

// ParseHash trims s and validates it as an object id.
func ParseHash(s string) (Hash, error) {
	s = strings.TrimSpace(s)
	if err := ValidateHash(s); err != nil {
		return "", err
	}
	return Hash(s), nil
}

func isLowerHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// ParseEnvelope splits a decoded "type len\0content" buffer into its type and
// content, checking that the declared length matches.
func ParseEnvelope(raw []byte) (ObjectType, []byte, error) {
	nulIdx := bytes.IndexByte(raw, 0)
	if nulIdx < 0 {
		return "", nil, fmt.Errorf("invalid format (no NUL)")
	}
	header := string(raw[:nulIdx])
	content := raw[nulIdx+1:]

	typ, sizeText, ok := strings.Cut(header, " ")
	if !ok {
		return "", nil, fmt.Errorf("invalid header %q", header)
	}
	objType := ObjectType(typ)
	if !objType.Valid() {
		return "", nil, fmt.Errorf("unknown object type %q", typ)
	}
	length, err := strconv.Atoi(sizeText)
	if err != nil {
		return "", nil, fmt.Errorf("invalid length %q: %w", sizeText, err)
	}
	if len(content) != length {
		return "", nil, fmt.Errorf("length mismatch (header=%d, actual=%d)", length, len(content))
	}
	return objType, content, nil
}
