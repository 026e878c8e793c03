package object

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashObjectMatchesGit(t *testing.T) {
	// Values from `git hash-object`.
	assert.Equal(t, Hash("e69de29bb2d1d6434b8b29ae775ad8c2e48c5391"), HashObject(TypeBlob, nil))
	assert.Equal(t, Hash("3b18e512dba79e4c8300dd08aeb37f8e728b8dad"), HashObject(TypeBlob, []byte("hello world\n")))
}

func TestHashObjectEnvelope(t *testing.T) {
	data := []byte("hello")
	h1 := HashObject(TypeBlob, data)
	require.Len(t, h1, HashHexLen)
	assert.Equal(t, h1, HashObject(TypeBlob, data), "HashObject not deterministic")
	assert.NotEqual(t, h1, HashObject(TypeTree, data), "different types must produce different hashes")
	assert.NotEqual(t, h1, HashObject(TypeBlob, []byte("hellO")))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payloads := map[string][]byte{
		"empty":    {},
		"text":     []byte("package main\n\nfunc main() {}\n"),
		"binary":   {0x00, 0xff, 0x10, 0x00, 0x7f},
		"repeated": make([]byte, 4096),
	}
	for name, payload := range payloads {
		t.Run(name, func(t *testing.T) {
			for _, typ := range []ObjectType{TypeBlob, TypeTree, TypeCommit} {
				h, encoded, err := Encode(typ, payload)
				require.NoError(t, err)
				assert.Equal(t, HashObject(typ, payload), h)

				raw, err := Decode(encoded)
				require.NoError(t, err)
				assert.Equal(t, envelope(typ, payload), raw)

				gotType, content, err := ParseEnvelope(raw)
				require.NoError(t, err)
				assert.Equal(t, typ, gotType)
				assert.Equal(t, len(payload), len(content))
			}
		})
	}
}

func TestEncodeDeterministic(t *testing.T) {
	_, a, err := Encode(TypeBlob, []byte("same bytes"))
	require.NoError(t, err)
	_, b, err := Encode(TypeBlob, []byte("same bytes"))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode([]byte("definitely not zlib"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCodec))

	var codecErr *CodecError
	require.ErrorAs(t, err, &codecErr)
	assert.Equal(t, "decode", codecErr.Op)
}

func TestParseEnvelopeErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "no nul", raw: "blob 3abc"},
		{name: "no space", raw: "blob3\x00abc"},
		{name: "unknown type", raw: "tag 3\x00abc"},
		{name: "bad length", raw: "blob x\x00abc"},
		{name: "length mismatch", raw: "blob 4\x00abc"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := ParseEnvelope([]byte(tc.raw))
			assert.Error(t, err)
		})
	}
}

func TestParseHash(t *testing.T) {
	h, err := ParseHash("  3b18e512dba79e4c8300dd08aeb37f8e728b8dad\n")
	require.NoError(t, err)
	assert.Equal(t, Hash("3b18e512dba79e4c8300dd08aeb37f8e728b8dad"), h)

	for _, bad := range []string{"", "3b18e5", "3B18E512DBA79E4C8300DD08AEB37F8E728B8DAD", "zz18e512dba79e4c8300dd08aeb37f8e728b8dad"} {
		_, err := ParseHash(bad)
		assert.Error(t, err, "ParseHash(%q)", bad)
	}
}
