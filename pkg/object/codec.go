package object

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// ErrCodec is matched by every CodecError.
var ErrCodec = errors.New("object codec failure")

// CodecError reports a failure to compress, decompress or fingerprint an
// object envelope.
type CodecError struct {
	Op  string // "encode", "decode" or "digest"
	Err error
}

func (e *CodecError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("codec %s: %v", e.Op, e.Err)
}

func (e *CodecError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *CodecError) Is(target error) bool {
	return target == ErrCodec
}

// Encode fingerprints and compresses an object. The returned id is the SHA-1
// of "type len\0" + data and the encoded bytes are the zlib stream of that
// same envelope. Identical inputs always produce identical outputs.
func Encode(objType ObjectType, data []byte) (Hash, []byte, error) {
	raw := envelope(objType, data)

	h, collision := digest(raw)
	if collision {
		return "", nil, &CodecError{Op: "digest", Err: fmt.Errorf("sha1 collision attack detected for %s object", objType)}
	}

	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.DefaultCompression)
	if err != nil {
		return "", nil, &CodecError{Op: "encode", Err: err}
	}
	if _, err := zw.Write(raw); err != nil {
		zw.Close()
		return "", nil, &CodecError{Op: "encode", Err: err}
	}
	if err := zw.Close(); err != nil {
		return "", nil, &CodecError{Op: "encode", Err: err}
	}
	return h, buf.Bytes(), nil
}

// Decode inflates bytes produced by Encode back into the exact
// "type len\0" + data envelope.
func Decode(encoded []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(encoded))
	if err != nil {
		return nil, &CodecError{Op: "decode", Err: err}
	}
	raw, err := io.ReadAll(zr)
	if err != nil {
		zr.Close()
		return nil, &CodecError{Op: "decode", Err: err}
	}
	if err := zr.Close(); err != nil {
		return nil, &CodecError{Op: "decode", Err: err}
	}
	return raw, nil
}
