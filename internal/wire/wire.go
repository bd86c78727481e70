// Package wire implements the fixed-layout big-endian binary encoding
// shared by every scrcpy socket: primitive integers, NUL-padded fixed
// strings, and length-prefixed blobs/strings (§4.B of the protocol core
// specification).
package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/cowby123/scrcpy-go/internal/protoerr"
)

// DefaultBlobCap bounds the size of any length-prefixed read that does not
// supply its own cap, guarding against a corrupt or hostile length field
// driving an unbounded allocation.
const DefaultBlobCap = 16 << 20 // 16 MiB, matches the default media payload cap

// readFull reads exactly len(buf) bytes, distinguishing a clean EOF with no
// bytes consumed (the caller's cue that a stream ended at a frame boundary)
// from a short/partial read inside a field.
func readFull(r io.Reader, buf []byte) error {
	n, err := io.ReadFull(r, buf)
	if err == nil {
		return nil
	}
	if n == 0 && err == io.EOF {
		return io.EOF
	}
	return protoerr.Wrapf(protoerr.ErrShortRead, "read %d bytes: %v", len(buf), err)
}

// ReadU8 reads a single unsigned byte.
func ReadU8(r io.Reader) (uint8, error) {
	var b [1]byte
	if err := readFull(r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadBool reads a one-byte boolean, 0 = false, anything else = true.
func ReadBool(r io.Reader) (bool, error) {
	b, err := ReadU8(r)
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

// ReadU16 reads a big-endian 16-bit unsigned integer.
func ReadU16(r io.Reader) (uint16, error) {
	var b [2]byte
	if err := readFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

// ReadU32 reads a big-endian 32-bit unsigned integer.
func ReadU32(r io.Reader) (uint32, error) {
	var b [4]byte
	if err := readFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

// ReadU64 reads a big-endian 64-bit unsigned integer.
func ReadU64(r io.Reader) (uint64, error) {
	var b [8]byte
	if err := readFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

// ReadI32 reads a big-endian 32-bit signed integer.
func ReadI32(r io.Reader) (int32, error) {
	v, err := ReadU32(r)
	return int32(v), err
}

// ReadI64 reads a big-endian 64-bit signed integer.
func ReadI64(r io.Reader) (int64, error) {
	v, err := ReadU64(r)
	return int64(v), err
}

// ReadI16 reads a big-endian 16-bit signed integer.
func ReadI16(r io.Reader) (int16, error) {
	v, err := ReadU16(r)
	return int16(v), err
}

// ReadFixedString reads n bytes and interprets them as UTF-8, stripping
// trailing NUL padding.
func ReadFixedString(r io.Reader, n int) (string, error) {
	buf := make([]byte, n)
	if err := readFull(r, buf); err != nil {
		return "", err
	}
	end := n
	for end > 0 && buf[end-1] == 0 {
		end--
	}
	return string(buf[:end]), nil
}

// ReadLenBlob32 reads a u32 length followed by that many bytes, rejecting
// lengths over cap with ErrMalformedFrame.
func ReadLenBlob32(r io.Reader, limit uint32) ([]byte, error) {
	n, err := ReadU32(r)
	if err != nil {
		return nil, err
	}
	if n > limit {
		return nil, &protoerr.ParseError{
			Field: "len32 blob",
			Err:   fmt.Errorf("%w: %d exceeds cap %d", protoerr.ErrMalformedFrame, n, limit),
		}
	}
	buf := make([]byte, n)
	if err := readFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadLenString32 is ReadLenBlob32 interpreted as UTF-8.
func ReadLenString32(r io.Reader, limit uint32) (string, error) {
	b, err := ReadLenBlob32(r, limit)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadLenBlob16 reads a u16 length followed by that many bytes. Used by the
// UHID control messages, whose name/descriptor/data fields are
// length-prefixed with a 16-bit count rather than 32.
func ReadLenBlob16(r io.Reader, limit uint16) ([]byte, error) {
	n, err := ReadU16(r)
	if err != nil {
		return nil, err
	}
	if n > limit {
		return nil, &protoerr.ParseError{
			Field: "len16 blob",
			Err:   fmt.Errorf("%w: %d exceeds cap %d", protoerr.ErrMalformedFrame, n, limit),
		}
	}
	buf := make([]byte, n)
	if err := readFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadLenString16 is ReadLenBlob16 interpreted as UTF-8.
func ReadLenString16(r io.Reader, limit uint16) (string, error) {
	b, err := ReadLenBlob16(r, limit)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// --- writers ---

// WriteU8 appends a single byte.
func WriteU8(w io.Writer, v uint8) error {
	_, err := w.Write([]byte{v})
	return err
}

// WriteBool appends a one-byte boolean (0/1).
func WriteBool(w io.Writer, v bool) error {
	if v {
		return WriteU8(w, 1)
	}
	return WriteU8(w, 0)
}

// WriteU16 appends a big-endian 16-bit unsigned integer.
func WriteU16(w io.Writer, v uint16) error {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	_, err := w.Write(b[:])
	return err
}

// WriteU32 appends a big-endian 32-bit unsigned integer.
func WriteU32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

// WriteU64 appends a big-endian 64-bit unsigned integer.
func WriteU64(w io.Writer, v uint64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return err
}

// WriteI16 appends a big-endian 16-bit signed integer.
func WriteI16(w io.Writer, v int16) error { return WriteU16(w, uint16(v)) }

// WriteI32 appends a big-endian 32-bit signed integer.
func WriteI32(w io.Writer, v int32) error { return WriteU32(w, uint32(v)) }

// WriteI64 appends a big-endian 64-bit signed integer.
func WriteI64(w io.Writer, v int64) error { return WriteU64(w, uint64(v)) }

// WriteFixedString appends s, NUL-padded (or truncated) to exactly n bytes.
func WriteFixedString(w io.Writer, s string, n int) error {
	buf := make([]byte, n)
	copy(buf, s)
	_, err := w.Write(buf)
	return err
}

// WriteLenBlob32 appends a u32 length prefix followed by b.
func WriteLenBlob32(w io.Writer, b []byte) error {
	if err := WriteU32(w, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// WriteLenString32 is WriteLenBlob32 over the UTF-8 bytes of s.
func WriteLenString32(w io.Writer, s string) error {
	return WriteLenBlob32(w, []byte(s))
}

// WriteLenBlob16 appends a u16 length prefix followed by b.
func WriteLenBlob16(w io.Writer, b []byte) error {
	if err := WriteU16(w, uint16(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// WriteLenString16 is WriteLenBlob16 over the UTF-8 bytes of s.
func WriteLenString16(w io.Writer, s string) error {
	return WriteLenBlob16(w, []byte(s))
}
