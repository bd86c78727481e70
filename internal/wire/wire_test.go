package wire

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/cowby123/scrcpy-go/internal/protoerr"
	"github.com/stretchr/testify/require"
)

func TestPrimitiveRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteU8(&buf, 0xAB))
	require.NoError(t, WriteBool(&buf, true))
	require.NoError(t, WriteU16(&buf, 0x1234))
	require.NoError(t, WriteU32(&buf, 0xDEADBEEF))
	require.NoError(t, WriteU64(&buf, 0x0102030405060708))
	require.NoError(t, WriteI32(&buf, -1))
	require.NoError(t, WriteI64(&buf, -2))

	u8, err := ReadU8(&buf)
	require.NoError(t, err)
	require.EqualValues(t, 0xAB, u8)

	b, err := ReadBool(&buf)
	require.NoError(t, err)
	require.True(t, b)

	u16, err := ReadU16(&buf)
	require.NoError(t, err)
	require.EqualValues(t, 0x1234, u16)

	u32, err := ReadU32(&buf)
	require.NoError(t, err)
	require.EqualValues(t, 0xDEADBEEF, u32)

	u64, err := ReadU64(&buf)
	require.NoError(t, err)
	require.EqualValues(t, 0x0102030405060708, u64)

	i32, err := ReadI32(&buf)
	require.NoError(t, err)
	require.EqualValues(t, -1, i32)

	i64, err := ReadI64(&buf)
	require.NoError(t, err)
	require.EqualValues(t, -2, i64)
}

func TestFixedStringStripsTrailingNUL(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFixedString(&buf, "Pixel 7", 64))
	require.Equal(t, 64, buf.Len())

	s, err := ReadFixedString(&buf, 64)
	require.NoError(t, err)
	require.Equal(t, "Pixel 7", s)
}

func TestFixedStringTruncatesOverlong(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFixedString(&buf, "this name is far too long to fit", 8))
	s, err := ReadFixedString(&buf, 8)
	require.NoError(t, err)
	require.Len(t, s, 8)
}

func TestLenBlob32RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("hello, clipboard")
	require.NoError(t, WriteLenBlob32(&buf, payload))

	got, err := ReadLenBlob32(&buf, DefaultBlobCap)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestLenString32RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLenString32(&buf, "hi"))
	s, err := ReadLenString32(&buf, DefaultBlobCap)
	require.NoError(t, err)
	require.Equal(t, "hi", s)
}

func TestLenBlob32RejectsOversize(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteU32(&buf, 100))
	buf.Write(make([]byte, 100))

	_, err := ReadLenBlob32(&buf, 10)
	require.Error(t, err)
	require.True(t, errors.Is(err, protoerr.ErrMalformedFrame))
}

func TestLenBlob16RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("uhid descriptor bytes")
	require.NoError(t, WriteLenBlob16(&buf, payload))

	got, err := ReadLenBlob16(&buf, 1<<16-1)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestReadU8CleanEOF(t *testing.T) {
	_, err := ReadU8(bytes.NewReader(nil))
	require.True(t, errors.Is(err, io.EOF))
}

func TestReadU32ShortReadMidField(t *testing.T) {
	_, err := ReadU32(bytes.NewReader([]byte{0x01, 0x02}))
	require.True(t, errors.Is(err, protoerr.ErrShortRead))
	require.False(t, errors.Is(err, io.EOF) && err == io.EOF)
}
