package binary

import (
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLEB128RoundTrip(t *testing.T) {
	for _, v := range []uint32{0, 1, 127, 128, 624485, math.MaxUint32} {
		w := NewWriter()
		w.WriteU32(v)
		got, err := NewReader(w.Bytes()).ReadU32()
		require.NoError(t, err)
		require.Equal(t, v, got)
	}

	for _, v := range []int32{0, -1, 63, -64, 64, -65, 2024, math.MinInt32, math.MaxInt32} {
		w := NewWriter()
		w.WriteS32(v)
		got, err := NewReader(w.Bytes()).ReadS32()
		require.NoError(t, err)
		require.Equal(t, v, got)
	}

	for _, v := range []int64{0, -1, 1 << 40, math.MinInt64, math.MaxInt64} {
		w := NewWriter()
		w.WriteS64(v)
		got, err := NewReader(w.Bytes()).ReadS64()
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func TestReader_KnownEncodings(t *testing.T) {
	// 624485 from the LEB128 reference example
	v, err := NewReader([]byte{0xE5, 0x8E, 0x26}).ReadU32()
	require.NoError(t, err)
	require.Equal(t, uint32(624485), v)

	s, err := NewReader([]byte{0x7F}).ReadS32()
	require.NoError(t, err)
	require.Equal(t, int32(-1), s)
}

func TestReader_Truncation(t *testing.T) {
	_, err := NewReader([]byte{0x80, 0x80}).ReadU32()
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, err = NewReader([]byte{1, 2}).ReadBytes(3)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, err = NewReader([]byte{0x05, 'a', 'b'}).ReadName()
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, err = NewReader(nil).ReadByte()
	require.ErrorIs(t, err, io.EOF)
}

func TestReader_Overflow(t *testing.T) {
	_, err := NewReader([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01}).ReadU32()
	require.ErrorIs(t, err, ErrOverflow)
}

func TestReader_InvalidUTF8Name(t *testing.T) {
	_, err := NewReader([]byte{0x02, 0xC3, 0x28}).ReadName()
	require.Error(t, err)
}

func TestReader_Position(t *testing.T) {
	r := NewReader([]byte{0x00, 0x61, 0x73, 0x6D, 0xFF})
	magic, err := r.ReadU32LE()
	require.NoError(t, err)
	require.Equal(t, uint32(0x6D736100), magic)
	require.Equal(t, 4, r.Position())
	require.Equal(t, 1, r.Len())

	rest, err := r.ReadRemaining()
	require.NoError(t, err)
	require.Equal(t, []byte{0xFF}, rest)
	require.Zero(t, r.Len())
}

func TestParseError(t *testing.T) {
	r := NewReader([]byte{1})
	_, _ = r.ReadByte()
	err := r.WrapError("header", io.ErrUnexpectedEOF)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, 1, pe.Position)
	require.Equal(t, "wasm: header at position 1: unexpected EOF", err.Error())
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
