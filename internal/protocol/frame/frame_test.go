package frame

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/danmuck/vicictl/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
)

func TestReadWriteFrameRoundTrip(t *testing.T) {
	testlog.Start(t)
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte{0x00, 0x07, 'v', 'e', 'r', 's', 'i', 'o', 'n'}, DefaultLimits()))
	require.NoError(t, WriteFrame(&buf, []byte{0x05}, DefaultLimits()))

	require.Equal(t, []byte{0, 0, 0, 9}, buf.Bytes()[:HeaderLen])

	first, err := ReadFrame(&buf, DefaultLimits())
	require.NoError(t, err)
	require.Equal(t, "version", string(first[2:]))

	second, err := ReadFrame(&buf, DefaultLimits())
	require.NoError(t, err)
	require.Equal(t, []byte{0x05}, second)

	_, err = ReadFrame(&buf, DefaultLimits())
	require.ErrorIs(t, err, io.EOF)
}

func TestReadFrameMalformedHeaderIsDeterministic(t *testing.T) {
	testlog.Start(t)
	_, err := ReadFrame(bytes.NewReader([]byte{0, 0}), DefaultLimits())
	if !errors.Is(err, ErrShortHeader) {
		t.Fatalf("expected ErrShortHeader, got %v", err)
	}
}

func TestReadFrameShortBody(t *testing.T) {
	testlog.Start(t)
	raw := append(EncodeHeader(10), 1, 2, 3)
	_, err := ReadFrame(bytes.NewReader(raw), DefaultLimits())
	require.ErrorIs(t, err, ErrShortPacket)
}

func TestReadFrameRejectsEmptyAndOversized(t *testing.T) {
	testlog.Start(t)
	_, err := ReadFrame(bytes.NewReader(EncodeHeader(0)), DefaultLimits())
	require.ErrorIs(t, err, ErrEmptyPacket)

	limits := Limits{MaxPacketBytes: 8}
	_, err = ReadFrame(bytes.NewReader(EncodeHeader(9)), limits)
	require.ErrorIs(t, err, ErrPacketTooLarge)

	err = WriteFrame(io.Discard, make([]byte, 9), limits)
	require.ErrorIs(t, err, ErrPacketTooLarge)
	require.ErrorIs(t, WriteFrame(io.Discard, nil, limits), ErrEmptyPacket)
}

func TestZeroLimitsFallBackToDefault(t *testing.T) {
	testlog.Start(t)
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, make([]byte, 1024), Limits{}))
	body, err := ReadFrame(&buf, Limits{})
	require.NoError(t, err)
	require.Len(t, body, 1024)
}
