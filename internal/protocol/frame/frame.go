package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// HeaderLen is the size of the big-endian length prefix.
const HeaderLen = 4

var (
	ErrShortHeader    = errors.New("frame: short length header")
	ErrShortPacket    = errors.New("frame: short packet body")
	ErrEmptyPacket    = errors.New("frame: empty packet")
	ErrPacketTooLarge = errors.New("frame: packet too large")
)

// Limits constrains frame decode/encode memory use.
type Limits struct {
	MaxPacketBytes uint32
}

// DefaultLimits matches the daemon side message size cap.
func DefaultLimits() Limits {
	return Limits{
		MaxPacketBytes: 512 * 1024,
	}
}

func (l Limits) max() uint32 {
	if l.MaxPacketBytes == 0 {
		return DefaultLimits().MaxPacketBytes
	}
	return l.MaxPacketBytes
}

// ReadFrame reads one length-prefixed packet body from r.
func ReadFrame(r io.Reader, limits Limits) ([]byte, error) {
	var head [HeaderLen]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrShortHeader
		}
		// A clean io.EOF means the peer closed between frames.
		return nil, err
	}

	n := DecodeHeader(head[:])
	if n == 0 {
		return nil, ErrEmptyPacket
	}
	if n > limits.max() {
		return nil, fmt.Errorf("%w: %d > %d", ErrPacketTooLarge, n, limits.max())
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, ErrShortPacket
		}
		return nil, err
	}
	return body, nil
}

// WriteFrame writes body prefixed with its length as one write call.
func WriteFrame(w io.Writer, body []byte, limits Limits) error {
	if len(body) == 0 {
		return ErrEmptyPacket
	}
	if uint64(len(body)) > uint64(limits.max()) {
		return fmt.Errorf("%w: %d > %d", ErrPacketTooLarge, len(body), limits.max())
	}
	buf := make([]byte, HeaderLen+len(body))
	copy(buf, EncodeHeader(uint32(len(body))))
	copy(buf[HeaderLen:], body)
	_, err := w.Write(buf)
	return err
}

func EncodeHeader(n uint32) []byte {
	buf := make([]byte, HeaderLen)
	binary.BigEndian.PutUint32(buf, n)
	return buf
}

func DecodeHeader(b []byte) uint32 {
	return binary.BigEndian.Uint32(b[:HeaderLen])
}
