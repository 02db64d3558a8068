package protocol

import "errors"

var (
	ErrTruncated        = errors.New("protocol: truncated data")
	ErrUnknownType      = errors.New("protocol: unknown type")
	ErrNameTooLong      = errors.New("protocol: name too long")
	ErrValueTooLong     = errors.New("protocol: value too long")
	ErrMalformedPacket  = errors.New("protocol: malformed packet")
	ErrMalformedMessage = errors.New("protocol: malformed message")
)

// MaxNameLen is the largest name a u8 length prefix can carry.
const MaxNameLen = 255

// MaxValueLen is the largest value a u16 length prefix can carry.
const MaxValueLen = 65535
