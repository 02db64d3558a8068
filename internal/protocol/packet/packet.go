// Package packet models the tagged envelope carried by one frame.
package packet

import (
	"fmt"

	"github.com/danmuck/vicictl/internal/protocol"
)

// Type is the closed set of packet tags.
type Type uint8

const (
	CmdRequest      Type = 0
	CmdResponse     Type = 1
	CmdUnknown      Type = 2
	EventRegister   Type = 3
	EventUnregister Type = 4
	EventConfirm    Type = 5
	EventUnknown    Type = 6
	Event           Type = 7
)

func (t Type) String() string {
	switch t {
	case CmdRequest:
		return "CMD_REQUEST"
	case CmdResponse:
		return "CMD_RESPONSE"
	case CmdUnknown:
		return "CMD_UNKNOWN"
	case EventRegister:
		return "EVENT_REGISTER"
	case EventUnregister:
		return "EVENT_UNREGISTER"
	case EventConfirm:
		return "EVENT_CONFIRM"
	case EventUnknown:
		return "EVENT_UNKNOWN"
	case Event:
		return "EVENT"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// Valid reports whether t is one of the known tags.
func (t Type) Valid() bool {
	return t <= Event
}

// Named reports whether packets of this type carry a command or event name.
func (t Type) Named() bool {
	switch t {
	case CmdRequest, EventRegister, EventUnregister, Event:
		return true
	default:
		return false
	}
}

// CarriesPayload reports whether packets of this type may carry a message payload.
func (t Type) CarriesPayload() bool {
	switch t {
	case CmdRequest, CmdResponse, Event:
		return true
	default:
		return false
	}
}

// Packet is one logical message on the wire.
type Packet struct {
	Type    Type
	Name    string
	Payload []byte
}

// MalformedPacketError reports bytes that do not parse into a known packet.
type MalformedPacketError struct {
	Reason string
}

func (e *MalformedPacketError) Error() string {
	return "packet: malformed: " + e.Reason
}

func (e *MalformedPacketError) Is(target error) bool {
	return target == protocol.ErrMalformedPacket
}

func malformed(format string, args ...any) error {
	return &MalformedPacketError{Reason: fmt.Sprintf(format, args...)}
}

func Request(command string, payload []byte) Packet {
	return Packet{Type: CmdRequest, Name: command, Payload: payload}
}

func RegisterEvent(name string) Packet {
	return Packet{Type: EventRegister, Name: name}
}

func UnregisterEvent(name string) Packet {
	return Packet{Type: EventUnregister, Name: name}
}

func Response(payload []byte) Packet {
	return Packet{Type: CmdResponse, Payload: payload}
}

func CommandUnknown() Packet {
	return Packet{Type: CmdUnknown}
}

func Confirm() Packet {
	return Packet{Type: EventConfirm}
}

func Unknown() Packet {
	return Packet{Type: EventUnknown}
}

func EventData(name string, payload []byte) Packet {
	return Packet{Type: Event, Name: name, Payload: payload}
}

// Encode returns the packet body: type, optional u8-prefixed name, payload.
func (p Packet) Encode() ([]byte, error) {
	if !p.Type.Valid() {
		return nil, fmt.Errorf("%w: packet %s", protocol.ErrUnknownType, p.Type)
	}
	size := 1 + len(p.Payload)
	if p.Type.Named() {
		if len(p.Name) > protocol.MaxNameLen {
			return nil, fmt.Errorf("%w: %d bytes", protocol.ErrNameTooLong, len(p.Name))
		}
		size += 1 + len(p.Name)
	}
	out := make([]byte, 0, size)
	out = append(out, byte(p.Type))
	if p.Type.Named() {
		out = append(out, byte(len(p.Name)))
		out = append(out, p.Name...)
	}
	if p.Type.CarriesPayload() {
		out = append(out, p.Payload...)
	}
	return out, nil
}

// Parse decodes one packet body. On error the returned Packet is zero.
func Parse(b []byte) (Packet, error) {
	if len(b) == 0 {
		return Packet{}, malformed("empty packet")
	}
	t := Type(b[0])
	if !t.Valid() {
		return Packet{}, malformed("unknown type %d", b[0])
	}
	rest := b[1:]

	var name string
	if t.Named() {
		if len(rest) < 1 {
			return Packet{}, malformed("%s missing name length", t)
		}
		n := int(rest[0])
		if len(rest)-1 < n {
			return Packet{}, malformed("%s name truncated: want %d have %d", t, n, len(rest)-1)
		}
		name = string(rest[1 : 1+n])
		rest = rest[1+n:]
	}

	var payload []byte
	if len(rest) > 0 {
		if !t.CarriesPayload() {
			return Packet{}, malformed("%s carries %d unexpected bytes", t, len(rest))
		}
		payload = make([]byte, len(rest))
		copy(payload, rest)
	}
	return Packet{Type: t, Name: name, Payload: payload}, nil
}
