// Package vicitest provides a scripted fake VICI server transport for tests.
package vicitest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/danmuck/vicictl/internal/protocol/message"
	"github.com/danmuck/vicictl/internal/protocol/packet"
)

var ErrNoFrames = errors.New("vicitest: no scripted frames left")

// Transport replays scripted reply frames and records every packet sent to it.
type Transport struct {
	mu      sync.Mutex
	replies [][]byte
	sent    []packet.Packet
	reads   int

	// SendErr, when set, fails every Send.
	SendErr error
	// RecvErrAfter fails Receive with RecvErr once this many frames were read (when RecvErr is set).
	RecvErrAfter int
	RecvErr      error
}

func NewTransport() *Transport {
	return &Transport{}
}

func (t *Transport) Send(_ context.Context, body []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.SendErr != nil {
		return t.SendErr
	}
	p, err := packet.Parse(body)
	if err != nil {
		return err
	}
	t.sent = append(t.sent, p)
	return nil
}

func (t *Transport) Receive(ctx context.Context) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t.RecvErr != nil && t.reads >= t.RecvErrAfter {
		return nil, t.RecvErr
	}
	if len(t.replies) == 0 {
		return nil, ErrNoFrames
	}
	next := t.replies[0]
	t.replies = t.replies[1:]
	t.reads++
	return next, nil
}

// QueueRaw scripts one raw reply frame body.
func (t *Transport) QueueRaw(body []byte) *Transport {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.replies = append(t.replies, body)
	return t
}

// Queue scripts reply packets in order.
func (t *Transport) Queue(packets ...packet.Packet) *Transport {
	for _, p := range packets {
		body, err := p.Encode()
		if err != nil {
			panic(err)
		}
		t.QueueRaw(body)
	}
	return t
}

// QueueResponse scripts a CMD_RESPONSE carrying msg.
func (t *Transport) QueueResponse(msg *message.Message) *Transport {
	return t.Queue(packet.Response(mustEncode(msg)))
}

// QueueEvents scripts one EVENT frame per message.
func (t *Transport) QueueEvents(stream string, msgs ...*message.Message) *Transport {
	for _, m := range msgs {
		t.Queue(packet.EventData(stream, mustEncode(m)))
	}
	return t
}

// QueueStreamed scripts a full server side streamed exchange:
// register confirm, events, response, unregister confirm.
func (t *Transport) QueueStreamed(stream string, result *message.Message, events ...*message.Message) *Transport {
	t.Queue(packet.Confirm())
	t.QueueEvents(stream, events...)
	t.QueueResponse(result)
	return t.Queue(packet.Confirm())
}

func (t *Transport) Sent() []packet.Packet {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]packet.Packet, len(t.sent))
	copy(out, t.sent)
	return out
}

// SentTypes lists the type of every sent packet in order.
func (t *Transport) SentTypes() []packet.Type {
	sent := t.Sent()
	out := make([]packet.Type, 0, len(sent))
	for _, p := range sent {
		out = append(out, p.Type)
	}
	return out
}

// Count returns how many sent packets have type pt.
func (t *Transport) Count(pt packet.Type) int {
	n := 0
	for _, p := range t.Sent() {
		if p.Type == pt {
			n++
		}
	}
	return n
}

func (t *Transport) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.replies)
}

func (t *Transport) Reads() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reads
}

// RequireDrained fails the test when scripted frames were left unread.
func (t *Transport) RequireDrained(tb testing.TB) {
	tb.Helper()
	if n := t.Remaining(); n != 0 {
		tb.Fatalf("vicitest: %d scripted frames left unread", n)
	}
}

func mustEncode(m *message.Message) []byte {
	b, err := message.Encode(m)
	if err != nil {
		panic(err)
	}
	return b
}
