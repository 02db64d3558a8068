package session

import (
	"context"
	"sync"
	"time"

	"github.com/danmuck/vicictl/internal/protocol/message"
	"github.com/danmuck/vicictl/internal/protocol/packet"
	"github.com/rs/zerolog"
)

// Transport moves whole packet bodies over an open connection.
// Receive blocks until one full frame arrives or the connection fails.
type Transport interface {
	Send(ctx context.Context, body []byte) error
	Receive(ctx context.Context) ([]byte, error)
}

// Codec converts structured documents to and from payload bytes.
type Codec interface {
	Serialize(m *message.Message) ([]byte, error)
	Deserialize(b []byte) (*message.Message, error)
}

// Handler runs request/response and streamed exchanges over one Transport.
type Handler struct {
	mu        sync.Mutex
	transport Transport
	codec     Codec
	recorder  Recorder
	logger    zerolog.Logger
}

type Option func(*Handler)

func WithCodec(c Codec) Option {
	return func(h *Handler) {
		if c != nil {
			h.codec = c
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(h *Handler) {
		if r != nil {
			h.recorder = r
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(h *Handler) {
		h.logger = l
	}
}

func NewHandler(t Transport, opts ...Option) (*Handler, error) {
	if t == nil {
		return nil, ErrNilTransport
	}
	h := &Handler{
		transport: t,
		codec:     message.Codec{},
		recorder:  nopRecorder{},
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Request issues command and returns the deserialized CMD_RESPONSE payload.
func (h *Handler) Request(ctx context.Context, command string, msg *message.Message) (*message.Message, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	start := time.Now()
	res, err := h.request(ctx, command, msg)
	h.recorder.ObserveExchange(command, KindRequest, outcomeOf(err, false), time.Since(start))
	h.logger.Debug().Msgf("session.Handler.Request command=%q ok=%t elapsed=%s", command, err == nil, time.Since(start))
	return res, err
}

func (h *Handler) request(ctx context.Context, command string, msg *message.Message) (*message.Message, error) {
	payload, err := h.serialize(msg)
	if err != nil {
		return nil, err
	}
	reply, err := h.communicate(ctx, packet.Request(command, payload))
	if err != nil {
		return nil, err
	}
	switch reply.Type {
	case packet.CmdResponse:
		return h.codec.Deserialize(reply.Payload)
	case packet.CmdUnknown:
		return nil, &CommandUnknownError{Command: command}
	default:
		return nil, &SessionError{Op: "request " + command, Got: reply.Type, Want: packet.CmdResponse}
	}
}

// registerUnregister (un)subscribes event. Only registration maps EVENT_UNKNOWN to
// EventUnknownError; any other non-confirm reply is a SessionError. The matching
// subscription decrement belongs to Stream.finish, which drops the registration
// whatever the unregister reply was.
func (h *Handler) registerUnregister(ctx context.Context, event string, register bool) error {
	p, op := packet.UnregisterEvent(event), "unregister "+event
	if register {
		p, op = packet.RegisterEvent(event), "register "+event
	}
	reply, err := h.communicate(ctx, p)
	if err != nil {
		return err
	}
	if register && reply.Type == packet.EventUnknown {
		return &EventUnknownError{Event: event}
	}
	if reply.Type != packet.EventConfirm {
		return &SessionError{Op: op, Got: reply.Type, Want: packet.EventConfirm}
	}
	if register {
		h.recorder.ObserveSubscription(event, 1)
	}
	h.logger.Trace().Msgf("session.Handler.registerUnregister event=%q register=%t", event, register)
	return nil
}

func (h *Handler) serialize(msg *message.Message) ([]byte, error) {
	if msg == nil {
		return nil, nil
	}
	return h.codec.Serialize(msg)
}

func (h *Handler) communicate(ctx context.Context, p packet.Packet) (packet.Packet, error) {
	if err := h.send(ctx, p); err != nil {
		return packet.Packet{}, err
	}
	return h.receive(ctx)
}

func (h *Handler) send(ctx context.Context, p packet.Packet) error {
	body, err := p.Encode()
	if err != nil {
		return err
	}
	h.logger.Trace().Msgf("session.Handler.send type=%s name=%q bytes=%d", p.Type, p.Name, len(body))
	return h.transport.Send(ctx, body)
}

func (h *Handler) receive(ctx context.Context) (packet.Packet, error) {
	body, err := h.transport.Receive(ctx)
	if err != nil {
		return packet.Packet{}, err
	}
	p, err := packet.Parse(body)
	if err != nil {
		return packet.Packet{}, err
	}
	h.logger.Trace().Msgf("session.Handler.receive type=%s name=%q bytes=%d", p.Type, p.Name, len(body))
	return p, nil
}
