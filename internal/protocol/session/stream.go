package session

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/danmuck/vicictl/internal/protocol/message"
	"github.com/danmuck/vicictl/internal/protocol/packet"
)

// Stream is the lazy event sequence of one streamed exchange.
//
// A Stream owns its handler until it finishes. It finishes when Next reads the
// terminal CMD_RESPONSE, when an error ends the exchange, or when Close drains the
// remaining frames. In every case the event registration is released exactly once
// before the handler is handed back.
type Stream struct {
	h       *Handler
	ctx     context.Context
	command string
	event   string
	start   time.Time

	registered bool
	cancelled  bool
	done       bool
	pending    error

	cur       *message.Message
	result    *message.Message
	err       error
	delivered int
	discarded int
}

// StreamedRequest registers for event, issues command and returns the event stream.
// If registration fails nothing is sent and no cleanup is needed. Callers must read
// the stream to completion or call Close (Result does both).
func (h *Handler) StreamedRequest(ctx context.Context, command, event string, msg *message.Message) (*Stream, error) {
	h.mu.Lock()
	s := &Stream{
		h:       h,
		ctx:     ctx,
		command: command,
		event:   event,
		start:   time.Now(),
	}

	payload, err := h.serialize(msg)
	if err != nil {
		s.finish(err)
		return nil, err
	}
	if err := h.registerUnregister(ctx, event, true); err != nil {
		s.finish(err)
		return nil, err
	}
	s.registered = true

	if err := h.send(ctx, packet.Request(command, payload)); err != nil {
		s.finish(err)
		return nil, s.err
	}
	h.logger.Debug().Msgf("session.Handler.StreamedRequest command=%q event=%q started", command, event)
	return s, nil
}

// Next advances to the next event. It returns false once the exchange is finished;
// Err then reports how it ended.
func (s *Stream) Next() bool {
	if s.done {
		return false
	}
	for {
		p, err := s.h.receive(s.ctx)
		if err != nil {
			s.finish(err)
			return false
		}
		switch p.Type {
		case packet.Event:
			if s.cancelled {
				s.discarded++
				s.h.recorder.ObserveEvent(s.event, false)
				continue
			}
			ev, err := s.h.codec.Deserialize(p.Payload)
			if err != nil {
				// The frame boundary is intact: drain to the response, then fail.
				s.pending = fmt.Errorf("session: event %q: %w", s.event, err)
				s.cancelled = true
				s.discarded++
				continue
			}
			s.cur = ev
			s.delivered++
			s.h.recorder.ObserveEvent(s.event, true)
			return true
		case packet.CmdResponse:
			res, err := s.h.codec.Deserialize(p.Payload)
			if err != nil {
				s.finish(err)
				return false
			}
			s.result = res
			s.finish(nil)
			return false
		case packet.CmdUnknown:
			s.finish(&CommandUnknownError{Command: s.command})
			return false
		default:
			s.finish(&SessionError{Op: "request " + s.command, Got: p.Type, Want: packet.CmdResponse})
			return false
		}
	}
}

// Event returns the event read by the last successful Next.
func (s *Stream) Event() *message.Message {
	return s.cur
}

// Err returns the error that ended the stream, if any.
func (s *Stream) Err() error {
	return s.err
}

// Close abandons the stream. Remaining events are read and discarded up to the
// terminal response so the connection stays at a frame boundary, then the event
// registration is released. Close is idempotent and returns Err.
func (s *Stream) Close() error {
	if !s.done {
		s.cancelled = true
		s.Next()
	}
	return s.err
}

// Result returns the final command result, closing the stream first if needed.
func (s *Stream) Result() (*message.Message, error) {
	if err := s.Close(); err != nil {
		return nil, err
	}
	return s.result, nil
}

// All yields events in wire order. Leaving the loop early closes the stream.
func (s *Stream) All() iter.Seq[*message.Message] {
	return func(yield func(*message.Message) bool) {
		defer s.Close()
		for s.Next() {
			if !yield(s.cur) {
				return
			}
		}
	}
}

// Delivered is the number of events handed to the consumer.
func (s *Stream) Delivered() int {
	return s.delivered
}

// Discarded is the number of events read but dropped after cancellation.
func (s *Stream) Discarded() int {
	return s.discarded
}

// Cancelled reports whether the stream was abandoned before its response.
func (s *Stream) Cancelled() bool {
	return s.cancelled
}

func (s *Stream) finish(err error) {
	if s.done {
		return
	}
	s.done = true
	s.cur = nil
	if err == nil && s.pending != nil {
		err = s.pending
	}
	if s.registered {
		s.registered = false
		uerr := s.h.registerUnregister(s.ctx, s.event, false)
		s.h.recorder.ObserveSubscription(s.event, -1)
		if uerr != nil {
			uerr = fmt.Errorf("session: unregister %q: %w", s.event, uerr)
			if err == nil {
				err = uerr
			} else {
				err = errors.Join(err, uerr)
			}
		}
	}
	s.err = err
	elapsed := time.Since(s.start)
	s.h.recorder.ObserveExchange(s.command, KindStreamed, outcomeOf(err, s.cancelled), elapsed)
	s.h.logger.Debug().Msgf(
		"session.Stream.finish command=%q event=%q delivered=%d discarded=%d cancelled=%t ok=%t elapsed=%s",
		s.command, s.event, s.delivered, s.discarded, s.cancelled, err == nil, elapsed,
	)
	s.h.mu.Unlock()
}
