package session

import (
	"errors"
	"fmt"

	"github.com/danmuck/vicictl/internal/protocol/packet"
)

var ErrNilTransport = errors.New("session: nil transport")

// SessionError reports a reply whose type does not match the exchange state.
type SessionError struct {
	Op   string
	Got  packet.Type
	Want packet.Type
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session: unexpected response type %s to %s, expected %s", e.Got, e.Op, e.Want)
}

// EventUnknownError reports that the server rejected an event registration.
type EventUnknownError struct {
	Event string
}

func (e *EventUnknownError) Error() string {
	return fmt.Sprintf("session: unknown event type %q", e.Event)
}

// CommandUnknownError reports a CMD_UNKNOWN reply. It unwraps to a *SessionError.
type CommandUnknownError struct {
	Command string
}

func (e *CommandUnknownError) Error() string {
	return fmt.Sprintf("session: unknown command %q", e.Command)
}

func (e *CommandUnknownError) Unwrap() error {
	return &SessionError{Op: "request " + e.Command, Got: packet.CmdUnknown, Want: packet.CmdResponse}
}
