package vici

import (
	"fmt"
	"strings"

	"github.com/danmuck/vicictl/internal/protocol/message"
)

// CommandError reports a command the daemon executed but reported as failed.
type CommandError struct {
	Command string
	Message string
}

func (e *CommandError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("vici: command %q failed", e.Command)
	}
	return fmt.Sprintf("vici: command %q failed: %s", e.Command, e.Message)
}

// CheckSuccess maps a success=no result to *CommandError. Results without a
// success key pass unchanged.
func CheckSuccess(command string, res *message.Message) (*message.Message, error) {
	v, ok := res.GetString("success")
	if !ok || strings.EqualFold(strings.TrimSpace(v), "yes") {
		return res, nil
	}
	errmsg, _ := res.GetString("errmsg")
	return nil, &CommandError{Command: command, Message: strings.TrimSpace(errmsg)}
}
