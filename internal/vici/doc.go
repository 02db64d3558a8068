// Package vici exposes named daemon operations over a session.Handler.
//
// Single-shot commands return the response document. Streamed commands return a
// *session.Stream of events; callers range over it and then read Result, or Close
// it early. The package adds no protocol logic beyond mapping success=no replies
// to *CommandError.
package vici
