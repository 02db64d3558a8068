// Package session drives VICI exchanges over one ordered frame channel.
//
// Ownership boundary:
// - single-shot command exchanges (request -> response)
// - event registration lifecycle (register/unregister confirm handling)
// - streamed command exchanges (register -> request -> events -> response -> unregister)
//
// A Handler serves one exchange at a time. A Stream holds the handler until it
// finishes, either by reading the terminal response or by Close, which drains the
// remaining frames and unregisters before returning.
package session
