package vicitest

import (
	"bufio"
	"errors"
	"net"
	"sync"
	"testing"

	"github.com/danmuck/vicictl/internal/protocol/frame"
	"github.com/danmuck/vicictl/internal/protocol/message"
	"github.com/danmuck/vicictl/internal/protocol/packet"
)

// CommandFunc answers one command: events are emitted on the command's stream
// (when the client registered it) before the response.
type CommandFunc func(req *message.Message) (events []*message.Message, resp *message.Message)

type command struct {
	stream string
	fn     CommandFunc
}

// Server is a minimal in-process daemon speaking frames over tcp.
type Server struct {
	ln net.Listener

	mu       sync.Mutex
	commands map[string]command
	streams  map[string]bool
	log      []packet.Packet
	conns    map[net.Conn]struct{}
	closed   bool

	wg sync.WaitGroup
}

// NewServer listens on a loopback port and stops when the test ends.
func NewServer(tb testing.TB) *Server {
	tb.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		tb.Fatalf("vicitest: listen: %v", err)
	}
	s := newServer(ln)
	tb.Cleanup(s.Close)
	return s
}

func newServer(ln net.Listener) *Server {
	s := &Server{
		ln:       ln,
		commands: make(map[string]command),
		streams:  make(map[string]bool),
		conns:    make(map[net.Conn]struct{}),
	}
	s.wg.Add(1)
	go s.acceptLoop()
	return s
}

func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Handle registers a single-shot command.
func (s *Server) Handle(name string, fn CommandFunc) {
	s.HandleStreamed(name, "", fn)
}

// HandleStreamed registers a command whose events go to stream.
func (s *Server) HandleStreamed(name, stream string, fn CommandFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands[name] = command{stream: stream, fn: fn}
	if stream != "" {
		s.streams[stream] = true
	}
}

// Received returns every packet the server read, across connections.
func (s *Server) Received() []packet.Packet {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]packet.Packet, len(s.log))
	copy(out, s.log)
	return out
}

func (s *Server) Close() {
	_ = s.ln.Close()
	s.mu.Lock()
	s.closed = true
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			_ = conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.wg.Add(1)
		s.mu.Unlock()
		go func() {
			defer s.wg.Done()
			defer func() {
				s.mu.Lock()
				delete(s.conns, conn)
				s.mu.Unlock()
				_ = conn.Close()
			}()
			_ = s.serve(conn)
		}()
	}
}

func (s *Server) serve(conn net.Conn) error {
	r := bufio.NewReader(conn)
	registered := make(map[string]bool)
	limits := frame.DefaultLimits()
	write := func(p packet.Packet) error {
		body, err := p.Encode()
		if err != nil {
			return err
		}
		return frame.WriteFrame(conn, body, limits)
	}
	for {
		body, err := frame.ReadFrame(r, limits)
		if err != nil {
			return err
		}
		p, err := packet.Parse(body)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.log = append(s.log, p)
		cmd, known := s.commands[p.Name]
		streamKnown := s.streams[p.Name]
		s.mu.Unlock()

		switch p.Type {
		case packet.EventRegister:
			if !streamKnown {
				err = write(packet.Unknown())
				break
			}
			registered[p.Name] = true
			err = write(packet.Confirm())
		case packet.EventUnregister:
			if !registered[p.Name] {
				err = write(packet.Unknown())
				break
			}
			delete(registered, p.Name)
			err = write(packet.Confirm())
		case packet.CmdRequest:
			if !known {
				err = write(packet.CommandUnknown())
				break
			}
			err = s.answer(cmd, p.Payload, registered, write)
		default:
			err = errors.New("vicitest: unexpected client packet " + p.Type.String())
		}
		if err != nil {
			return err
		}
	}
}

func (s *Server) answer(cmd command, payload []byte, registered map[string]bool, write func(packet.Packet) error) error {
	req, err := message.Decode(payload)
	if err != nil {
		return err
	}
	events, resp := cmd.fn(req)
	if cmd.stream != "" && registered[cmd.stream] {
		for _, ev := range events {
			if err := write(packet.EventData(cmd.stream, mustEncode(ev))); err != nil {
				return err
			}
		}
	}
	return write(packet.Response(mustEncode(resp)))
}
