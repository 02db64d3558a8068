package vici

import (
	"context"
	"io"

	"github.com/danmuck/vicictl/internal/config"
	"github.com/danmuck/vicictl/internal/protocol/message"
	"github.com/danmuck/vicictl/internal/protocol/session"
	"github.com/danmuck/vicictl/internal/transport"
)

// Session is a thin façade naming daemon operations.
type Session struct {
	handler *session.Handler
	closer  io.Closer
}

// New wraps an already open transport. Closing the Session closes t when it is an io.Closer.
func New(t session.Transport, opts ...session.Option) (*Session, error) {
	h, err := session.NewHandler(t, opts...)
	if err != nil {
		return nil, err
	}
	s := &Session{handler: h}
	if c, ok := t.(io.Closer); ok {
		s.closer = c
	}
	return s, nil
}

// Dial connects using cfg and returns a Session owning the connection.
func Dial(ctx context.Context, cfg config.Config, opts ...session.Option) (*Session, error) {
	conn, err := transport.Dial(ctx, cfg.Transport())
	if err != nil {
		return nil, err
	}
	s, err := New(conn, opts...)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *Session) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Call runs any single-shot command.
func (s *Session) Call(ctx context.Context, command string, msg *message.Message) (*message.Message, error) {
	return s.handler.Request(ctx, command, msg)
}

// CallStreamed runs any streamed command subscribed to event.
func (s *Session) CallStreamed(ctx context.Context, command, event string, msg *message.Message) (*session.Stream, error) {
	return s.handler.StreamedRequest(ctx, command, event, msg)
}

func (s *Session) checked(ctx context.Context, command string, msg *message.Message) (*message.Message, error) {
	res, err := s.handler.Request(ctx, command, msg)
	if err != nil {
		return nil, err
	}
	return CheckSuccess(command, res)
}

func (s *Session) Version(ctx context.Context) (*message.Message, error) {
	return s.Call(ctx, CmdVersion, nil)
}

func (s *Session) Stats(ctx context.Context) (*message.Message, error) {
	return s.Call(ctx, CmdStats, nil)
}

func (s *Session) ReloadSettings(ctx context.Context) error {
	_, err := s.checked(ctx, CmdReloadSettings, nil)
	return err
}

// Initiate starts a CHILD_SA (or IKE_SA) and streams control-log events.
func (s *Session) Initiate(ctx context.Context, sa *message.Message) (*session.Stream, error) {
	return s.CallStreamed(ctx, CmdInitiate, EventControlLog, sa)
}

// Terminate tears down SAs and streams control-log events.
func (s *Session) Terminate(ctx context.Context, sa *message.Message) (*session.Stream, error) {
	return s.CallStreamed(ctx, CmdTerminate, EventControlLog, sa)
}

func (s *Session) Rekey(ctx context.Context, sa *message.Message) (*message.Message, error) {
	return s.checked(ctx, CmdRekey, sa)
}

func (s *Session) Install(ctx context.Context, policy *message.Message) error {
	_, err := s.checked(ctx, CmdInstall, policy)
	return err
}

func (s *Session) Uninstall(ctx context.Context, policy *message.Message) error {
	_, err := s.checked(ctx, CmdUninstall, policy)
	return err
}

// ListSAs streams one list-sa event per IKE_SA.
func (s *Session) ListSAs(ctx context.Context, filter *message.Message) (*session.Stream, error) {
	return s.CallStreamed(ctx, CmdListSAs, EventListSA, filter)
}

func (s *Session) ListPolicies(ctx context.Context, filter *message.Message) (*session.Stream, error) {
	return s.CallStreamed(ctx, CmdListPolicies, EventListPolicy, filter)
}

func (s *Session) ListConns(ctx context.Context, filter *message.Message) (*session.Stream, error) {
	return s.CallStreamed(ctx, CmdListConns, EventListConn, filter)
}

func (s *Session) ListCerts(ctx context.Context, filter *message.Message) (*session.Stream, error) {
	return s.CallStreamed(ctx, CmdListCerts, EventListCert, filter)
}

// GetConns returns the names of loaded connections.
func (s *Session) GetConns(ctx context.Context) ([]string, error) {
	res, err := s.Call(ctx, CmdGetConns, nil)
	if err != nil {
		return nil, err
	}
	conns, _ := res.GetList("conns")
	return conns, nil
}

// LoadConn loads one connection; conn holds a single section named after it.
func (s *Session) LoadConn(ctx context.Context, conn *message.Message) error {
	_, err := s.checked(ctx, CmdLoadConn, conn)
	return err
}

func (s *Session) UnloadConn(ctx context.Context, name string) error {
	_, err := s.checked(ctx, CmdUnloadConn, message.New().Set("name", name))
	return err
}

func (s *Session) LoadCert(ctx context.Context, cert *message.Message) error {
	_, err := s.checked(ctx, CmdLoadCert, cert)
	return err
}

func (s *Session) LoadKey(ctx context.Context, key *message.Message) error {
	_, err := s.checked(ctx, CmdLoadKey, key)
	return err
}

func (s *Session) LoadShared(ctx context.Context, secret *message.Message) error {
	_, err := s.checked(ctx, CmdLoadShared, secret)
	return err
}

func (s *Session) ClearCreds(ctx context.Context) error {
	_, err := s.checked(ctx, CmdClearCreds, nil)
	return err
}

// LoadPool loads one pool; pool holds a single section named after it.
func (s *Session) LoadPool(ctx context.Context, pool *message.Message) error {
	_, err := s.checked(ctx, CmdLoadPool, pool)
	return err
}

func (s *Session) UnloadPool(ctx context.Context, name string) error {
	_, err := s.checked(ctx, CmdUnloadPool, message.New().Set("name", name))
	return err
}

func (s *Session) GetPools(ctx context.Context) (*message.Message, error) {
	return s.Call(ctx, CmdGetPools, nil)
}
