// Package transport carries length-prefixed VICI frames over a stream socket.
package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/vicictl/internal/protocol/frame"
	"github.com/rs/zerolog/log"
)

var (
	ErrClosed         = errors.New("transport: closed")
	ErrAddressMissing = errors.New("transport: address required")
)

// Conn is a frame transport over one net.Conn.
type Conn struct {
	cfg  Config
	conn net.Conn
	r    *bufio.Reader

	closeOnce sync.Once
	closed    chan struct{}
}

// Dial connects to the configured unix or tcp endpoint.
func Dial(ctx context.Context, cfg Config) (*Conn, error) {
	network := strings.TrimSpace(cfg.Network)
	if network == "" {
		network = DefaultNetwork
	}
	addr := strings.TrimSpace(cfg.Address)
	if addr == "" {
		return nil, ErrAddressMissing
	}
	dialer := net.Dialer{Timeout: cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s %s: %w", network, addr, err)
	}
	log.Debug().Msgf("transport.Dial network=%s addr=%q", network, addr)
	return New(conn, cfg), nil
}

// New wraps an established connection.
func New(conn net.Conn, cfg Config) *Conn {
	return &Conn{
		cfg:    cfg,
		conn:   conn,
		r:      bufio.NewReader(conn),
		closed: make(chan struct{}),
	}
}

func (c *Conn) Send(ctx context.Context, body []byte) error {
	if c.isClosed() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_ = c.conn.SetWriteDeadline(deadline(ctx, c.cfg.WriteTimeout))
	return frame.WriteFrame(c.conn, body, c.cfg.Limits)
}

func (c *Conn) Receive(ctx context.Context) ([]byte, error) {
	if c.isClosed() {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_ = c.conn.SetReadDeadline(deadline(ctx, c.cfg.ReadTimeout))
	stop := context.AfterFunc(ctx, func() {
		// Unblock a pending read; the conn is unusable at an unknown boundary afterwards.
		_ = c.conn.SetReadDeadline(time.Unix(1, 0))
	})
	defer stop()
	body, err := frame.ReadFrame(c.r, c.cfg.Limits)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.Join(ctxErr, err)
		}
		return nil, err
	}
	return body, nil
}

func (c *Conn) Close() error {
	err := ErrClosed
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.conn.Close()
	})
	return err
}

func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

func (c *Conn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// deadline picks the earlier of the context deadline and now+timeout.
// The zero time clears any deadline.
func deadline(ctx context.Context, timeout time.Duration) time.Time {
	var d time.Time
	if timeout > 0 {
		d = time.Now().Add(timeout)
	}
	if cd, ok := ctx.Deadline(); ok && (d.IsZero() || cd.Before(d)) {
		d = cd
	}
	return d
}
