package gameclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/EgorLis/citybot/internal/session"
)

// Dialer opens bridge connections. It implements session.Connector.
type Dialer struct {
	URL              string
	Auth             string        // login flavour passed through to the bridge, e.g. "microsoft"
	HandshakeTimeout time.Duration // 0 = 10s
	PingInterval     time.Duration // 0 = 10s
	RequestTimeout   time.Duration // for players/dropinv; 0 = 10s
}

var errConnectionLost = errors.New("connection lost")

type result struct {
	msg *structpb.Struct
	err error
}

// Client is one logged-in bridge connection.
type Client struct {
	conn *websocket.Conn
	emit func(session.Event)

	reqTimeout time.Duration
	pingEvery  time.Duration

	seq     uint32
	mu      sync.Mutex
	pending map[uint32]chan result
	user    string

	wmu      sync.Mutex // serialises websocket writes
	pingStop chan struct{}

	readyCh   chan struct{}
	readyOnce sync.Once
	failCh    chan error
	done      chan struct{} // closed when readLoop exits

	closed    atomic.Bool
	closeOnce sync.Once
	endOnce   sync.Once
}

// Connect dials the bridge, sends the login frame and waits for the bridge
// to report the login outcome. Events are emitted from the read goroutine.
func (d *Dialer) Connect(ctx context.Context, creds session.Credentials, emit func(session.Event)) (session.Client, error) {
	c, err := d.dial(ctx, emit)
	if err != nil {
		return nil, err
	}

	err = c.write(frameLogin, map[string]any{
		"username": creds.Username,
		"password": creds.Password,
		"token":    creds.Token,
		"auth":     d.Auth,
	})
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("%w: send login: %v", session.ErrNetwork, err)
	}

	select {
	case <-c.readyCh:
		return c, nil
	case err := <-c.failCh:
		_ = c.Close()
		return nil, err
	case <-c.done:
		_ = c.Close()
		return nil, fmt.Errorf("%w: connection closed before login", session.ErrNetwork)
	case <-ctx.Done():
		_ = c.Close()
		return nil, fmt.Errorf("%w: %v", session.ErrNetwork, ctx.Err())
	}
}

func (c *Client) Username() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

// Close releases the connection. It may be called any number of times and
// does not wait for the read goroutine.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.closeConn()
	})
	return nil
}

func (c *Client) nextSeq() uint32 {
	return atomic.AddUint32(&c.seq, 1)
}

// request sends a frame carrying a fresh seq and waits for the matching
// response frame.
func (c *Client) request(ctx context.Context, typ string, fields map[string]any) (*structpb.Struct, error) {
	seq := c.nextSeq()
	ch := make(chan result, 1)

	c.mu.Lock()
	c.pending[seq] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, seq)
		c.mu.Unlock()
	}()

	if fields == nil {
		fields = map[string]any{}
	}
	fields["seq"] = float64(seq)
	if err := c.write(typ, fields); err != nil {
		return nil, err
	}

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, r.err
		}
		return r.msg, responseError(r.msg)
	case <-c.done:
		return nil, errConnectionLost
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// bridgeError carries the error text of a response frame verbatim.
type bridgeError struct {
	kind string
	text string
}

func (e *bridgeError) Error() string { return e.text }

func (e *bridgeError) Is(target error) bool {
	return e.kind == "no_such_subserver" && target == session.ErrNoSuchSubServer
}

func responseError(msg *structpb.Struct) error {
	text := strField(msg, "error")
	if text == "" {
		return nil
	}
	return &bridgeError{kind: strField(msg, "kind"), text: text}
}

func (c *Client) failPending(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for seq, ch := range c.pending {
		select {
		case ch <- result{err: err}:
		default:
		}
		delete(c.pending, seq)
	}
}
