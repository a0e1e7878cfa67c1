package gameclient

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/EgorLis/citybot/internal/session"
)

const writeWait = 5 * time.Second

func (d *Dialer) dial(ctx context.Context, emit func(session.Event)) (*Client, error) {
	hs := d.HandshakeTimeout
	if hs <= 0 {
		hs = 10 * time.Second
	}
	ws := websocket.Dialer{HandshakeTimeout: hs}
	conn, _, err := ws.DialContext(ctx, d.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", session.ErrNetwork, d.URL, err)
	}
	conn.SetReadLimit(1 << 20)

	c := &Client{
		conn:       conn,
		emit:       emit,
		reqTimeout: orDefault(d.RequestTimeout, 10*time.Second),
		pingEvery:  orDefault(d.PingInterval, 10*time.Second),
		pending:    make(map[uint32]chan result),
		readyCh:    make(chan struct{}),
		failCh:     make(chan error, 1),
		done:       make(chan struct{}),
	}

	// the bridge answers pings; three missed pongs drop the connection
	deadline := 3 * c.pingEvery
	_ = conn.SetReadDeadline(time.Now().Add(deadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(deadline))
	})
	c.startPing()

	go c.readLoop()
	return c, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

func (c *Client) write(typ string, fields map[string]any) error {
	if c.closed.Load() {
		return session.ErrNotConnected
	}
	data, err := encodeFrame(typ, fields)
	if err != nil {
		return err
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.BinaryMessage, data)
}

// closeConn sends a close frame and drops the socket. The read goroutine
// notices and exits.
func (c *Client) closeConn() {
	c.stopPing()
	c.wmu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "closing"),
		time.Now().Add(500*time.Millisecond))
	c.wmu.Unlock()
	_ = c.conn.Close()
}

func (c *Client) startPing() {
	c.pingStop = make(chan struct{})
	stop := c.pingStop
	go func() {
		t := time.NewTicker(c.pingEvery)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				c.wmu.Lock()
				_ = c.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait))
				c.wmu.Unlock()
			case <-stop:
				return
			}
		}
	}()
}

func (c *Client) stopPing() {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.pingStop != nil {
		close(c.pingStop)
		c.pingStop = nil
	}
}
