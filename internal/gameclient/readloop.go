package gameclient

import (
	"errors"
	"fmt"
	"log"

	"github.com/EgorLis/citybot/internal/session"
)

func (c *Client) readLoop() {
	var readErr error
	defer func() {
		close(c.done)
		c.failPending(errConnectionLost)
		c.stopPing()
		_ = c.conn.Close()
		if !c.closed.Load() && c.loggedIn() {
			c.emitEnd(readErr)
		}
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			readErr = err
			return
		}
		msg, err := decodeFrame(data)
		if err != nil {
			log.Printf("gameclient: %v", err)
			continue
		}

		switch strField(msg, "type") {
		case frameReady:
			name := strField(msg, "username")
			c.mu.Lock()
			c.user = name
			c.mu.Unlock()
			c.emit(session.Ready{Username: name})
			c.readyOnce.Do(func() { close(c.readyCh) })

		case frameFailed:
			text := strField(msg, "message")
			sentinel := session.ErrNetwork
			if strField(msg, "kind") == "auth" {
				sentinel = session.ErrAuth
			}
			select {
			case c.failCh <- fmt.Errorf("%w: %s", sentinel, text):
			default:
			}

		case frameResponse:
			seq := seqField(msg)
			c.mu.Lock()
			ch, ok := c.pending[seq]
			delete(c.pending, seq)
			c.mu.Unlock()
			if ok {
				ch <- result{msg: msg}
			}

		case frameKicked:
			c.emit(session.Kicked{Reason: strField(msg, "reason")})

		case frameEnd:
			var err error
			if reason := strField(msg, "reason"); reason != "" {
				err = errors.New(reason)
			}
			c.emitEnd(err)

		case framePM:
			c.emit(session.PrivateMessage{
				Rank:   strField(msg, "rank"),
				Sender: strField(msg, "sender"),
				Text:   strField(msg, "text"),
			})

		case frameChat:
			c.emit(session.ChatMessage{Text: strField(msg, "text")})

		case frameSubSrv:
			c.emit(session.SubServerChanged{Name: strField(msg, "name")})

		case frameTPA:
			c.emit(session.TeleportRequest{Name: strField(msg, "name"), Here: boolField(msg, "here")})

		case frameError:
			c.emit(session.LibraryError{Err: errors.New(strField(msg, "message"))})
		}
	}
}

func (c *Client) loggedIn() bool {
	select {
	case <-c.readyCh:
		return true
	default:
		return false
	}
}

// emitEnd reports the end of the connection at most once.
func (c *Client) emitEnd(err error) {
	c.endOnce.Do(func() {
		c.emit(session.End{Err: err})
	})
}
