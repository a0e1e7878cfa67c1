package gameclient

import (
	"context"
	"errors"
	"strings"
)

// JoinSubServer asks the bridge to move the bot to the named CityBuild and
// waits until it has arrived or ctx ends. The caller owns the timeout.
func (c *Client) JoinSubServer(ctx context.Context, name string) error {
	_, err := c.request(ctx, frameJoin, map[string]any{"name": name})
	return err
}

// SendCommand sends a slash command; the leading slash is optional.
func (c *Client) SendCommand(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.New("empty command")
	}
	if !strings.HasPrefix(text, "/") {
		text = "/" + text
	}
	return c.write(frameCommand, map[string]any{"text": text})
}

func (c *Client) SendChat(text string) error {
	return c.write(frameChat, map[string]any{"text": text})
}

func (c *Client) SendMsg(player, text string) error {
	return c.write(frameMsg, map[string]any{"to": player, "text": text})
}

// Players lists the players visible on the current server.
func (c *Client) Players(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.reqTimeout)
	defer cancel()
	msg, err := c.request(ctx, framePlayers, nil)
	if err != nil {
		return nil, err
	}
	return listField(msg, "players"), nil
}

// DropInventory drops every inventory slot.
func (c *Client) DropInventory(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.reqTimeout)
	defer cancel()
	_, err := c.request(ctx, frameDropInv, nil)
	return err
}
