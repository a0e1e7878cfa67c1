// Package gameclient connects the bot to the game-protocol bridge over a
// WebSocket. The bridge speaks the game protocol; this package only moves
// binary protobuf frames (google.protobuf.Struct with a "type" field).
//
// Dialer implements session.Connector and every Client implements
// session.Client. Client events (ready, kicks, chat, private messages,
// sub-server changes, teleport requests) are handed to the emit callback
// from the read goroutine.
//
// Behaviour:
//   - Writes are serialised (mutex + write deadline).
//   - Keep-alive via websocket ping; a missing pong drops the connection.
//   - No reconnect. A lost connection emits a single session.End and fails
//     pending requests; reconnecting is up to the caller.
//
// Example:
//
//	d := &gameclient.Dialer{URL: "ws://127.0.0.1:8091/bot"}
//	c, err := d.Connect(ctx, creds, func(ev session.Event) { fmt.Printf("%T\n", ev) })
//	if err != nil { log.Fatal(err) }
//	defer c.Close()
//	_ = c.SendChat("Hallo!")
package gameclient
