// Package session drives the lifecycle of one bot session on the game
// server: login, joining the CityBuild sub-server, reacting to kicks and
// lost connections, and deciding between retry, backoff and exit.
//
// All state transitions happen on a single loop goroutine (Supervisor.Run).
// Events coming from the game client, timers and the operator are posted to
// that loop and handled one at a time by dispatch, so a reload or a manual
// sub-server switch never interleaves with a retry-counter update.
//
// Lifecycle:
//   - New(Options{...}) with a Connector, a CredentialSource and a
//     SettingsSource.
//   - Run(ctx) blocks until the session reaches a terminal state and returns
//     the cause (nil for an operator stop).
//   - SwitchSubServer, ReloadSettings, Stop and the Send* helpers may be
//     called from any goroutine while Run is active.
//
// Example:
//
//	sup := session.New(session.Options{
//	    Connector:   dialer,
//	    Credentials: creds,
//	    Settings:    store,
//	    Logger:      logger,
//	})
//	if err := sup.Run(ctx); err != nil {
//	    log.Printf("bot stopped: %v", err)
//	}
package session
