package session

import "errors"

var (
	// ErrAuth means the account credentials were rejected. Never retried.
	ErrAuth = errors.New("authentication failed")
	// ErrNetwork means the game server could not be reached.
	ErrNetwork = errors.New("network error")

	ErrJoinTimeout     = errors.New("timed out while connecting to CityBuild")
	ErrNoSuchSubServer = errors.New("there is no such CityBuild")

	ErrSubServerGivenUp = errors.New("could not connect to CityBuild")
	ErrKickLimit        = errors.New("kick limit reached")
	ErrTooManyLogins    = errors.New("account is logged in too often")
	ErrDisposableEnded  = errors.New("disposable session ended")
	ErrServerShutdown   = errors.New("server is shutting down")

	// ErrUnclassified wraps library failures the supervisor has no recovery
	// for. They end the run.
	ErrUnclassified = errors.New("unclassified library error")

	ErrAlreadyConnecting = errors.New("already connecting to CityBuild")
	ErrNotConnected      = errors.New("bot is not connected to server")
	ErrStopped           = errors.New("supervisor stopped")
)
