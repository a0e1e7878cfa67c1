package session

import (
	"context"
	"errors"
	"strings"
)

// Cause is the classified reason of a disconnect.
type Cause int

const (
	CauseGeneric Cause = iota
	CauseMaintenance
	CauseTooManyLogins
	CauseConnectionLost
)

func (c Cause) String() string {
	switch c {
	case CauseMaintenance:
		return "maintenance"
	case CauseTooManyLogins:
		return "too_many_logins"
	case CauseConnectionLost:
		return "connection_lost"
	}
	return "generic"
}

// Kick reasons sent by the server, compared after trimming.
const (
	MaintenanceKickMessage   = "Der Server wird heruntergefahren."
	TooManyLoginsKickMessage = "Du bist schon zu oft online!"
)

// NoSuchSubServerPrefix starts the error text the client library returns
// when a CityBuild name is unknown.
const NoSuchSubServerPrefix = "There is no CityBuild named"

// ClassifyKick maps a kick reason to its Cause.
func ClassifyKick(reason string) Cause {
	switch strings.TrimSpace(reason) {
	case MaintenanceKickMessage:
		return CauseMaintenance
	case TooManyLoginsKickMessage:
		return CauseTooManyLogins
	}
	return CauseGeneric
}

type JoinOutcome int

const (
	JoinSuccess JoinOutcome = iota
	JoinTimeout
	JoinNamedError
	JoinOther
)

func (o JoinOutcome) String() string {
	switch o {
	case JoinSuccess:
		return "success"
	case JoinTimeout:
		return "timeout"
	case JoinNamedError:
		return "no_such_subserver"
	}
	return "error"
}

// ClassifyJoinError maps the settled result of one join attempt.
func ClassifyJoinError(err error) JoinOutcome {
	switch {
	case err == nil:
		return JoinSuccess
	case errors.Is(err, ErrJoinTimeout), errors.Is(err, context.DeadlineExceeded):
		return JoinTimeout
	case errors.Is(err, ErrNoSuchSubServer), strings.HasPrefix(err.Error(), NoSuchSubServerPrefix):
		return JoinNamedError
	}
	return JoinOther
}
