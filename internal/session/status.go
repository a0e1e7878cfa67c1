package session

import "fmt"

// Offline is reported as the current sub-server while none is joined.
const Offline = "Offline"

type Status int

const (
	Disconnected Status = iota
	Connecting
	Online
	JoiningSubServer
	SubServerJoined
)

func (s Status) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Online:
		return "online"
	case JoiningSubServer:
		return "joining sub-server"
	case SubServerJoined:
		return "sub-server joined"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// IsOnline reports whether a logged-in client handle is live.
func (s Status) IsOnline() bool {
	return s >= Online
}

// Snapshot is a consistent copy of the supervisor state for readers outside
// the loop goroutine.
type Snapshot struct {
	Status        Status
	SubServer     string
	Username      string
	SessionID     string
	OnlineMinutes int
	KickCount     int
	JoinErrors    int
	Connecting    bool
	Disposable    bool
}

// FormatOnlineTime renders minutes as "Xh Ymin".
func FormatOnlineTime(minutes int) string {
	return fmt.Sprintf("%dh %dmin", minutes/60, minutes%60)
}
