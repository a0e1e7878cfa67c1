package session

import "context"

// Credentials is the login material for one account. A disposable credential
// logs in with a single-use Token and is never reconnected.
type Credentials struct {
	Username   string
	Password   string
	Token      string
	Disposable bool
}

// CredentialSource is asked for credentials before every connect.
type CredentialSource interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// StaticCredentials always returns itself.
type StaticCredentials Credentials

func (c StaticCredentials) Credentials(context.Context) (Credentials, error) {
	return Credentials(c), nil
}

// Connector opens a game connection. emit receives every event of the new
// handle; the supervisor drops events from handles it has released.
// Login rejections must wrap ErrAuth, unreachable servers ErrNetwork.
// ctx bounds the connect attempt only; it is cancelled once the handle has
// been handed over, and the Client stays open until Close.
type Connector interface {
	Connect(ctx context.Context, creds Credentials, emit func(Event)) (Client, error)
}

// Client is a live game connection. Implementations must be safe for
// concurrent use.
type Client interface {
	Username() string
	JoinSubServer(ctx context.Context, name string) error
	SendCommand(text string) error
	SendChat(text string) error
	SendMsg(player, text string) error
	Players(ctx context.Context) ([]string, error)
	DropInventory(ctx context.Context) error
	Close() error
}

// Event is anything the loop goroutine consumes.
type Event interface {
	isEvent()
}

// Events emitted by a Client.
type (
	Ready struct {
		Username string
	}
	Kicked struct {
		Reason string
	}
	End struct {
		Err error
	}
	PrivateMessage struct {
		Rank   string
		Sender string
		Text   string
	}
	ChatMessage struct {
		Text string
	}
	SubServerChanged struct {
		Name string
	}
	TeleportRequest struct {
		Name string
		Here bool
	}
	// LibraryError reports a client failure outside the classified causes.
	LibraryError struct {
		Err error
	}
)

func (Ready) isEvent()            {}
func (Kicked) isEvent()           {}
func (End) isEvent()              {}
func (PrivateMessage) isEvent()   {}
func (ChatMessage) isEvent()      {}
func (SubServerChanged) isEvent() {}
func (TeleportRequest) isEvent()  {}
func (LibraryError) isEvent()     {}

// Internal loop events.
type (
	connectResult struct {
		client Client
		err    error
	}
	joinResult struct {
		seq uint64
		err error
	}
	retryDue struct {
		seq uint64
	}
	minuteTick    struct{}
	postJoinDue   struct{ commands []string }
	commandRunner struct{ fn func() }
)

func (connectResult) isEvent() {}
func (joinResult) isEvent()    {}
func (retryDue) isEvent()      {}
func (minuteTick) isEvent()    {}
func (postJoinDue) isEvent()   {}
func (commandRunner) isEvent() {}

// Hooks receive the non-lifecycle client events on the loop goroutine.
// They must not block and must not call the waiting command methods
// (SwitchSubServer, ReloadSettings); Stop and the Send* helpers are fine.
type Hooks struct {
	OnPrivateMessage  func(PrivateMessage)
	OnChat            func(ChatMessage)
	OnTeleportRequest func(TeleportRequest)
}
