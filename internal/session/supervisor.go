package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Options struct {
	Connector   Connector
	Credentials CredentialSource
	Settings    SettingsSource
	Logger      Logger
	Clock       Clock
	Hooks       Hooks
	Observer    Observer
	Recorder    Recorder
	// Account names the account in session records.
	Account string
}

type envelope struct {
	gen uint64
	ev  Event
}

// Supervisor owns the single live session of the process.
type Supervisor struct {
	connector Connector
	creds     CredentialSource
	source    SettingsSource
	log       Logger
	clock     Clock
	hooks     Hooks
	observer  Observer
	recorder  Recorder
	account   string

	events chan envelope
	done   chan struct{}
	ctx    context.Context

	// written by the loop goroutine under mu, read anywhere under mu
	mu            sync.Mutex
	settings      Settings
	client        Client
	status        Status
	subServer     string
	username      string
	sessionID     string
	credential    Credentials
	kickCount     int
	joinErrors    int
	onlineMinutes int
	connecting    bool

	// loop goroutine only
	gen           uint64
	early         []Event
	connectCancel context.CancelFunc
	joinCancel    func()
	joinSeq       uint64
	joinTarget    string
	joinManual    bool
	joinAttempts  int
	retrySeq      uint64
	ticker        Timer
	postJoin      Timer
	retry         Timer
	onlineSince   time.Time
	sessionBase   int
	lastCause     string
	exited        bool
	terminal      error
}

func New(opts Options) *Supervisor {
	s := &Supervisor{
		connector: opts.Connector,
		creds:     opts.Credentials,
		source:    opts.Settings,
		log:       opts.Logger,
		clock:     opts.Clock,
		hooks:     opts.Hooks,
		observer:  opts.Observer,
		recorder:  opts.Recorder,
		account:   opts.Account,
		events:    make(chan envelope, 64),
		done:      make(chan struct{}),
		ctx:       context.Background(),
		subServer: Offline,
	}
	if s.source == nil {
		s.source = StaticSettings{}
	}
	if s.log == nil {
		s.log = nopLogger{}
	}
	if s.clock == nil {
		s.clock = realClock{}
	}
	if s.observer == nil {
		s.observer = nopObserver{}
	}
	s.settings = s.source.Settings().normalize()
	return s
}

// Run starts the first session and processes events until a terminal state
// is reached or ctx is cancelled. It returns the terminal cause, or nil when
// the bot was stopped by the operator. Run must be called once.
func (s *Supervisor) Run(ctx context.Context) error {
	s.ctx = ctx
	s.start()
	for !s.exited {
		select {
		case env := <-s.events:
			s.dispatch(env)
		case <-ctx.Done():
			s.exit(nil)
		}
	}
	close(s.done)
	return s.terminal
}

func (s *Supervisor) post(gen uint64, ev Event) bool {
	select {
	case s.events <- envelope{gen: gen, ev: ev}:
		return true
	case <-s.done:
		return false
	}
}

func (s *Supervisor) dispatch(env envelope) {
	if cr, ok := env.ev.(connectResult); ok && cr.client != nil && (s.exited || env.gen != s.gen) {
		_ = cr.client.Close()
		return
	}
	if s.exited {
		return
	}
	switch ev := env.ev.(type) {
	case commandRunner:
		ev.fn()
		return
	case retryDue:
		if ev.seq == s.retrySeq && s.retry != nil {
			s.retry = nil
			s.start()
		}
		return
	}
	if env.gen != s.gen {
		return
	}
	if _, ok := env.ev.(connectResult); !ok && s.client == nil {
		// the handle has not been returned yet
		s.early = append(s.early, env.ev)
		return
	}
	s.handle(env.ev)
}

func (s *Supervisor) handle(ev Event) {
	switch ev := ev.(type) {
	case connectResult:
		s.onConnectResult(ev)
	case Ready:
		s.onReady(ev)
	case Kicked:
		s.log.Info("Got kicked from the server: %s", ev.Reason)
		s.onDisconnect(ClassifyKick(ev.Reason))
	case End:
		if ev.Err != nil {
			s.log.Info("Connection to the server lost: %v", ev.Err)
		} else {
			s.log.Info("Session ended.")
		}
		s.onDisconnect(CauseConnectionLost)
	case joinResult:
		s.onJoinResult(ev)
	case minuteTick:
		s.onTick()
	case postJoinDue:
		s.sendCommands(ev.commands)
	case SubServerChanged:
		s.onSubServerChanged(ev)
	case PrivateMessage:
		if s.hooks.OnPrivateMessage != nil {
			s.hooks.OnPrivateMessage(ev)
		}
	case ChatMessage:
		if s.hooks.OnChat != nil {
			s.hooks.OnChat(ev)
		}
	case TeleportRequest:
		if s.hooks.OnTeleportRequest != nil {
			s.hooks.OnTeleportRequest(ev)
		}
	case LibraryError:
		s.log.Error("Unexpected client error: %v", ev.Err)
		s.exit(fmt.Errorf("%w: %v", ErrUnclassified, ev.Err))
	}
}

func (s *Supervisor) start() {
	creds, err := s.creds.Credentials(s.ctx)
	if err != nil {
		s.log.Error("Couldn't load credentials: %v", err)
		s.exit(fmt.Errorf("load credentials: %w", err))
		return
	}

	s.gen++
	gen := s.gen
	s.lastCause = ""
	s.mu.Lock()
	s.status = Connecting
	s.subServer = Offline
	s.credential = creds
	s.sessionID = uuid.NewString()
	s.mu.Unlock()

	s.observer.SessionStarted()
	s.log.Info("Connecting to server...")

	ctx, cancel := context.WithCancel(s.ctx)
	s.connectCancel = cancel
	emit := func(ev Event) { s.post(gen, ev) }
	go func() {
		c, err := s.connector.Connect(ctx, creds, emit)
		if !s.post(gen, connectResult{client: c, err: err}) && c != nil {
			_ = c.Close()
		}
	}()
}

func (s *Supervisor) onConnectResult(ev connectResult) {
	if s.connectCancel != nil {
		s.connectCancel()
		s.connectCancel = nil
	}
	if ev.err != nil {
		s.log.Error("An error occurred: %v", ev.err)
		s.exit(ev.err)
		return
	}

	s.mu.Lock()
	s.client = ev.client
	s.username = ev.client.Username()
	s.mu.Unlock()

	gen := s.gen
	early := s.early
	s.early = nil
	for _, e := range early {
		if s.exited || s.gen != gen {
			return
		}
		s.handle(e)
	}
}

func (s *Supervisor) onReady(ev Ready) {
	if s.status.IsOnline() {
		return
	}
	name := ev.Username
	if name == "" {
		name = s.client.Username()
	}
	s.mu.Lock()
	s.status = Online
	s.subServer = Offline
	s.username = name
	s.mu.Unlock()

	s.onlineSince = s.clock.Now()
	s.sessionBase = s.onlineMinutes
	s.scheduleTick()
	s.observer.SessionOnline(true)

	target := s.settings.SubServer
	if target == "" {
		s.log.Info("Connected as %s.", name)
		return
	}
	s.log.Info("Connected as %s. Trying to connect to CityBuild...", name)
	_ = s.beginJoin(target, false)
}

func (s *Supervisor) scheduleTick() {
	gen := s.gen
	s.ticker = s.clock.AfterFunc(time.Minute, func() { s.post(gen, minuteTick{}) })
}

func (s *Supervisor) onTick() {
	s.ticker = nil
	if !s.status.IsOnline() {
		return
	}
	s.mu.Lock()
	s.onlineMinutes++
	s.mu.Unlock()
	s.observer.OnlineMinute()
	s.scheduleTick()
}

func (s *Supervisor) onSubServerChanged(ev SubServerChanged) {
	if s.status != SubServerJoined || ev.Name == "" {
		return
	}
	s.mu.Lock()
	s.subServer = ev.Name
	s.mu.Unlock()
}

// onDisconnect applies the disconnect policy. Exactly one of retry or exit
// follows every call.
func (s *Supervisor) onDisconnect(cause Cause) {
	s.observer.Disconnected(cause)
	s.lastCause = cause.String()

	switch {
	case cause == CauseMaintenance:
		s.stopBot()
		if !s.settings.ReconnectAfterRestart {
			s.exit(ErrServerShutdown)
			return
		}
		if s.credential.Disposable {
			s.exit(ErrDisposableEnded)
			return
		}
		s.scheduleRetry(s.settings.Policy.RestartBackoff)
	case cause == CauseTooManyLogins:
		s.exit(ErrTooManyLogins)
	case s.credential.Disposable:
		s.exit(ErrDisposableEnded)
	default:
		s.mu.Lock()
		s.kickCount++
		n := s.kickCount
		s.mu.Unlock()
		limit := s.settings.Policy.ServerKickLimit
		if n < limit {
			s.stopBot()
			s.scheduleRetry(s.settings.Policy.KickBackoff)
			return
		}
		s.log.Error("Got kicked from the server %d times.", limit)
		s.exit(fmt.Errorf("%w (%d)", ErrKickLimit, limit))
	}
}

func (s *Supervisor) scheduleRetry(d time.Duration) {
	s.retrySeq++
	seq := s.retrySeq
	s.log.Info("Reconnecting in %s...", d)
	s.retry = s.clock.AfterFunc(d, func() { s.post(0, retryDue{seq: seq}) })
}

// stopBot releases the client handle and every timer of the current session.
// Calling it again is a no-op.
func (s *Supervisor) stopBot() {
	if s.connectCancel != nil {
		s.connectCancel()
		s.connectCancel = nil
	}
	if s.joinCancel != nil {
		s.joinCancel()
		s.joinCancel = nil
	}
	stopTimer(&s.ticker)
	stopTimer(&s.postJoin)
	stopTimer(&s.retry)
	s.early = nil
	s.gen++

	s.mu.Lock()
	client := s.client
	s.client = nil
	s.status = Disconnected
	s.subServer = Offline
	s.connecting = false
	s.joinErrors = 0
	s.mu.Unlock()

	if client != nil {
		if err := client.Close(); err != nil {
			s.log.Error("Couldn't close connection: %v", err)
		}
	}
	s.recordSession()
}

func (s *Supervisor) recordSession() {
	if s.onlineSince.IsZero() {
		return
	}
	rec := SessionRecord{
		ID:            s.sessionID,
		Account:       s.account,
		Started:       s.onlineSince,
		Ended:         s.clock.Now(),
		OnlineMinutes: s.onlineMinutes - s.sessionBase,
		Cause:         s.lastCause,
	}
	s.onlineSince = time.Time{}
	s.observer.SessionOnline(false)
	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordSession(rec); err != nil {
		s.log.Error("Couldn't record session: %v", err)
	}
}

// exit is the single terminal transition.
func (s *Supervisor) exit(cause error) {
	if s.exited {
		return
	}
	if s.lastCause == "" {
		s.lastCause = "stopped"
		if cause != nil {
			s.lastCause = cause.Error()
		}
	}
	s.stopBot()
	s.exited = true
	s.terminal = cause

	summary := "Online time: " + FormatOnlineTime(s.onlineMinutes)
	if s.credential.Disposable && s.credential.Token != "" {
		summary += ", token: " + s.credential.Token
	}
	s.log.Info("Stopping bot... (%s)", summary)
}
