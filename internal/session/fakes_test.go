package session

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
)

type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	c       *manualClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{c: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves time forward and runs every timer that became due.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*manualTimer
	for _, t := range c.timers {
		if !t.fired && !t.stopped && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.f()
	}
}

// Active counts timers that are armed.
func (c *manualClock) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.fired && !t.stopped {
			n++
		}
	}
	return n
}

// joinCall is one JoinSubServer invocation; the test answers on reply.
type joinCall struct {
	name  string
	reply chan error
}

type fakeClient struct {
	name  string
	calls chan joinCall

	mu       sync.Mutex
	joins    []string
	commands []string
	chats    []string
	msgs     []string
	closed   int
}

func newFakeClient(name string) *fakeClient {
	return &fakeClient{name: name, calls: make(chan joinCall, 16)}
}

func (c *fakeClient) Username() string { return c.name }

func (c *fakeClient) JoinSubServer(ctx context.Context, name string) error {
	c.mu.Lock()
	c.joins = append(c.joins, name)
	c.mu.Unlock()
	call := joinCall{name: name, reply: make(chan error, 1)}
	c.calls <- call
	select {
	case err := <-call.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *fakeClient) SendCommand(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands = append(c.commands, text)
	return nil
}

func (c *fakeClient) SendChat(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chats = append(c.chats, text)
	return nil
}

func (c *fakeClient) SendMsg(player, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, player+": "+text)
	return nil
}

func (c *fakeClient) Players(context.Context) ([]string, error) {
	return []string{c.name}, nil
}

func (c *fakeClient) DropInventory(context.Context) error { return nil }

func (c *fakeClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}

func (c *fakeClient) Joins() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.joins...)
}

func (c *fakeClient) Commands() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.commands...)
}

func (c *fakeClient) Closed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// fakeConnector hands out a new fakeClient per Connect, or the scripted
// error.
type fakeConnector struct {
	mu  sync.Mutex
	err error
	// readyOnConnect emits Ready before Connect returns.
	readyOnConnect bool
	clients        []*fakeClient
	emits          []func(Event)
}

func (f *fakeConnector) Connect(_ context.Context, creds Credentials, emit func(Event)) (Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	c := newFakeClient(creds.Username)
	f.clients = append(f.clients, c)
	f.emits = append(f.emits, emit)
	if f.readyOnConnect {
		emit(Ready{Username: c.name})
	}
	return c, nil
}

func (f *fakeConnector) Connects() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

func (f *fakeConnector) Last() (*fakeClient, func(Event)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.clients)
	return f.clients[n-1], f.emits[n-1]
}

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) Info(format string, args ...any) {
	l.add("info", format, args...)
}

func (l *recordingLogger) Error(format string, args ...any) {
	l.add("error", format, args...)
}

func (l *recordingLogger) add(level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+": "+fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Contains(sub string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if strings.Contains(line, sub) {
			return true
		}
	}
	return false
}

type countingObserver struct {
	mu        sync.Mutex
	started   int
	minutes   int
	causes    []Cause
	outcomes  []JoinOutcome
	onlineNow bool
}

func (o *countingObserver) SessionStarted() {
	o.mu.Lock()
	o.started++
	o.mu.Unlock()
}

func (o *countingObserver) SessionOnline(online bool) {
	o.mu.Lock()
	o.onlineNow = online
	o.mu.Unlock()
}

func (o *countingObserver) OnlineMinute() {
	o.mu.Lock()
	o.minutes++
	o.mu.Unlock()
}

func (o *countingObserver) Disconnected(c Cause) {
	o.mu.Lock()
	o.causes = append(o.causes, c)
	o.mu.Unlock()
}

func (o *countingObserver) JoinAttempt(out JoinOutcome) {
	o.mu.Lock()
	o.outcomes = append(o.outcomes, out)
	o.mu.Unlock()
}

type memRecorder struct {
	mu      sync.Mutex
	records []SessionRecord
}

func (r *memRecorder) RecordSession(rec SessionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

// harness drives the supervisor loop by hand: the test goroutine plays the
// loop and dispatches events one at a time.
type harness struct {
	t         *testing.T
	s         *Supervisor
	clock     *manualClock
	connector *fakeConnector
	log       *recordingLogger
	observer  *countingObserver
	recorder  *memRecorder
}

func newHarness(t *testing.T, settings Settings, creds Credentials) *harness {
	t.Helper()
	h := &harness{
		t:         t,
		clock:     newManualClock(),
		connector: &fakeConnector{},
		log:       &recordingLogger{},
		observer:  &countingObserver{},
		recorder:  &memRecorder{},
	}
	h.s = New(Options{
		Connector:   h.connector,
		Credentials: StaticCredentials(creds),
		Settings:    StaticSettings(settings),
		Logger:      h.log,
		Clock:       h.clock,
		Observer:    h.observer,
		Recorder:    h.recorder,
		Account:     "main",
	})
	return h
}

// step dispatches the next queued event.
func (h *harness) step() Event {
	h.t.Helper()
	select {
	case env := <-h.s.events:
		h.s.dispatch(env)
		return env.ev
	case <-time.After(2 * time.Second):
		h.t.Fatal("no event arrived")
		return nil
	}
}

// awaitEvent dispatches events until one of type T has been handled.
func awaitEvent[T Event](h *harness) T {
	h.t.Helper()
	for i := 0; i < 32; i++ {
		if ev, ok := h.step().(T); ok {
			return ev
		}
	}
	var zero T
	h.t.Fatalf("event %T never arrived", zero)
	return zero
}

// connect runs start() until the fake client is handed over and ready.
func (h *harness) connect() (*fakeClient, func(Event)) {
	h.t.Helper()
	h.s.start()
	awaitEvent[connectResult](h)
	c, emit := h.connector.Last()
	emit(Ready{Username: c.name})
	awaitEvent[Ready](h)
	return c, emit
}

// nextJoin waits for the next JoinSubServer call on c.
func (h *harness) nextJoin(c *fakeClient) joinCall {
	h.t.Helper()
	select {
	case call := <-c.calls:
		return call
	case <-time.After(2 * time.Second):
		h.t.Fatal("no join attempt")
		return joinCall{}
	}
}

// noEvent asserts that nothing is queued for the loop.
func (h *harness) noEvent() {
	h.t.Helper()
	select {
	case env := <-h.s.events:
		h.t.Fatalf("unexpected event %T", env.ev)
	case <-time.After(50 * time.Millisecond):
	}
}
