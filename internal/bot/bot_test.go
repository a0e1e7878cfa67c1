package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EgorLis/citybot/internal/session"
)

type fakeController struct {
	mu       sync.Mutex
	snap     session.Snapshot
	offline  bool
	switchTo []string
	switchEr error
	reloads  int
	reloadEr error
	stopped  int
	chats    []string
	msgs     []string
	commands []string
	players  []string
	drops    int
}

func (f *fakeController) Snapshot() session.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeController) SwitchSubServer(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.switchTo = append(f.switchTo, name)
	return f.switchEr
}

func (f *fakeController) ReloadSettings(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reloadEr != nil {
		return f.reloadEr
	}
	f.reloads++
	return nil
}

func (f *fakeController) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped++
}

func (f *fakeController) SendChat(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.offline {
		return session.ErrNotConnected
	}
	f.chats = append(f.chats, text)
	return nil
}

func (f *fakeController) SendMsg(player, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, player+": "+text)
	return nil
}

func (f *fakeController) SendCommand(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, text)
	return nil
}

func (f *fakeController) Players(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.offline {
		return nil, session.ErrNotConnected
	}
	return f.players, nil
}

func (f *fakeController) DropInventory(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drops++
	return nil
}

func (f *fakeController) Msgs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.msgs...)
}

type logLine struct {
	level   string
	display bool
	text    string
}

type fakeLogger struct {
	mu    sync.Mutex
	lines []logLine
	cmds  []string
}

func (l *fakeLogger) Info(format string, args ...any) {
	l.add("info", true, format, args...)
}

func (l *fakeLogger) Error(format string, args ...any) {
	l.add("error", true, format, args...)
}

func (l *fakeLogger) Chat(display bool, format string, args ...any) {
	l.add("chat", display, format, args...)
}

func (l *fakeLogger) Cmd(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cmds = append(l.cmds, fmt.Sprintf(format, args...))
}

func (l *fakeLogger) add(level string, display bool, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, logLine{level, display, fmt.Sprintf(format, args...)})
}

func (l *fakeLogger) texts() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.lines))
	for i, ln := range l.lines {
		out[i] = ln.text
	}
	return out
}

func (l *fakeLogger) last() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.lines) == 0 {
		return ""
	}
	return l.lines[len(l.lines)-1].text
}

var baseConfig = Config{
	AuthorisedPlayers: []string{"Owner"},
	IgnoreMessages:    []string{"[Werbung]"},
	MsgResponse:       "Ich bin ein Bot.",
	ControlPassword:   "hunter2",
}

func newTestBot(t *testing.T) (*Bot, *fakeController, *fakeLogger) {
	t.Helper()
	ctl := &fakeController{}
	log := &fakeLogger{}
	return New(ctl, log, baseConfig, nil), ctl, log
}

func pm(sender, text string) session.PrivateMessage {
	return session.PrivateMessage{Rank: "Spieler", Sender: sender, Text: text}
}

func TestLoginWithControlPassword(t *testing.T) {
	b, ctl, _ := newTestBot(t)

	b.HandlePrivateMessage(pm("Steve", "login wrong"))
	assert.False(t, b.Authorised().Contains("Steve"))

	b.HandlePrivateMessage(pm("Steve", "login hunter2"))
	assert.True(t, b.Authorised().Contains("Steve"))

	assert.Equal(t, []string{
		"Steve: Das Passwort ist nicht korrekt!",
		"Steve: Hey, du bist nun angemeldet.",
	}, ctl.Msgs())
}

func TestLoginWithoutConfiguredPasswordFails(t *testing.T) {
	ctl := &fakeController{}
	b := New(ctl, &fakeLogger{}, Config{}, nil)

	b.HandlePrivateMessage(pm("Steve", "login "))
	b.HandlePrivateMessage(pm("Steve", "login x"))
	assert.False(t, b.Authorised().Contains("Steve"))
}

func TestUnauthorisedGetsAutoResponse(t *testing.T) {
	b, ctl, _ := newTestBot(t)

	b.HandlePrivateMessage(pm("Alex", "hallo?"))
	assert.Equal(t, []string{"Alex: Ich bin ein Bot."}, ctl.Msgs())

	require.True(t, b.Prefs().SetMsgResponseActive(false))
	b.HandlePrivateMessage(pm("Alex", "hallo?"))
	assert.Len(t, ctl.Msgs(), 1)
}

func TestAuthorisedCommands(t *testing.T) {
	b, ctl, _ := newTestBot(t)

	b.HandlePrivateMessage(pm("Owner", "chat /p h"))
	b.HandlePrivateMessage(pm("Owner", "chat"))
	b.HandlePrivateMessage(pm("Owner", "jump"))
	b.HandlePrivateMessage(pm("Owner", "stop"))

	assert.Equal(t, []string{"/p h"}, ctl.chats)
	assert.Equal(t, 1, ctl.stopped)
	assert.Equal(t, []string{
		"Owner: Verwendung: chat <Nachricht|Befehl>",
		`Owner: Der Befehl "jump" wurde nicht gefunden.`,
		"Owner: Bot wird beendet.",
	}, ctl.Msgs())

	b.HandlePrivateMessage(pm("Owner", "logout"))
	assert.False(t, b.Authorised().Contains("Owner"))
}

func TestDropInventoryRunsInBackground(t *testing.T) {
	b, ctl, log := newTestBot(t)

	b.HandlePrivateMessage(pm("Owner", "dropinv"))
	require.Eventually(t, func() bool {
		ctl.mu.Lock()
		defer ctl.mu.Unlock()
		return ctl.drops == 1
	}, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return log.last() == "Dropped inventory." }, time.Second, 5*time.Millisecond)
}

func TestTeleportOnlyForAuthorised(t *testing.T) {
	b, ctl, _ := newTestBot(t)

	b.HandleTeleport(session.TeleportRequest{Name: "Stranger"})
	b.HandleTeleport(session.TeleportRequest{Name: "Owner", Here: true})

	assert.Equal(t, []string{"tpaccept Owner"}, ctl.commands)
}

func TestChatFilter(t *testing.T) {
	var f ChatFilter
	f.SetIgnore([]string{"[Werbung]", ""})

	lines := []struct {
		line string
		want bool
	}{
		{"[CB1] Steve: hi", true},
		{"[Werbung] Kauft Dirt!", false},
		{"   ", false},
		{NewsDelimiter, false},
		{"Neues Update!", false},
		{NewsDelimiter, false},
		{"[CB1] Alex: moin", true},
	}
	for _, l := range lines {
		assert.Equal(t, l.want, f.Allow(l.line), "line %q", l.line)
	}
}

func TestHandleChatRespectsDisplay(t *testing.T) {
	b, _, log := newTestBot(t)

	b.HandleChat(session.ChatMessage{Text: "[CB1] Steve: hi"})
	b.Prefs().ToggleChat()
	b.HandleChat(session.ChatMessage{Text: "[CB1] Steve: again"})
	b.HandleChat(session.ChatMessage{Text: "[Werbung] spam"})

	require.Len(t, log.lines, 2)
	assert.Equal(t, logLine{"chat", false, "[Chat] [CB1] Steve: hi"}, log.lines[0])
	assert.Equal(t, logLine{"chat", true, "[Chat] [CB1] Steve: again"}, log.lines[1])
}

func TestReloadReappliesConfig(t *testing.T) {
	ctl := &fakeController{}
	next := Config{AuthorisedPlayers: []string{"NewOwner"}, DisplayChat: true}
	b := New(ctl, &fakeLogger{}, baseConfig, func() (Config, error) { return next, nil })
	b.Authorised().Add("Runtime")

	require.NoError(t, b.Reload(context.Background()))

	assert.Equal(t, 1, ctl.reloads)
	assert.Equal(t, []string{"NewOwner"}, b.Authorised().List())
	assert.True(t, b.Prefs().DisplayChat())
	_, on := b.Prefs().MsgResponse()
	assert.False(t, on)
}

func TestReloadLoadErrorKeepsEverything(t *testing.T) {
	ctl := &fakeController{}
	b := New(ctl, &fakeLogger{}, baseConfig, func() (Config, error) {
		return Config{}, errors.New("bad credentials.json")
	})
	err := b.Reload(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "bad credentials.json"))
	assert.True(t, b.Authorised().Contains("Owner"))
	assert.Zero(t, ctl.reloads, "settings must not change when the glue config fails")
}

func TestReloadSettingsErrorKeepsGlueConfig(t *testing.T) {
	ctl := &fakeController{reloadEr: session.ErrStopped}
	b := New(ctl, &fakeLogger{}, baseConfig, func() (Config, error) {
		return Config{AuthorisedPlayers: []string{"NewOwner"}}, nil
	})
	require.ErrorIs(t, b.Reload(context.Background()), session.ErrStopped)
	assert.Equal(t, []string{"Owner"}, b.Authorised().List())
}

func TestAuthorisedSet(t *testing.T) {
	a := NewAuthorised([]string{"A", "B", "A", ""})
	assert.Equal(t, []string{"A", "B"}, a.List())
	assert.False(t, a.Add("A"))
	assert.True(t, a.Add("C"))
	assert.True(t, a.Remove("B"))
	assert.False(t, a.Remove("B"))
	assert.Equal(t, []string{"A", "C"}, a.List())
}
