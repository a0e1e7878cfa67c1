package bot

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/EgorLis/citybot/internal/session"
)

// Controller is the part of the supervisor the glue layer drives.
type Controller interface {
	Snapshot() session.Snapshot
	SwitchSubServer(ctx context.Context, name string) error
	ReloadSettings(ctx context.Context) error
	Stop()
	SendChat(text string) error
	SendMsg(player, text string) error
	SendCommand(text string) error
	Players(ctx context.Context) ([]string, error)
	DropInventory(ctx context.Context) error
}

type Logger interface {
	Info(format string, args ...any)
	Error(format string, args ...any)
	// Chat logs a relayed chat line; display controls console output.
	Chat(display bool, format string, args ...any)
	// Cmd records an operator command; it never reaches the console.
	Cmd(format string, args ...any)
}

// Bot reacts to in-game messages and serves the operator console.
type Bot struct {
	ctl   Controller
	log   Logger
	load  func() (Config, error)
	auth  *Authorised
	prefs *Prefs
	chat  *ChatFilter

	mu              sync.Mutex
	controlPassword string

	dropTimeout time.Duration
}

// New builds the glue layer. load is called on every reload and must
// re-read the configuration files.
func New(ctl Controller, log Logger, cfg Config, load func() (Config, error)) *Bot {
	b := &Bot{
		ctl:         ctl,
		log:         log,
		load:        load,
		auth:        NewAuthorised(nil),
		prefs:       &Prefs{},
		chat:        &ChatFilter{},
		dropTimeout: 30 * time.Second,
	}
	b.applyConfig(cfg)
	return b
}

func (b *Bot) Authorised() *Authorised { return b.auth }
func (b *Bot) Prefs() *Prefs           { return b.prefs }

// Reload re-reads the glue configuration first; only when that succeeds are
// the new settings handed to the supervisor and the glue config re-applied.
func (b *Bot) Reload(ctx context.Context) error {
	cfg, err := b.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := b.ctl.ReloadSettings(ctx); err != nil {
		return err
	}
	if cfg != nil {
		b.applyConfig(*cfg)
	}
	return nil
}

func (b *Bot) loadConfig() (*Config, error) {
	if b.load == nil {
		return nil, nil
	}
	cfg, err := b.load()
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// HandlePrivateMessage runs the private-message commands. It is called on the
// supervisor loop and must not block, so slow work runs in its own goroutine.
func (b *Bot) HandlePrivateMessage(pm session.PrivateMessage) {
	sender, text := pm.Sender, strings.TrimSpace(pm.Text)
	if sender == "" {
		return
	}
	reply := func(msg string) {
		if err := b.ctl.SendMsg(sender, msg); err != nil {
			b.log.Error("Couldn't reply to %s: %v", sender, err)
		}
	}

	if !b.auth.Contains(sender) {
		if strings.HasPrefix(text, "login") {
			fields := strings.Fields(text)
			if len(fields) == 2 && b.checkPassword(fields[1]) {
				b.auth.Add(sender)
				reply("Hey, du bist nun angemeldet.")
				b.log.Info("%s logged in via private message.", sender)
			} else {
				reply("Das Passwort ist nicht korrekt!")
			}
			return
		}
		if resp, ok := b.prefs.MsgResponse(); ok {
			reply(resp)
		}
		return
	}

	cmd, rest, _ := strings.Cut(text, " ")
	switch cmd {
	case "logout":
		b.auth.Remove(sender)
		reply("Du bist nun abgemeldet.")

	case "chat":
		rest = strings.TrimSpace(rest)
		if rest == "" {
			reply("Verwendung: chat <Nachricht|Befehl>")
			return
		}
		if err := b.ctl.SendChat(rest); err != nil {
			b.log.Error("Couldn't send chat message: %v", err)
		}

	case "stop":
		reply("Bot wird beendet.")
		b.log.Info("Stop requested by %s.", sender)
		b.ctl.Stop()

	case "dropinv":
		go b.dropInventory()

	default:
		reply(fmt.Sprintf(`Der Befehl "%s" wurde nicht gefunden.`, text))
	}
}

func (b *Bot) checkPassword(given string) bool {
	b.mu.Lock()
	want := b.controlPassword
	b.mu.Unlock()
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(given), []byte(want)) == 1
}

// HandleChat relays a server chat line through the filter into the log.
func (b *Bot) HandleChat(m session.ChatMessage) {
	if !b.chat.Allow(m.Text) {
		return
	}
	b.log.Chat(b.prefs.DisplayChat(), "[Chat] %s", m.Text)
}

// HandleTeleport accepts tpa and tpahere from authorised players.
func (b *Bot) HandleTeleport(r session.TeleportRequest) {
	if r.Name == "" || !b.auth.Contains(r.Name) {
		return
	}
	if err := b.ctl.SendCommand("tpaccept " + r.Name); err != nil {
		b.log.Error("Couldn't accept teleport request of %s: %v", r.Name, err)
	}
}

func (b *Bot) dropInventory() {
	ctx, cancel := context.WithTimeout(context.Background(), b.dropTimeout)
	defer cancel()
	err := b.ctl.DropInventory(ctx)
	switch {
	case errors.Is(err, session.ErrNotConnected):
		b.log.Info("Bot is not connected to server.")
	case err != nil:
		b.log.Error("Couldn't drop inventory: %v", err)
	default:
		b.log.Info("Dropped inventory.")
	}
}
