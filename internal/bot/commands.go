package bot

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/buildkite/shellwords"
	"github.com/rodaine/table"

	"github.com/EgorLis/citybot/internal/session"
	"github.com/EgorLis/citybot/internal/stats"
)

var helpLines = []string{
	"Available commands:",
	"#help - Print this list.",
	"#stop - Stop the bot.",
	"#msgresponse [on|off] - Enable or disable automatic response to private messages.",
	"#togglechat - Show or hide the chat.",
	"#onlinetime - Show the online time of the bot.",
	"#listplayers - List the currently online players.",
	"#citybuild <cb name> - Change CityBuild.",
	"#authorise <name> - Authorise a player to execute bot commands.",
	"#unauthorise <name> - Unauthorise a player.",
	"#listauthorised - List the authorised players.",
	"#dropinv - Let the bot drop all items in its inventory.",
	"#reloadconfig - Reload the configuration file.",
	"#currentcb - Displays the current CityBuild of the bot.",
	"#status - Show the session state.",
	"#history [count] - Show lifetime online time and the last sessions.",
}

// History is the stored session history shown by #history.
type History interface {
	Totals(account string) (stats.Totals, error)
	Recent(n int) ([]stats.Record, error)
}

// Console reads operator lines. Lines starting with '#' are bot commands,
// everything else is sent to the game chat.
type Console struct {
	bot *Bot
	out io.Writer // tables

	history History
	account string
}

func NewConsole(b *Bot, out io.Writer) *Console {
	if out == nil {
		out = os.Stdout
	}
	return &Console{bot: b, out: out}
}

// WithHistory enables #history for account.
func (c *Console) WithHistory(h History, account string) *Console {
	c.history = h
	c.account = account
	return c
}

// Run handles lines from in until it is exhausted or ctx is cancelled.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	errCh := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		errCh <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			return err
		case line := <-lines:
			c.Handle(ctx, line)
		}
	}
}

// Handle runs one console line.
func (c *Console) Handle(ctx context.Context, line string) {
	text := strings.TrimSpace(line)
	if text == "" {
		return
	}
	if !strings.HasPrefix(text, "#") {
		c.relayChat(line)
		return
	}

	c.bot.log.Cmd("%s", text)
	args, err := shellwords.SplitPosix(text[1:])
	if err != nil {
		c.bot.log.Error("Couldn't parse command: %v", err)
		return
	}
	if len(args) == 0 {
		return
	}
	if err := c.HandleCommand(ctx, args); err != nil {
		c.bot.log.Error("%v", err)
	}
}

func (c *Console) relayChat(line string) {
	err := c.bot.ctl.SendChat(line)
	if errors.Is(err, session.ErrNotConnected) {
		c.bot.log.Info("Bot is not connected to server.")
		return
	}
	if err != nil {
		c.bot.log.Error("Couldn't send chat message: %v", err)
	}
}

// HandleCommand executes a tokenized '#' command. args[0] is the command name
// without the '#'.
func (c *Console) HandleCommand(ctx context.Context, args []string) error {
	b := c.bot
	say := func(format string, a ...any) { b.log.Info(format, a...) }

	switch strings.ToLower(args[0]) {
	case "help":
		for _, l := range helpLines {
			say("%s", l)
		}
		return nil

	case "stop":
		b.ctl.Stop()
		return nil

	case "msgresponse":
		if len(args) == 1 {
			_, on := b.prefs.MsgResponse()
			say("Automatic response is %s.", onOff(on))
			return nil
		}
		switch strings.ToLower(args[1]) {
		case "on":
			if !b.prefs.SetMsgResponseActive(true) {
				say("No response specified in config file.")
				return nil
			}
			say("Turned on automatic response.")
		case "off":
			b.prefs.SetMsgResponseActive(false)
			say("Turned off automatic response.")
		default:
			say("Usage: #msgresponse [on|off]")
		}
		return nil

	case "togglechat":
		if b.prefs.ToggleChat() {
			say("Enabled chat messages.")
		} else {
			say("Disabled chat messages.")
		}
		return nil

	case "onlinetime":
		say("Bot is running for %s.", session.FormatOnlineTime(b.ctl.Snapshot().OnlineMinutes))
		return nil

	case "listplayers":
		players, err := b.ctl.Players(ctx)
		if errors.Is(err, session.ErrNotConnected) {
			say("Bot is not connected to server.")
			return nil
		}
		if err != nil {
			return fmt.Errorf("list players: %w", err)
		}
		say("Online players (%d): %s", len(players), strings.Join(players, ", "))
		return nil

	case "citybuild":
		if len(args) != 2 {
			say("Usage: #citybuild <cb name>")
			return nil
		}
		err := b.ctl.SwitchSubServer(ctx, args[1])
		switch {
		case errors.Is(err, session.ErrAlreadyConnecting):
			say("Already connecting to citybuild. Please wait...")
		case errors.Is(err, session.ErrNotConnected):
			say("Bot is not connected to server.")
		case err != nil:
			return err
		}
		return nil

	case "authorise":
		if len(args) != 2 {
			say("Usage: #authorise <name>")
			return nil
		}
		if b.auth.Add(args[1]) {
			say("Authorised the player %s.", args[1])
		} else {
			say("The player is already authorised.")
		}
		return nil

	case "unauthorise":
		if len(args) != 2 {
			say("Usage: #unauthorise <name>")
			return nil
		}
		if b.auth.Remove(args[1]) {
			say("Removed the player %s.", args[1])
		} else {
			say("The player is not authorised.")
		}
		return nil

	case "listauthorised":
		names := b.auth.List()
		say("Authorised players (%d):", len(names))
		t := table.New("#", "Player").WithWriter(c.out)
		for i, n := range names {
			t.AddRow(i+1, n)
		}
		t.Print()
		return nil

	case "dropinv":
		go b.dropInventory()
		return nil

	case "reloadconfig":
		if err := b.Reload(ctx); err != nil {
			say("Couldn't load config: %v", err)
			return nil
		}
		say("Configuration reloaded.")
		return nil

	case "currentcb":
		say("Your current CityBuild: %s", b.ctl.Snapshot().SubServer)
		return nil

	case "status":
		snap := b.ctl.Snapshot()
		t := table.New("Field", "Value").WithWriter(c.out)
		t.AddRow("Status", snap.Status)
		t.AddRow("Account", snap.Username)
		t.AddRow("CityBuild", snap.SubServer)
		t.AddRow("Online time", session.FormatOnlineTime(snap.OnlineMinutes))
		t.AddRow("Kicks", snap.KickCount)
		t.AddRow("Join errors", snap.JoinErrors)
		t.AddRow("Joining", snap.Connecting)
		t.AddRow("Disposable", snap.Disposable)
		t.AddRow("Session", snap.SessionID)
		t.Print()
		return nil

	case "history":
		return c.showHistory(args[1:])

	default:
		say("Unknown command \"#%s\". View available commands with #help", args[0])
		return nil
	}
}

func (c *Console) showHistory(args []string) error {
	say := c.bot.log.Info
	if c.history == nil {
		say("No session history configured.")
		return nil
	}
	n := 5
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v < 1 {
			say("Usage: #history [count]")
			return nil
		}
		n = v
	}

	totals, err := c.history.Totals(c.account)
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}
	recent, err := c.history.Recent(n)
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}
	say("Lifetime online time: %s in %d sessions.", session.FormatOnlineTime(totals.OnlineMinutes), totals.Sessions)

	t := table.New("Started", "Ended", "Online", "Cause").WithWriter(c.out)
	for _, r := range recent {
		if c.account != "" && r.Account != c.account {
			continue
		}
		t.AddRow(r.Started.Format("02.01.2006 15:04"), r.Ended.Format("15:04"),
			session.FormatOnlineTime(r.OnlineMinutes), r.Cause)
	}
	t.Print()
	return nil
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
