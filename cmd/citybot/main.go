package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/EgorLis/citybot/internal/bot"
	"github.com/EgorLis/citybot/internal/botlog"
	"github.com/EgorLis/citybot/internal/config"
	"github.com/EgorLis/citybot/internal/gameclient"
	"github.com/EgorLis/citybot/internal/metrics"
	"github.com/EgorLis/citybot/internal/notify"
	"github.com/EgorLis/citybot/internal/session"
	"github.com/EgorLis/citybot/internal/stats"
)

func main() {
	var profile string
	flag.StringVar(&profile, "profile", config.DefaultProfile, "config profile to use")
	flag.StringVar(&profile, "p", config.DefaultProfile, "shorthand for -profile")
	confPath := flag.String("config", "config.json", "path to the config file (JSON or YAML)")
	credPath := flag.String("credentials", "credentials.json", "path to the credentials file")
	envPath := flag.String("env", ".env", "dotenv file with CITYBOT_ overrides")
	flag.Parse()

	if err := run(profile, *confPath, *credPath, *envPath); err != nil {
		log.Printf("citybot: %v", err)
		// let the webhook worker and the log file settle
		time.Sleep(100 * time.Millisecond)
		os.Exit(1)
	}
}

func run(profile, confPath, credPath, envPath string) error {
	if err := config.LoadEnvFile(envPath); err != nil {
		return err
	}
	store, err := config.Open(confPath, profile)
	if err != nil {
		return err
	}
	cfg := store.Config()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stdin := bufio.NewReader(os.Stdin)
	creds := &config.CredentialFile{
		Path:    credPath,
		Account: cfg.Account,
		Prompt:  promptLine(stdin, os.Stdout),
	}
	// A one-time token is asked for before the console takes over stdin.
	if _, err := creds.Credentials(ctx); err != nil {
		return err
	}

	var webhook *notify.Webhook
	logOpts := botlog.Options{Dir: cfg.LogDir, LogToFile: cfg.LogMessages}
	if cfg.WebhookURL != "" {
		webhook = notify.New(cfg.WebhookURL, "["+cfg.Account+"] ")
		webhook.Start()
		defer webhook.Stop()
		logOpts.Notifier = webhook
	}
	logger := botlog.New(logOpts)
	defer logger.Close()

	var history *stats.Store
	if cfg.StatsDB != "" {
		if dir := filepath.Dir(cfg.StatsDB); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("stats dir: %w", err)
			}
		}
		history, err = stats.Open(cfg.StatsDB)
		if err != nil {
			return err
		}
		defer history.Close()
		if t, err := history.Totals(cfg.Account); err == nil && t.Sessions > 0 {
			logger.Info("Lifetime online time: %s in %d sessions.", session.FormatOnlineTime(t.OnlineMinutes), t.Sessions)
		}
	}

	m := metrics.New()

	var b *bot.Bot
	opts := session.Options{
		Connector:   &gameclient.Dialer{URL: cfg.BridgeURL, Auth: cfg.BridgeAuth},
		Credentials: creds,
		Settings:    store,
		Logger:      logger,
		Observer:    m,
		Account:     cfg.Account,

		// b is assigned before Run, so no event reaches a nil bot.
		Hooks: session.Hooks{
			OnPrivateMessage:  func(pm session.PrivateMessage) { b.HandlePrivateMessage(pm) },
			OnChat:            func(c session.ChatMessage) { b.HandleChat(c) },
			OnTeleportRequest: func(r session.TeleportRequest) { b.HandleTeleport(r) },
		},
	}
	if history != nil {
		opts.Recorder = history
	}
	sup := session.New(opts)

	// load runs before the supervisor takes the new settings, so it reads
	// the files itself instead of the store.
	load := func() (bot.Config, error) {
		c, err := config.Load(store.Path(), store.Profile())
		if err != nil {
			return bot.Config{}, err
		}
		entry, err := config.LoadCredentials(credPath, cfg.Account)
		if err != nil {
			return bot.Config{}, err
		}
		logger.SetFileLogging(c.LogMessages)
		return botConfig(c, entry.ControlPassword), nil
	}
	b = bot.New(sup, logger, botConfig(cfg, creds.ControlPassword()), load)

	console := bot.NewConsole(b, os.Stdout)
	if history != nil {
		console.WithHistory(history, cfg.Account)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer stop()
		return sup.Run(gctx)
	})
	g.Go(func() error {
		err := console.Run(gctx, stdin)
		if err != nil {
			return fmt.Errorf("console: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return store.Watch(gctx, func() {
			if err := b.Reload(gctx); err != nil {
				if errors.Is(err, session.ErrStopped) {
					return
				}
				logger.Error("Couldn't reload config: %v", err)
				return
			}
			logger.Info("Configuration reloaded.")
		})
	})
	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			if err := m.Serve(gctx, cfg.MetricsAddr); err != nil {
				logger.Error("Metrics listener failed: %v", err)
			}
			return nil
		})
	}

	return g.Wait()
}

func botConfig(c config.Config, controlPassword string) bot.Config {
	return bot.Config{
		AuthorisedPlayers: c.AuthorisedPlayers,
		IgnoreMessages:    c.IgnoreMessages,
		MsgResponse:       c.MsgResponse,
		DisplayChat:       c.DisplayChat,
		ControlPassword:   controlPassword,
	}
}

func promptLine(in *bufio.Reader, out io.Writer) func(string) (string, error) {
	return func(question string) (string, error) {
		fmt.Fprint(out, question)
		line, err := in.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}
}
