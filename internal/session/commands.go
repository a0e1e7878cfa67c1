package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// do runs fn on the loop goroutine and waits for its result.
func (s *Supervisor) do(ctx context.Context, fn func() error) error {
	res := make(chan error, 1)
	select {
	case s.events <- envelope{ev: commandRunner{fn: func() { res <- fn() }}}:
	case <-s.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-res:
		return err
	case <-s.done:
		select {
		case err := <-res:
			return err
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SwitchSubServer starts a join sequence for name. It returns
// ErrAlreadyConnecting while another sequence is in flight and
// ErrNotConnected while the bot is offline. The join itself is reported
// through the log.
func (s *Supervisor) SwitchSubServer(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("sub-server name is empty")
	}
	return s.do(ctx, func() error {
		return s.beginJoin(name, true)
	})
}

// ReloadSettings re-reads the settings source. The live session keeps
// running; new limits apply from the next decision on.
func (s *Supervisor) ReloadSettings(ctx context.Context) error {
	return s.do(ctx, func() error {
		if err := s.source.Reload(); err != nil {
			return fmt.Errorf("reload settings: %w", err)
		}
		st := s.source.Settings().normalize()
		s.mu.Lock()
		s.settings = st
		s.mu.Unlock()
		return nil
	})
}

// Stop requests the terminal exit. It does not wait and may be called from
// hooks.
func (s *Supervisor) Stop() {
	go s.post(0, commandRunner{fn: func() { s.exit(nil) }})
}

// Done is closed once Run has returned.
func (s *Supervisor) Done() <-chan struct{} {
	return s.done
}

func (s *Supervisor) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Status:        s.status,
		SubServer:     s.subServer,
		Username:      s.username,
		SessionID:     s.sessionID,
		OnlineMinutes: s.onlineMinutes,
		KickCount:     s.kickCount,
		JoinErrors:    s.joinErrors,
		Connecting:    s.connecting,
		Disposable:    s.credential.Disposable,
	}
}

// CurrentSettings returns the settings in effect.
func (s *Supervisor) CurrentSettings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

func (s *Supervisor) onlineClient() (Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil || !s.status.IsOnline() {
		return nil, ErrNotConnected
	}
	return s.client, nil
}

func (s *Supervisor) SendChat(text string) error {
	c, err := s.onlineClient()
	if err != nil {
		return err
	}
	return c.SendChat(text)
}

func (s *Supervisor) SendMsg(player, text string) error {
	c, err := s.onlineClient()
	if err != nil {
		return err
	}
	return c.SendMsg(player, text)
}

func (s *Supervisor) SendCommand(text string) error {
	c, err := s.onlineClient()
	if err != nil {
		return err
	}
	return c.SendCommand(text)
}

func (s *Supervisor) Players(ctx context.Context) ([]string, error) {
	c, err := s.onlineClient()
	if err != nil {
		return nil, err
	}
	return c.Players(ctx)
}

func (s *Supervisor) DropInventory(ctx context.Context) error {
	c, err := s.onlineClient()
	if err != nil {
		return err
	}
	return c.DropInventory(ctx)
}
