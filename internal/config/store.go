package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/EgorLis/citybot/internal/session"
)

// Store holds the current profile and re-reads it on demand. It implements
// session.SettingsSource.
type Store struct {
	path    string
	profile string

	mu  sync.RWMutex
	cfg Config
}

// Open loads the profile once; a broken file fails here.
func Open(path, profile string) (*Store, error) {
	cfg, err := Load(path, profile)
	if err != nil {
		return nil, err
	}
	return &Store{path: path, profile: profile, cfg: cfg}, nil
}

func (s *Store) Path() string    { return s.path }
func (s *Store) Profile() string { return s.profile }

func (s *Store) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

func (s *Store) Settings() session.Settings {
	return s.Config().Settings()
}

// Reload re-reads the file. On error the previous profile stays in effect.
func (s *Store) Reload() error {
	cfg, err := Load(s.path, s.profile)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	return nil
}

// watchDebounce collapses the bursts of events editors produce on save.
const watchDebounce = 250 * time.Millisecond

// Watch calls fn after the config file was written or replaced, until ctx
// is cancelled. The directory is watched so atomic renames are seen too.
func (s *Store) Watch(ctx context.Context, fn func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	defer w.Close()

	dir := filepath.Dir(s.path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	name := filepath.Base(s.path)

	var (
		tmu   sync.Mutex
		timer *time.Timer
	)
	defer func() {
		tmu.Lock()
		if timer != nil {
			timer.Stop()
		}
		tmu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			tmu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				if ctx.Err() == nil {
					fn()
				}
			})
			tmu.Unlock()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch config: %w", err)
		}
	}
}
