package session

import "time"

// Policy bounds the retry behaviour of a run. It is read-only while the loop
// uses it; ReloadSettings swaps in a new copy.
type Policy struct {
	SubServerConnectLimit   int
	ServerKickLimit         int
	SubServerConnectTimeout time.Duration
	RestartBackoff          time.Duration
	KickBackoff             time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		SubServerConnectLimit:   3,
		ServerKickLimit:         3,
		SubServerConnectTimeout: 60 * time.Second,
		RestartBackoff:          20 * time.Minute,
		KickBackoff:             5 * time.Second,
	}
}

// Normalize replaces non-positive fields with their defaults.
func (p Policy) Normalize() Policy {
	d := DefaultPolicy()
	if p.SubServerConnectLimit <= 0 {
		p.SubServerConnectLimit = d.SubServerConnectLimit
	}
	if p.ServerKickLimit <= 0 {
		p.ServerKickLimit = d.ServerKickLimit
	}
	if p.SubServerConnectTimeout <= 0 {
		p.SubServerConnectTimeout = d.SubServerConnectTimeout
	}
	if p.RestartBackoff <= 0 {
		p.RestartBackoff = d.RestartBackoff
	}
	if p.KickBackoff <= 0 {
		p.KickBackoff = d.KickBackoff
	}
	return p
}

// DefaultPostJoinDelay is how long the bot waits after joining a sub-server
// before sending the configured commands.
const DefaultPostJoinDelay = 2 * time.Second

// Settings is everything the supervisor reads from configuration.
type Settings struct {
	Policy                Policy
	SubServer             string
	PostJoinCommands      []string
	ReconnectAfterRestart bool
	PostJoinDelay         time.Duration
}

func (s Settings) normalize() Settings {
	s.Policy = s.Policy.Normalize()
	if s.PostJoinDelay <= 0 {
		s.PostJoinDelay = DefaultPostJoinDelay
	}
	s.PostJoinCommands = append([]string(nil), s.PostJoinCommands...)
	return s
}

// SettingsSource supplies Settings and can re-read them on demand.
type SettingsSource interface {
	Settings() Settings
	Reload() error
}

// StaticSettings is a SettingsSource that never changes.
type StaticSettings Settings

func (s StaticSettings) Settings() Settings { return Settings(s) }
func (s StaticSettings) Reload() error      { return nil }
