// Package config loads bot profiles (JSON or YAML), environment overrides and
// account credentials.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/EgorLis/citybot/internal/session"
)

// DefaultProfile is always applied first; the selected profile overrides it.
const DefaultProfile = "default"

// EnvPrefix prefixes every environment override, e.g. CITYBOT_CITYBUILD.
const EnvPrefix = "CITYBOT_"

// Config is one resolved profile.
type Config struct {
	Account               string   `json:"account" yaml:"account" env:"ACCOUNT"`
	CityBuild             string   `json:"citybuild" yaml:"citybuild" env:"CITYBUILD"`
	Commands              []string `json:"commands" yaml:"commands" env:"COMMANDS" envSeparator:";"`
	ReconnectAfterRestart bool     `json:"reconnectAfterRestart" yaml:"reconnectAfterRestart" env:"RECONNECT_AFTER_RESTART"`
	LogMessages           bool     `json:"logMessages" yaml:"logMessages" env:"LOG_MESSAGES"`
	DisplayChat           bool     `json:"displayChat" yaml:"displayChat" env:"DISPLAY_CHAT"`
	MsgResponse           string   `json:"msgResponse" yaml:"msgResponse" env:"MSG_RESPONSE"`
	AuthorisedPlayers     []string `json:"authorisedPlayers" yaml:"authorisedPlayers" env:"AUTHORISED_PLAYERS" envSeparator:","`
	IgnoreMessages        []string `json:"ignoreMessages" yaml:"ignoreMessages" env:"IGNORE_MESSAGES" envSeparator:";"`

	SubServerConnectLimit     int `json:"subServerConnectLimit" yaml:"subServerConnectLimit" env:"SUBSERVER_CONNECT_LIMIT"`
	ServerKickLimit           int `json:"serverKickLimit" yaml:"serverKickLimit" env:"SERVER_KICK_LIMIT"`
	SubServerConnectTimeoutMs int `json:"subServerConnectTimeoutMs" yaml:"subServerConnectTimeoutMs" env:"SUBSERVER_CONNECT_TIMEOUT_MS"`
	RestartBackoffMs          int `json:"restartBackoffMs" yaml:"restartBackoffMs" env:"RESTART_BACKOFF_MS"`
	KickBackoffMs             int `json:"kickBackoffMs" yaml:"kickBackoffMs" env:"KICK_BACKOFF_MS"`

	BridgeURL   string `json:"bridgeUrl" yaml:"bridgeUrl" env:"BRIDGE_URL"`
	BridgeAuth  string `json:"bridgeAuth" yaml:"bridgeAuth" env:"BRIDGE_AUTH"`
	WebhookURL  string `json:"webhookUrl" yaml:"webhookUrl" env:"WEBHOOK_URL"`
	StatsDB     string `json:"statsDb" yaml:"statsDb" env:"STATS_DB"`
	MetricsAddr string `json:"metricsAddr" yaml:"metricsAddr" env:"METRICS_ADDR"`
	LogDir      string `json:"logDir" yaml:"logDir" env:"LOG_DIR"`
}

// Default is the base every profile is decoded onto.
func Default() Config {
	return Config{
		Account:     "main",
		LogMessages: true,
		DisplayChat: true,
		BridgeURL:   "ws://127.0.0.1:8091/bot",
		LogDir:      "logs",
	}
}

// Settings converts the profile into supervisor settings. Zero limits fall
// back to the supervisor defaults.
func (c Config) Settings() session.Settings {
	return session.Settings{
		Policy: session.Policy{
			SubServerConnectLimit:   c.SubServerConnectLimit,
			ServerKickLimit:         c.ServerKickLimit,
			SubServerConnectTimeout: ms(c.SubServerConnectTimeoutMs),
			RestartBackoff:          ms(c.RestartBackoffMs),
			KickBackoff:             ms(c.KickBackoffMs),
		}.Normalize(),
		SubServer:             strings.TrimSpace(c.CityBuild),
		PostJoinCommands:      append([]string(nil), c.Commands...),
		ReconnectAfterRestart: c.ReconnectAfterRestart,
	}
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

// Load reads path, merges DefaultProfile with profile and applies the
// environment overrides. Files ending in .yaml or .yml are YAML, everything
// else JSON.
func Load(path, profile string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if profile == "" {
		profile = DefaultProfile
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = decodeYAML(data, profile, &cfg)
	default:
		err = decodeJSON(data, profile, &cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// decodeJSON decodes the default profile and then the selected one onto cfg.
// Keys present in the profile win; lists are replaced, not merged.
func decodeJSON(data []byte, profile string, cfg *Config) error {
	var profiles map[string]json.RawMessage
	if err := json.Unmarshal(data, &profiles); err != nil {
		return err
	}
	for _, name := range profileOrder(profile) {
		raw, ok := profiles[name]
		if !ok {
			if name == DefaultProfile {
				continue
			}
			return fmt.Errorf("profile %q not found", name)
		}
		dec := json.NewDecoder(bytes.NewReader(raw))
		if err := dec.Decode(cfg); err != nil {
			return fmt.Errorf("profile %q: %w", name, err)
		}
	}
	return nil
}

func decodeYAML(data []byte, profile string, cfg *Config) error {
	var profiles map[string]yaml.Node
	if err := yaml.Unmarshal(data, &profiles); err != nil {
		return err
	}
	for _, name := range profileOrder(profile) {
		node, ok := profiles[name]
		if !ok {
			if name == DefaultProfile {
				continue
			}
			return fmt.Errorf("profile %q not found", name)
		}
		if err := node.Decode(cfg); err != nil {
			return fmt.Errorf("profile %q: %w", name, err)
		}
	}
	return nil
}

func profileOrder(profile string) []string {
	if profile == DefaultProfile {
		return []string{DefaultProfile}
	}
	return []string{DefaultProfile, profile}
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment.
// A missing file is not an error; variables already set are kept.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
