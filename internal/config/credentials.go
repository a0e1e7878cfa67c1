package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/EgorLis/citybot/internal/session"
)

// Credential is one account entry of credentials.json.
type Credential struct {
	Email           string  `json:"email"`
	Password        string  `json:"password"`
	ControlPassword string  `json:"controlPassword"`
	Token           *string `json:"token,omitempty"`
}

// Disposable reports whether the entry logs in with a one-time token.
func (c Credential) Disposable() bool { return c.Token != nil }

// LoadCredentials returns the entry for account.
func LoadCredentials(path, account string) (Credential, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Credential{}, fmt.Errorf("read credentials: %w", err)
	}
	var all map[string]Credential
	if err := json.Unmarshal(data, &all); err != nil {
		return Credential{}, fmt.Errorf("parse credentials: %w", err)
	}
	c, ok := all[account]
	if !ok {
		return Credential{}, fmt.Errorf("no credentials for account %q", account)
	}
	if c.Email == "" {
		return Credential{}, fmt.Errorf("credentials for account %q have no email", account)
	}
	return c, nil
}

// CredentialFile is a session.CredentialSource that re-reads the file before
// every connect, so edited passwords apply on the next reconnect.
type CredentialFile struct {
	Path    string
	Account string
	// Prompt asks the operator for a missing one-time token.
	Prompt func(question string) (string, error)

	mu     sync.Mutex
	token  string
	loaded Credential
}

func (f *CredentialFile) Credentials(context.Context) (session.Credentials, error) {
	c, err := LoadCredentials(f.Path, f.Account)
	if err != nil {
		return session.Credentials{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.loaded = c

	creds := session.Credentials{Username: c.Email, Password: c.Password}
	if !c.Disposable() {
		return creds, nil
	}
	creds.Disposable = true
	token := strings.TrimSpace(*c.Token)
	if token == "" {
		token = f.token
	}
	if token == "" {
		if f.Prompt == nil {
			return session.Credentials{}, errors.New("one-time token required but no prompt available")
		}
		token, err = f.Prompt("Token: ")
		if err != nil {
			return session.Credentials{}, fmt.Errorf("read token: %w", err)
		}
		token = strings.TrimSpace(token)
		if token == "" {
			return session.Credentials{}, errors.New("empty token")
		}
	}
	f.token = token
	creds.Token = token
	return creds, nil
}

// ControlPassword returns the in-game login secret of the last loaded entry.
func (f *CredentialFile) ControlPassword() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loaded.ControlPassword
}
