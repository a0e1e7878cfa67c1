package bot

import (
	"slices"
	"sync"

	"github.com/samber/lo"
)

// Authorised is the set of in-game players allowed to control the bot.
type Authorised struct {
	mu    sync.Mutex
	names []string
}

func NewAuthorised(names []string) *Authorised {
	a := &Authorised{}
	a.Replace(names)
	return a
}

// Add reports false when name was already authorised.
func (a *Authorised) Add(name string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if slices.Contains(a.names, name) {
		return false
	}
	a.names = append(a.names, name)
	return true
}

// Remove reports false when name was not authorised.
func (a *Authorised) Remove(name string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := len(a.names)
	a.names = lo.Without(a.names, name)
	return len(a.names) != n
}

func (a *Authorised) Contains(name string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Contains(a.names, name)
}

// List returns the names in the order they were authorised.
func (a *Authorised) List() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.names)
}

func (a *Authorised) Replace(names []string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.names = lo.Uniq(lo.Compact(names))
}

// Prefs are the runtime toggles the operator can flip from the console.
type Prefs struct {
	mu                sync.Mutex
	msgResponse       string
	msgResponseActive bool
	displayChat       bool
}

// Reset applies the configured values. The auto-response is active whenever
// a response text is configured.
func (p *Prefs) Reset(msgResponse string, displayChat bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgResponse = msgResponse
	p.msgResponseActive = msgResponse != ""
	p.displayChat = displayChat
}

// MsgResponse returns the auto-response and whether it is switched on.
func (p *Prefs) MsgResponse() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.msgResponse, p.msgResponseActive && p.msgResponse != ""
}

// SetMsgResponseActive reports false when on is requested but no response
// text is configured.
func (p *Prefs) SetMsgResponseActive(on bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if on && p.msgResponse == "" {
		return false
	}
	p.msgResponseActive = on
	return true
}

func (p *Prefs) DisplayChat() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.displayChat
}

// ToggleChat flips chat display and returns the new value.
func (p *Prefs) ToggleChat() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.displayChat = !p.displayChat
	return p.displayChat
}
