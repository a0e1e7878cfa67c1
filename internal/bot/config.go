package bot

// Config is the part of the configuration the glue layer reads. It is
// re-applied on every reload and replaces runtime changes to the
// authorised set and the toggles.
type Config struct {
	AuthorisedPlayers []string
	IgnoreMessages    []string
	MsgResponse       string
	DisplayChat       bool
	ControlPassword   string
}

func (b *Bot) applyConfig(cfg Config) {
	b.auth.Replace(cfg.AuthorisedPlayers)
	b.prefs.Reset(cfg.MsgResponse, cfg.DisplayChat)
	b.chat.SetIgnore(cfg.IgnoreMessages)

	b.mu.Lock()
	b.controlPassword = cfg.ControlPassword
	b.mu.Unlock()
}
