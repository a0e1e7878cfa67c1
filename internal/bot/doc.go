// Package bot is the glue between the session supervisor and the people
// talking to the bot. It:
//   - answers in-game private messages (login, logout, chat, stop, dropinv)
//     and the optional auto-response;
//   - accepts teleport requests from authorised players;
//   - filters the server chat before it is logged;
//   - serves the operator console (#help, #citybuild, #authorise, ...).
//
// Lifecycle:
//   - The supervisor and the bot need each other: build the supervisor with
//     session.Hooks closures over a *Bot variable, then assign that variable
//     with New(sup, logger, cfg, load) before Run.
//   - Run NewConsole(b, os.Stdout).Run(ctx, os.Stdin) next to the supervisor.
//
// Example:
//
//	var b *bot.Bot
//	sup := session.New(session.Options{
//		Hooks: session.Hooks{
//			OnPrivateMessage:  func(pm session.PrivateMessage) { b.HandlePrivateMessage(pm) },
//			OnChat:            func(m session.ChatMessage) { b.HandleChat(m) },
//			OnTeleportRequest: func(r session.TeleportRequest) { b.HandleTeleport(r) },
//		},
//		// ...
//	})
//	b = bot.New(sup, logger, cfg, loadBotConfig)
//	go func() { _ = bot.NewConsole(b, os.Stdout).Run(ctx, os.Stdin) }()
//
// Configuration:
//   - Config is re-applied on every reload. Players authorised at runtime
//     (via "login" or #authorise) are forgotten on reload.
package bot
