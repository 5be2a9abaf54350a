// Package logging provides structured logging for videostream bots.
//
// Logger wraps a standard slog.Logger for local output and optionally
// mirrors every entry to a NATS subject (logs.{bot_id}.{component}) so a
// fleet of bots can stream their logs to a central collector. The mirror
// is best-effort: publish failures are reported locally and never
// interrupt the bot.
package logging
