package session

import "time"

// Logger is the leveled sink for transition lines.
type Logger interface {
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// Observer is told about every transition. Used for metrics.
type Observer interface {
	SessionStarted()
	SessionOnline(online bool)
	OnlineMinute()
	Disconnected(cause Cause)
	JoinAttempt(outcome JoinOutcome)
}

// SessionRecord describes one finished online session.
type SessionRecord struct {
	ID            string
	Account       string
	Started       time.Time
	Ended         time.Time
	OnlineMinutes int
	Cause         string
}

// Recorder keeps finished sessions.
type Recorder interface {
	RecordSession(rec SessionRecord) error
}

type nopObserver struct{}

func (nopObserver) SessionStarted()         {}
func (nopObserver) SessionOnline(bool)      {}
func (nopObserver) OnlineMinute()           {}
func (nopObserver) Disconnected(Cause)      {}
func (nopObserver) JoinAttempt(JoinOutcome) {}

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
