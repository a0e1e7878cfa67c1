// Package botlog writes the bot log: timestamped lines on the console and,
// when enabled, in a per-run file under the log directory.
package botlog

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

// Notifier receives error lines, e.g. a webhook.
type Notifier interface {
	Notify(text string)
}

type Options struct {
	Console io.Writer // default os.Stdout
	// Dir is the log directory. File logging needs it.
	Dir       string
	LogToFile bool
	Notifier  Notifier
	Now       func() time.Time
	// Color keeps ANSI sequences on the console. Nil means: only when the
	// console is a terminal.
	Color *bool
}

// Logger is safe for concurrent use.
type Logger struct {
	console  *log.Logger
	color    bool
	notifier Notifier
	now      func() time.Time
	dir      string

	mu     sync.Mutex
	toFile bool
	file   *os.File
	flog   *log.Logger
}

func New(opts Options) *Logger {
	if opts.Console == nil {
		opts.Console = os.Stdout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	color := false
	if opts.Color != nil {
		color = *opts.Color
	} else if f, ok := opts.Console.(*os.File); ok {
		color = isTerminal(f.Fd())
	}
	return &Logger{
		console:  log.New(opts.Console, "", 0),
		color:    color,
		notifier: opts.Notifier,
		now:      opts.Now,
		dir:      opts.Dir,
		toFile:   opts.LogToFile && opts.Dir != "",
	}
}

// SetFileLogging switches the file output on or off. The file is opened on
// the first line written after switching on.
func (l *Logger) SetFileLogging(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.toFile = on && l.dir != ""
}

// Path returns the current log file, or "" when none is open.
func (l *Logger) Path() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return ""
	}
	return l.file.Name()
}

func (l *Logger) Info(format string, args ...any) {
	l.write(true, fmt.Sprintf(format, args...))
}

// Error logs the line and forwards it to the notifier.
func (l *Logger) Error(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	l.write(true, msg)
	if l.notifier != nil {
		l.notifier.Notify(StripANSI(msg))
	}
}

// Chat logs a relayed chat line; it reaches the console only when display
// is set.
func (l *Logger) Chat(display bool, format string, args ...any) {
	l.write(display, fmt.Sprintf(format, args...))
}

// Cmd records an operator command in the file only.
func (l *Logger) Cmd(format string, args ...any) {
	l.write(false, "> "+fmt.Sprintf(format, args...))
}

func (l *Logger) write(display bool, msg string) {
	line := "[" + l.now().Format("15:04:05") + "] " + msg
	if display {
		if l.color {
			l.console.Print(line)
		} else {
			l.console.Print(StripANSI(line))
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.toFile {
		return
	}
	if l.file == nil {
		f, err := openLogFile(l.dir, l.now())
		if err != nil {
			l.toFile = false
			l.console.Printf("[%s] Couldn't open log file: %v", l.now().Format("15:04:05"), err)
			return
		}
		l.file = f
		l.flog = log.New(f, "", 0)
	}
	l.flog.Print(StripANSI(line))
}

// Close flushes and closes the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file, l.flog = nil, nil
	return err
}
