// Package logging implements the leveled textual log sink consulted by every
// other component. It is deliberately stdlib-only: no structured-logging
// library is introduced, matching the teacher's own logger middleware, which
// writes plain formatted lines rather than reaching for zerolog/zap/etc.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/SeleniaProject/Selenia-Web-Server-SWS/pkg/selenia/httperr"
)

// Level mirrors httperr.Level plus a DEBUG rung below INFO for engine-internal
// tracing that never reaches the HTTP error boundary.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FromHTTPErr maps an httperr.Level onto the logging Level scale.
func FromHTTPErr(l httperr.Level) Level {
	switch l {
	case httperr.LevelInfo:
		return Info
	case httperr.LevelWarn:
		return Warn
	case httperr.LevelError:
		return Error
	default:
		return Info
	}
}

// Logger is a minimal leveled writer. Create one with New (or use Default);
// a zero Logger has no output writer.
type Logger struct {
	mu     sync.Mutex
	out    io.Writer
	min    Level
	prefix string
}

// New creates a Logger writing to out, filtering anything below min.
func New(out io.Writer, min Level) *Logger {
	if out == nil {
		out = os.Stderr
	}
	return &Logger{out: out, min: min}
}

// Default is the process-wide logger used by components that do not carry
// their own Logger reference. Initialized lazily per §9's one-shot-guard
// design note.
var (
	defaultOnce sync.Once
	defaultLog  *Logger
)

// Default returns the process-wide Logger, creating it on first use.
func Default() *Logger {
	defaultOnce.Do(func() {
		defaultLog = New(os.Stderr, Info)
	})
	return defaultLog
}

// WithPrefix returns a copy of l that tags every line with prefix, e.g. the
// component name ("engine", "tlsstate", "procmgr").
func (l *Logger) WithPrefix(prefix string) *Logger {
	return &Logger{out: l.out, min: l.min, prefix: prefix}
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	if level < l.min {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	ts := time.Now().UTC().Format(time.RFC3339)
	msg := fmt.Sprintf(format, args...)
	if l.prefix != "" {
		fmt.Fprintf(l.out, "%s [%s] %s: %s\n", ts, level, l.prefix, msg)
		return
	}
	fmt.Fprintf(l.out, "%s [%s] %s\n", ts, level, msg)
}

func (l *Logger) Debugf(format string, args ...interface{}) { l.log(Debug, format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.log(Info, format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.log(Warn, format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.log(Error, format, args...) }

// LogStatus logs an httperr.Status at its mapped level, one line per request
// rejection, in the request-log shape the engine uses for every dispatch
// outcome (method, path, status, duration).
func (l *Logger) LogStatus(method, path string, status *httperr.Status, d time.Duration) {
	l.log(FromHTTPErr(status.Level), "%s %s -> %d (%s) in %s", method, path, status.Code, status.Message, d)
}

// LogRequest logs a successful dispatch the same way LogStatus logs a
// rejection, so access logs have one consistent shape regardless of outcome.
func (l *Logger) LogRequest(method, path string, code int, bytes int64, d time.Duration) {
	l.log(Info, "%s %s -> %d (%d bytes) in %s", method, path, code, bytes, d)
}
