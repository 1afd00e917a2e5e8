package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger is the process-wide structured logger. Components take scoped entries
// from it instead of logging through globals of their own.
var Logger = logrus.New()

// Init configures the global logger.
// In production (ENVIRONMENT=production) it uses JSON output for log aggregation.
// Otherwise it uses the human-readable text formatter.
func Init() {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	Configure(os.Stdout, env == "production")
}

// Configure points the global logger at w with the formatter for the environment
func Configure(w io.Writer, production bool) {
	Logger.SetOutput(w)
	if production {
		Logger.SetFormatter(&logrus.JSONFormatter{})
		Logger.SetLevel(logrus.InfoLevel)
		return
	}
	Logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	Logger.SetLevel(logrus.DebugLevel)
}

// WithComponent returns a logger scoped to a subsystem (e.g. "charts", "shaper")
func WithComponent(component string) *logrus.Entry {
	return Logger.WithField("component", component)
}

// WithRequest returns a logger with the outbound request ID attached
func WithRequest(entry *logrus.Entry, requestID string) *logrus.Entry {
	return entry.WithField("request_id", requestID)
}

// Discard returns an entry that drops everything, for tests and optional wiring
func Discard() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}
