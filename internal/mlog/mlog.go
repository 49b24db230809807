// Package mlog provides the process-wide message logger Muninn's core
// uses for non-fatal, recoverable conditions (a deletion policy refusing
// to evict, a round prolonged after a failed estimate, a weight lookup
// falling back to +Inf after MaxBinsExceeded). It wraps logrus the way
// grafana-k6's log package wraps it with a custom formatter, but keeps the
// surface minimal: Muninn only needs leveled, formatted messages, not
// hooks or structured fields.
package mlog

import (
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	mu      sync.RWMutex
	logger  = defaultLogger()
)

func defaultLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.InfoLevel)
	return l
}

// SetLogger installs a host-supplied logger, replacing the default created
// at package initialization. Passing nil restores the default. This is the host boundary
// alluded to in the concurrency model: initialization and shutdown of the
// global logger are the host's responsibility.
func SetLogger(l *logrus.Logger) {
	mu.Lock()
	defer mu.Unlock()
	if l == nil {
		logger = defaultLogger()
		return
	}
	logger = l
}

// SetVerbosity maps Muninn's 0-5 "verbose" setting onto a logrus level:
// 0 silences everything, 5 is Trace. This mirrors the verbose field of the
// settings record in spec.md §6.
func SetVerbosity(verbose int) {
	mu.Lock()
	defer mu.Unlock()
	switch {
	case verbose <= 0:
		// No level silences every logrus level outright, so additionally
		// redirect output to a discard sink.
		logger.SetLevel(logrus.PanicLevel)
		logger.SetOutput(discard{})
	case verbose == 1:
		logger.SetLevel(logrus.ErrorLevel)
	case verbose == 2:
		logger.SetLevel(logrus.WarnLevel)
	case verbose == 3:
		logger.SetLevel(logrus.InfoLevel)
	case verbose == 4:
		logger.SetLevel(logrus.DebugLevel)
	default:
		logger.SetLevel(logrus.TraceLevel)
	}
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func get() *logrus.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Warnf logs at Warn level: deletion-policy refusals, recovered
// NoSolution/NoOverlap rounds, and similar non-fatal conditions.
func Warnf(format string, args ...interface{}) { get().Warnf(format, args...) }

// Infof logs at Info level: completed estimation rounds, transitions out
// of initial collection, and similar lifecycle events.
func Infof(format string, args ...interface{}) { get().Infof(format, args...) }

// Debugf logs at Debug level: per-observation bookkeeping a host would
// only want during troubleshooting.
func Debugf(format string, args ...interface{}) { get().Debugf(format, args...) }
