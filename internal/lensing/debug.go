package lensing

import (
	"io"
	"log"
	"sync"
)

// LogWriters holds the io.Writers for each logging stream. Ops is for
// infrequent operational messages (sweep summaries); Diag is for
// per-candidate noise (failed refinements, invalid-ray statuses).
type LogWriters struct {
	Ops  io.Writer
	Diag io.Writer
}

var (
	logMu      sync.RWMutex
	opsLogger  *log.Logger
	diagLogger *log.Logger
)

// SetLogWriters configures both logging streams at once. Pass nil for
// any writer to disable that stream. The default is everything
// disabled: the engine is silent unless asked not to be.
func SetLogWriters(w LogWriters) {
	logMu.Lock()
	defer logMu.Unlock()
	opsLogger = newLogger("[lensing] ", w.Ops)
	diagLogger = newLogger("[lensing] ", w.Diag)
}

func newLogger(prefix string, w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, prefix, log.LstdFlags|log.Lmicroseconds)
}

func logOpsf(format string, args ...any) {
	logMu.RLock()
	l := opsLogger
	logMu.RUnlock()
	if l != nil {
		l.Printf(format, args...)
	}
}

func logDiagf(format string, args ...any) {
	logMu.RLock()
	l := diagLogger
	logMu.RUnlock()
	if l != nil {
		l.Printf(format, args...)
	}
}
