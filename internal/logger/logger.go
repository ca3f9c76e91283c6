// Package logger provides the diagnostic-channel logger used by the
// lifecycle commands and the filter engine. Filter invocations must never
// mix diagnostics with stdout (spec.md §4.5), so every message here goes to
// the writer the caller supplies, independent of the transformed stream.
package logger

import (
	"io"
	"log"
	"os"
)

type Logger struct {
	ll *log.Logger
	// If TestOnlyPanicInsteadOfExit is true, Exit sets TestOnlyDidExit and
	// panics instead of calling os.Exit, so tests can recover the exit code.
	TestOnlyPanicInsteadOfExit bool
	TestOnlyDidExit            bool
}

var Global = New(os.Stderr)

func New(w io.Writer) *Logger {
	return &Logger{ll: log.New(w, "", 0)}
}

func (l *Logger) Exit(code int) {
	if l.TestOnlyPanicInsteadOfExit {
		l.TestOnlyDidExit = true
		panic(code)
	}
	os.Exit(code)
}

func (l *Logger) Printf(format string, v ...interface{}) {
	l.ll.Printf("seekgits: "+format, v...)
}

// Errorf reports a fatal lifecycle error and exits with status 1. It must
// not be used from the filter engine, which always exits 0 (spec.md §6).
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.Printf("error: "+format, v...)
	l.Exit(1)
}

// Warningf reports a non-fatal diagnostic, used by the filter engine when
// it falls back to safe pass-through (spec.md §4.5, §7).
func (l *Logger) Warningf(format string, v ...interface{}) {
	l.Printf("warning: "+format, v...)
}
