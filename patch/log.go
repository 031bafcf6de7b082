package patch

import "log"

// Logger receives diagnostic messages for cleanup steps that Remove
// skips without returning an error (Dr's debug-register cleanup when
// the armed thread's generation has changed or the thread cannot be
// opened). Close does not log: it returns its errors to the caller.
// Injectable, defaulting to the standard logger.
type Logger interface {
	Printf(format string, args ...any)
}

var activeLogger Logger = log.Default()

// SetLogger replaces the package-wide logger used to report those
// skipped cleanup steps.
func SetLogger(l Logger) {
	if l == nil {
		l = log.Default()
	}
	activeLogger = l
}

func logf(format string, args ...any) {
	activeLogger.Printf(format, args...)
}
