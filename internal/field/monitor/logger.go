package monitor

import "log"

// Logf emits probe progress messages, log.Printf by default. Long probe
// runs report through it; library callers that want silence swap it out
// with SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger redirects probe progress messages. A nil f mutes them.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
