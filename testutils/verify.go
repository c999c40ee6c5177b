// Package testutils provides helpers shared by the test suites of this module.
package testutils

import (
	"go.uber.org/goleak"
)

// VerifyTestMain runs the tests and fails the package if any goroutine outlives them.
func VerifyTestMain(m goleak.TestingM) {
	goleak.VerifyTestMain(m,
		// lumberjack starts one compression goroutine per file logger and never stops it.
		goleak.IgnoreAnyFunction("gopkg.in/natefinch/lumberjack%2ev2.(*Logger).millRun"),
		goleak.IgnoreAnyFunction("gopkg.in/natefinch/lumberjack.v2.(*Logger).millRun"),
	)
}
