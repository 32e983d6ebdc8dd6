package mesh

import "fmt"

// assertf panics when cond is false. Checks only run in builds tagged
// meshdebug; otherwise the call folds away.
func assertf(cond bool, format string, args ...any) {
	if debugChecks && !cond {
		panic(fmt.Sprintf("mesh: assertion failed: "+format, args...))
	}
}
