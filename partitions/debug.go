package partitions

import "fmt"

// assertf panics when cond is false in builds tagged meshdebug
func assertf(cond bool, format string, args ...any) {
	if debugChecks && !cond {
		panic(fmt.Sprintf("partitions: assertion failed: "+format, args...))
	}
}
