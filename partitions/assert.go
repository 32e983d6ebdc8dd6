//go:build !meshdebug

package partitions

const debugChecks = false
