//go:build meshdebug

package mesh

const debugChecks = true
