// Package proc carries the per-process context handed to every mesh
// component: who this process is, how it talks to the others, and where it
// logs.
package proc

import (
	"log/slog"

	"github.com/cmesse/belfem-sub005/comm"
)

// Context is created once at program start and passed by value into the
// builder, partitioner, ghost linker and coordinator constructors.
type Context struct {
	Comm comm.Communicator
	Log  *slog.Logger
}

// New returns a context for the given communicator and log sink. A nil
// communicator means a single-process run; a nil logger means slog.Default.
func New(c comm.Communicator, log *slog.Logger) Context {
	if c == nil {
		c = comm.Self()
	}
	if log == nil {
		log = slog.Default()
	}
	return Context{Comm: c, Log: log.With("rank", c.Rank())}
}

// Default is a single-process context logging through slog.Default
func Default() Context {
	return New(nil, nil)
}

// Communicator returns the messaging layer, never nil
func (c Context) Communicator() comm.Communicator { return c.comm() }

// Rank returns this process's rank
func (c Context) Rank() int { return c.comm().Rank() }

// Size returns the number of processes
func (c Context) Size() int { return c.comm().Size() }

// IsMaster reports whether this process owns the authoritative mesh
func (c Context) IsMaster() bool { return c.Rank() == comm.Master }

// Logger never returns nil
func (c Context) Logger() *slog.Logger {
	if c.Log == nil {
		return slog.Default()
	}
	return c.Log
}

func (c Context) comm() comm.Communicator {
	if c.Comm == nil {
		return comm.Self()
	}
	return c.Comm
}
