package comm

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// mailboxDepth bounds the number of undelivered messages per rank pair
const mailboxDepth = 64

// World is an in-process group of ranks. Each rank talks to the others
// through per-pair mailboxes carrying encoded payloads.
type World struct {
	size  int
	boxes [][]chan []byte // boxes[source][target]

	mu      sync.Mutex
	cond    *sync.Cond
	waiting int
	gen     uint64

	done     chan struct{}
	doneOnce sync.Once
}

// NewWorld creates a world with size ranks
func NewWorld(size int) *World {
	if size < 1 {
		size = 1
	}
	w := &World{
		size:  size,
		boxes: make([][]chan []byte, size),
		done:  make(chan struct{}),
	}
	w.cond = sync.NewCond(&w.mu)
	for s := range w.boxes {
		w.boxes[s] = make([]chan []byte, size)
		for t := range w.boxes[s] {
			if s != t {
				w.boxes[s][t] = make(chan []byte, mailboxDepth)
			}
		}
	}
	return w
}

// Size returns the number of ranks
func (w *World) Size() int { return w.size }

// Comm returns the communicator for rank
func (w *World) Comm(rank int) Communicator {
	if rank < 0 || rank >= w.size {
		panic(fmt.Sprintf("comm: rank %d outside world of size %d", rank, w.size))
	}
	return &localComm{world: w, rank: rank}
}

// Run executes fn once per rank, each on its own goroutine, and waits for
// all of them. The first error closes the world so blocked peers return.
// A world is closed once Run returns.
func (w *World) Run(ctx context.Context, fn func(ctx context.Context, c Communicator) error) error {
	g, gctx := errgroup.WithContext(ctx)
	go func() {
		<-gctx.Done()
		w.Close()
	}()
	for r := 0; r < w.size; r++ {
		c := w.Comm(r)
		g.Go(func() error {
			if err := fn(gctx, c); err != nil {
				return fmt.Errorf("rank %d: %w", c.Rank(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Close releases every blocked Send, Receive and Barrier with ErrClosed
func (w *World) Close() {
	w.doneOnce.Do(func() {
		close(w.done)
		w.mu.Lock()
		w.cond.Broadcast()
		w.mu.Unlock()
	})
}

func (w *World) closed() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

func (w *World) barrier() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed() {
		return ErrClosed
	}
	gen := w.gen
	w.waiting++
	if w.waiting == w.size {
		w.waiting = 0
		w.gen++
		w.cond.Broadcast()
		return nil
	}
	for gen == w.gen {
		if w.closed() {
			return ErrClosed
		}
		w.cond.Wait()
	}
	return nil
}

type localComm struct {
	world *World
	rank  int
}

func (c *localComm) Rank() int { return c.rank }

func (c *localComm) Size() int { return c.world.size }

func (c *localComm) Barrier() error { return c.world.barrier() }

func (c *localComm) Send(target int, payload any) error {
	if err := checkPeer(c.rank, target, c.world.size); err != nil {
		return err
	}
	b, err := encode(payload)
	if err != nil {
		return err
	}
	select {
	case c.world.boxes[c.rank][target] <- b:
		return nil
	case <-c.world.done:
		return ErrClosed
	}
}

func (c *localComm) Receive(source int, payload any) error {
	if err := checkPeer(c.rank, source, c.world.size); err != nil {
		return err
	}
	select {
	case b := <-c.world.boxes[source][c.rank]:
		return decode(b, payload)
	case <-c.world.done:
		return ErrClosed
	}
}

// Self returns a communicator for a single-process run
func Self() Communicator { return selfComm{} }

type selfComm struct{}

func (selfComm) Rank() int { return Master }

func (selfComm) Size() int { return 1 }

func (selfComm) Barrier() error { return nil }

func (selfComm) Send(target int, _ any) error { return checkPeer(Master, target, 1) }

func (selfComm) Receive(source int, _ any) error { return checkPeer(Master, source, 1) }
