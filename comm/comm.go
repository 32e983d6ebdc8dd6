// Package comm provides the point-to-point messaging layer used to move
// partition data between processes. All operations block.
package comm

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"gonum.org/v1/gonum/mat"
)

// Master is the rank that owns the authoritative mesh
const Master = 0

var (
	// ErrInvalidRank indicates a send or receive addressed a rank outside [0, Size).
	ErrInvalidRank = errors.New("comm: rank out of range")
	// ErrSelfMessage indicates a rank tried to message itself.
	ErrSelfMessage = errors.New("comm: send/receive to self is not supported")
	// ErrClosed indicates the world was shut down while a call was blocked.
	ErrClosed = errors.New("comm: world closed")
)

// Communicator is the messaging collaborator. Payloads are encoded on Send
// and decoded into the value pointed to by payload on Receive, so no memory
// is ever shared between ranks.
type Communicator interface {
	Rank() int
	Size() int
	Barrier() error
	Send(target int, payload any) error
	Receive(source int, payload any) error
}

// encode and decode are the wire codec for every payload
func encode(payload any) ([]byte, error) {
	b, err := msgpack.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("comm: encode %T: %w", payload, err)
	}
	return b, nil
}

func decode(b []byte, payload any) error {
	if err := msgpack.Unmarshal(b, payload); err != nil {
		return fmt.Errorf("comm: decode %T: %w", payload, err)
	}
	return nil
}

// densePayload is the wire form of a dense matrix
type densePayload struct {
	Rows int       `msgpack:"r"`
	Cols int       `msgpack:"c"`
	Data []float64 `msgpack:"d"`
}

// SendMatrix sends a dense matrix of reals to target
func SendMatrix(c Communicator, target int, a *mat.Dense) error {
	if a == nil || a.IsEmpty() {
		return c.Send(target, densePayload{})
	}
	r, cols := a.Dims()
	raw := a.RawMatrix()
	data := raw.Data
	if raw.Stride != cols || len(data) != r*cols {
		data = mat.DenseCopyOf(a).RawMatrix().Data
	}
	return c.Send(target, densePayload{Rows: r, Cols: cols, Data: data})
}

// ReceiveMatrix receives a dense matrix sent with SendMatrix. An empty
// matrix is returned as nil.
func ReceiveMatrix(c Communicator, source int) (*mat.Dense, error) {
	var p densePayload
	if err := c.Receive(source, &p); err != nil {
		return nil, err
	}
	if p.Rows == 0 || p.Cols == 0 {
		return nil, nil
	}
	if len(p.Data) != p.Rows*p.Cols {
		return nil, fmt.Errorf("comm: matrix payload %dx%d carries %d values", p.Rows, p.Cols, len(p.Data))
	}
	return mat.NewDense(p.Rows, p.Cols, p.Data), nil
}

// Broadcast sends payload from the master to every other rank. Workers
// receive into payload.
func Broadcast(c Communicator, payload any) error {
	if c.Rank() == Master {
		for r := 0; r < c.Size(); r++ {
			if r == Master {
				continue
			}
			if err := c.Send(r, payload); err != nil {
				return fmt.Errorf("broadcast to rank %d: %w", r, err)
			}
		}
		return nil
	}
	return c.Receive(Master, payload)
}

func checkPeer(self, peer, size int) error {
	if peer < 0 || peer >= size {
		return fmt.Errorf("%w: %d (size %d)", ErrInvalidRank, peer, size)
	}
	if peer == self {
		return ErrSelfMessage
	}
	return nil
}
