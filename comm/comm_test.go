package comm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestWorld_SendReceive(t *testing.T) {
	w := NewWorld(3)
	err := w.Run(context.Background(), func(_ context.Context, c Communicator) error {
		if c.Rank() == Master {
			for r := 1; r < c.Size(); r++ {
				if err := c.Send(r, []uint64{uint64(r), 10 * uint64(r)}); err != nil {
					return err
				}
			}
			return nil
		}
		var ids []uint64
		if err := c.Receive(Master, &ids); err != nil {
			return err
		}
		if len(ids) != 2 || ids[0] != uint64(c.Rank()) || ids[1] != 10*uint64(c.Rank()) {
			return errors.New("payload mismatch")
		}
		return nil
	})
	require.NoError(t, err)
}

func TestWorld_PayloadIsCopied(t *testing.T) {
	w := NewWorld(2)
	src := []int{1, 2, 3}
	require.NoError(t, w.Comm(0).Send(1, src))
	src[0] = 99

	var dst []int
	require.NoError(t, w.Comm(1).Receive(0, &dst))
	assert.Equal(t, []int{1, 2, 3}, dst)
}

func TestWorld_Barrier(t *testing.T) {
	w := NewWorld(4)
	counts := make([]int, 4)
	err := w.Run(context.Background(), func(_ context.Context, c Communicator) error {
		for round := 0; round < 3; round++ {
			counts[c.Rank()]++
			if err := c.Barrier(); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 3, 3, 3}, counts)
}

func TestWorld_ErrorReleasesPeers(t *testing.T) {
	w := NewWorld(2)
	boom := errors.New("boom")
	err := w.Run(context.Background(), func(_ context.Context, c Communicator) error {
		if c.Rank() == Master {
			return boom
		}
		var v int
		return c.Receive(Master, &v)
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestCheckPeer(t *testing.T) {
	c := NewWorld(2).Comm(0)
	assert.ErrorIs(t, c.Send(0, 1), ErrSelfMessage)
	assert.ErrorIs(t, c.Send(5, 1), ErrInvalidRank)
	assert.ErrorIs(t, Self().Send(1, 1), ErrInvalidRank)
	assert.NoError(t, Self().Barrier())
}

func TestSendMatrix(t *testing.T) {
	w := NewWorld(2)
	a := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, SendMatrix(w.Comm(0), 1, a.Slice(0, 2, 1, 3).(*mat.Dense)))
	require.NoError(t, SendMatrix(w.Comm(0), 1, nil))

	got, err := ReceiveMatrix(w.Comm(1), 0)
	require.NoError(t, err)
	assert.True(t, mat.Equal(got, mat.NewDense(2, 2, []float64{2, 3, 5, 6})))

	empty, err := ReceiveMatrix(w.Comm(1), 0)
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestBroadcast(t *testing.T) {
	w := NewWorld(3)
	got := make([]string, 3)
	err := w.Run(context.Background(), func(_ context.Context, c Communicator) error {
		msg := ""
		if c.Rank() == Master {
			msg = "owners"
		}
		if err := Broadcast(c, &msg); err != nil {
			return err
		}
		got[c.Rank()] = msg
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"owners", "owners", "owners"}, got)
}
