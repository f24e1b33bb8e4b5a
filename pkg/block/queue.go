package block

import (
	"errors"
	"sync"
	"sync/atomic"
)

var (
	ErrNoSuchInput = errors.New("no input with specified index")
)

// A reference counted block allocator with one bounded FIFO per input.
//
// Producers Allocate a block (holding one reference), fill it, and Transmit it
// to an input. Consumers take blocks with TryAcquireReadOnly and hand them back
// with Release. A block returns to the free list once every reference is gone.
//
// All methods are safe for concurrent use.
type Queue struct {
	inputs []chan *Block
	free   sync.Pool
	inUse  atomic.Int64
}

// Create a queue with numInputs inputs, each holding at most depth blocks.
func NewQueue(numInputs int, depth int) *Queue {
	if depth < 1 {
		depth = 1
	}

	q := &Queue{
		inputs: make([]chan *Block, numInputs),
	}
	for i := range q.inputs {
		q.inputs[i] = make(chan *Block, depth)
	}
	q.free.New = func() any { return new(Block) }
	return q
}

// Get a block holding a single reference. The contents are not cleared.
func (q *Queue) Allocate() *Block {
	b := q.free.Get().(*Block)
	b.refs.Store(1)
	q.inUse.Add(1)
	return b
}

// Add a reference to b, e.g. before transmitting it to a second input.
func (q *Queue) Retain(b *Block) {
	b.refs.Add(1)
}

// Hand one reference of b to the given input.
//
// If the input is full the reference is released and false is returned,
// the same way a slow consumer loses blocks in a real time graph.
func (q *Queue) Transmit(input int, b *Block) (bool, error) {
	if input < 0 || input >= len(q.inputs) {
		q.Release(b)
		return false, ErrNoSuchInput
	}

	select {
	case q.inputs[input] <- b:
		return true, nil
	default:
		q.Release(b)
		return false, nil
	}
}

func (q *Queue) TryAcquireReadOnly(input int) *Block {
	if input < 0 || input >= len(q.inputs) {
		return nil
	}

	select {
	case b := <-q.inputs[input]:
		return b
	default:
		return nil
	}
}

// Drop one reference to b.
// Releasing a block that holds no references is a programming error and panics.
func (q *Queue) Release(b *Block) {
	refs := b.refs.Add(-1)
	switch {
	case refs == 0:
		q.inUse.Add(-1)
		q.free.Put(b)
	case refs < 0:
		panic("block: release of unreferenced block")
	}
}

// Number of blocks allocated and not yet fully released.
func (q *Queue) InUse() int {
	return int(q.inUse.Load())
}

// Number of blocks waiting on the given input.
func (q *Queue) Pending(input int) int {
	if input < 0 || input >= len(q.inputs) {
		return 0
	}
	return len(q.inputs[input])
}
