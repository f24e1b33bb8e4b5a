package block

import (
	"sync/atomic"
)

// The number of samples in every audio block, shared by every stage of the graph.
const Samples = 128

// Indices of the two inputs an output stage reads from.
const (
	InputLeft  = 0
	InputRight = 1
)

// One channel's worth of normalized float samples for one processing cycle.
//
// Blocks are owned by a Pool. A stage that acquires a block borrows it read-only
// and must hand it back with Pool.Release exactly once.
type Block struct {
	Data [Samples]float32

	refs atomic.Int32
}

// Fill every sample of the block with the same value.
func (b *Block) Fill(value float32) {
	for i := range b.Data {
		b.Data[i] = value
	}
}

// Pool is the contract an output stage needs from the block allocator.
type Pool interface {
	// Take the next block queued on the given input, if any.
	// Never blocks. A nil return means no block is available this cycle.
	TryAcquireReadOnly(input int) *Block

	// Give back a block previously returned by TryAcquireReadOnly.
	Release(b *Block)
}
