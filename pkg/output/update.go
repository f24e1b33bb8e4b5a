package output

import (
	"github.com/Honorable-Knights-of-the-Roundtable/i2sout/pkg/block"
	"github.com/Honorable-Knights-of-the-Roundtable/i2sout/pkg/frame"
)

// Run one transfer cycle.
//
// The next block of each input is taken if one is queued. While the output is
// configured the blocks are packed and written to the peripheral, blocking
// until the whole buffer has been accepted. Otherwise nothing is written.
// Every acquired block is released exactly once before Update returns.
//
// Update never fails: an abandoned transfer is logged and counted in Stats.
func (o *Output) Update() {
	left := o.pool.TryAcquireReadOnly(block.InputLeft)
	right := o.pool.TryAcquireReadOnly(block.InputRight)
	defer o.release(left, right)

	o.counters.updates.Add(1)
	if o.State() != StateConfigured {
		o.counters.skipped.Add(1)
		return
	}

	o.updateMutex.Lock()
	defer o.updateMutex.Unlock()

	frame.Pack(&o.frames, left, right, o.conversion)
	n := o.frames.PutBytes(o.wire[:])

	result, err := o.submitter.Submit(o.wire[:n])
	o.counters.writes.Add(int64(result.Calls))
	o.counters.yields.Add(int64(result.Yields))
	o.counters.bytesWritten.Add(int64(result.Bytes))
	if err != nil {
		o.counters.incomplete.Add(1)
		o.logger.Error(
			"transfer abandoned",
			"accepted", result.Bytes,
			"total", n,
			"writes", result.Calls,
			"err", err,
		)
		return
	}
	o.counters.transfers.Add(1)
}

func (o *Output) release(left, right *block.Block) {
	if left != nil {
		o.pool.Release(left)
		o.counters.releases.Add(1)
	}
	if right != nil {
		o.pool.Release(right)
		o.counters.releases.Add(1)
	}
}
