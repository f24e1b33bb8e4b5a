package source

import (
	"github.com/Honorable-Knights-of-the-Roundtable/i2sout/pkg/block"
)

// Something that fills audio blocks for an output stage.
//
// Each Produce call transmits at most one block to each input of the queue.
// A producer with nothing more to give returns io.EOF.
type Producer interface {
	Produce(q *block.Queue) error
	Close() error
}

// A full input drops the block, so only an unknown input is an error.
func transmit(q *block.Queue, input int, b *block.Block) error {
	_, err := q.Transmit(input, b)
	return err
}
