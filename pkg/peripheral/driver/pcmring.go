package driver

import (
	"errors"
	"sync"
	"time"
)

var errRingClosed = errors.New("playback ring closed")

// A bounded byte ring between the transfer loop (writer) and a pull based
// audio backend (reader). Frames written in are converted to signed 16-bit
// little endian stereo on the way.
type pcmRing struct {
	mu      sync.Mutex
	buf     []byte
	readPos int
	count   int
	// Bytes ever written, to keep track of the position within a frame
	// across partial writes.
	total     int64
	underruns int64
	closed    bool

	space chan struct{}
}

func newPCMRing(capacity int) *pcmRing {
	return &pcmRing{
		buf:   make([]byte, capacity),
		space: make(chan struct{}, 1),
	}
}

// Copy as much of p as fits, blocking up to maxWait for space.
// Returns errRingClosed once close has been called.
func (r *pcmRing) write(p []byte, maxWait time.Duration) (int, error) {
	var timeout <-chan time.Time
	if maxWait > 0 {
		timer := time.NewTimer(maxWait)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return 0, errRingClosed
		}
		if free := len(r.buf) - r.count; free > 0 || len(p) == 0 {
			n := min(free, len(p))
			writePos := (r.readPos + r.count) % len(r.buf)
			for i := range n {
				b := p[i]
				// The high byte of each biased sample sits at odd offsets.
				if (r.total+int64(i))%2 == 1 {
					b ^= 0x80
				}
				r.buf[(writePos+i)%len(r.buf)] = b
			}
			r.count += n
			r.total += int64(n)
			r.mu.Unlock()
			return n, nil
		}
		r.mu.Unlock()

		if maxWait == 0 {
			return 0, nil
		}
		select {
		case <-r.space:
		case <-timeout:
			return 0, nil
		}
	}
}

// Fill p with queued bytes, padding with silence on underrun.
// Never returns an error so the backend keeps pulling.
func (r *pcmRing) Read(p []byte) (int, error) {
	r.mu.Lock()
	n := min(r.count, len(p))
	for i := range n {
		p[i] = r.buf[(r.readPos+i)%len(r.buf)]
	}
	r.readPos = (r.readPos + n) % len(r.buf)
	r.count -= n
	if n < len(p) {
		clear(p[n:])
		if !r.closed {
			r.underruns++
		}
	}
	r.mu.Unlock()

	if n > 0 {
		select {
		case r.space <- struct{}{}:
		default:
		}
	}
	return len(p), nil
}

func (r *pcmRing) close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	select {
	case r.space <- struct{}{}:
	default:
	}
}

func (r *pcmRing) queued() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

func (r *pcmRing) underrunCount() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.underruns
}
