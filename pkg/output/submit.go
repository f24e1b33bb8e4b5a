package output

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/Honorable-Knights-of-the-Roundtable/i2sout/pkg/peripheral"
)

var (
	ErrIncompleteTransfer = errors.New("peripheral did not accept the whole buffer")
)

// Bounds on how hard a Submitter tries to hand one buffer to the peripheral.
//
// A zero MaxAttempts or MaxElapsed is unbounded. WriteWait is passed to every
// Driver.Write as its maxWait.
type RetryPolicy struct {
	MaxAttempts int
	MaxElapsed  time.Duration
	WriteWait   time.Duration
}

// Retry forever with blocking writes: a buffer is never dropped, the
// transfer loop simply waits for the DMA ring to make room.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		WriteWait: peripheral.WaitForever,
	}
}

func (p RetryPolicy) bounded() bool {
	return p.MaxAttempts > 0 || p.MaxElapsed > 0
}

// Bookkeeping of a single Submit call.
type SubmitResult struct {
	// Number of Driver.Write calls made.
	Calls int
	// Number of times the submitter yielded after an incomplete write.
	Yields int
	// Bytes accepted by the peripheral.
	Bytes int
}

// Submitter writes whole buffers to a peripheral that may accept them piecewise.
type Submitter struct {
	logger *slog.Logger
	driver peripheral.Driver
	policy RetryPolicy
	yield  func()
}

// Create a Submitter. A nil yield defaults to runtime.Gosched, a nil logger to slog.Default.
func NewSubmitter(driver peripheral.Driver, policy RetryPolicy, yield func(), logger *slog.Logger) *Submitter {
	if yield == nil {
		yield = runtime.Gosched
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Submitter{
		logger: logger,
		driver: driver,
		policy: policy,
		yield:  yield,
	}
}

// Write p to the peripheral, retrying until every byte is accepted.
//
// Each write resumes at the first byte not yet accepted. The submitter yields
// after every write that leaves bytes outstanding, so a peripheral that
// accepts a1..ak bytes over k writes costs k calls and k-1 yields.
//
// Write errors count as zero progress and only the first one is logged.
// Submit gives up when the driver reports peripheral.ErrNotInstalled, or with
// ErrIncompleteTransfer when a bounded policy is exhausted.
func (s *Submitter) Submit(p []byte) (SubmitResult, error) {
	var result SubmitResult
	var start time.Time
	if s.policy.MaxElapsed > 0 {
		start = time.Now()
	}

	loggedError := false
	for result.Bytes < len(p) {
		n, err := s.driver.Write(p[result.Bytes:], s.policy.WriteWait)
		result.Calls++
		n = max(0, min(n, len(p)-result.Bytes))
		result.Bytes += n

		if err != nil {
			if errors.Is(err, peripheral.ErrNotInstalled) {
				return result, fmt.Errorf("submit after %d of %d bytes: %w", result.Bytes, len(p), err)
			}
			if !loggedError {
				s.logger.Warn(
					"peripheral write failed, retrying",
					"accepted", result.Bytes,
					"total", len(p),
					"err", err,
				)
				loggedError = true
			}
		}

		if result.Bytes == len(p) {
			break
		}

		if s.policy.bounded() {
			if s.policy.MaxAttempts > 0 && result.Calls >= s.policy.MaxAttempts ||
				s.policy.MaxElapsed > 0 && time.Since(start) >= s.policy.MaxElapsed {
				return result, fmt.Errorf("%w: %d of %d bytes after %d writes",
					ErrIncompleteTransfer, result.Bytes, len(p), result.Calls)
			}
		}

		s.yield()
		result.Yields++
	}

	return result, nil
}
