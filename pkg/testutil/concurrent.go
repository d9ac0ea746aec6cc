package testutil

import (
	"sync"
	"sync/atomic"

	dErrors "storefront/pkg/domain-errors"
)

// ConcurrentResult tracks outcomes of concurrent test operations.
type ConcurrentResult struct {
	Successes       int32
	NetworkFailures int32
	Rejected        int32
	Errors          int32
}

// Total returns the total number of operations executed.
func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.NetworkFailures + r.Rejected + r.Errors
}

// RunConcurrent executes fn in parallel goroutines and buckets the outcomes:
// success, network_failure, locally rejected input (invalid_quantity,
// no_active_session), or anything else.
func RunConcurrent(goroutines int, fn func(idx int) error) *ConcurrentResult {
	var wg sync.WaitGroup
	var successes, network, rejected, errs atomic.Int32

	for i := range goroutines {
		wg.Go(func() {
			err := fn(i)
			switch {
			case err == nil:
				successes.Add(1)
			case dErrors.HasCode(err, dErrors.CodeNetworkFailure):
				network.Add(1)
			case dErrors.HasCode(err, dErrors.CodeInvalidQuantity),
				dErrors.HasCode(err, dErrors.CodeNoActiveSession):
				rejected.Add(1)
			default:
				errs.Add(1)
			}
		})
	}
	wg.Wait()

	return &ConcurrentResult{
		Successes:       successes.Load(),
		NetworkFailures: network.Load(),
		Rejected:        rejected.Load(),
		Errors:          errs.Load(),
	}
}

// RunConcurrentCollect executes fn in parallel and collects all errors.
func RunConcurrentCollect(goroutines int, fn func(idx int) error) (successes int32, errs []error) {
	var wg sync.WaitGroup
	var mu sync.Mutex
	var successCount atomic.Int32
	collected := make([]error, 0)

	for i := range goroutines {
		wg.Go(func() {
			if err := fn(i); err != nil {
				mu.Lock()
				collected = append(collected, err)
				mu.Unlock()
				return
			}
			successCount.Add(1)
		})
	}
	wg.Wait()
	return successCount.Load(), collected
}
