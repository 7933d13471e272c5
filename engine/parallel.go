package engine

import (
	"context"
	"sync"
)

// parallel calls fn(ctx, i) for every i in [0,n) on at most e.workers
// goroutines. With failFast the first error cancels the work not yet started
// and is returned; otherwise every index runs and parallel returns only the
// context error.
func (e *Engine) parallel(ctx context.Context, n int, failFast bool, fn func(ctx context.Context, i int) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan int)

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)

	for range min(e.workers, n) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if err := fn(ctx, i); err != nil && failFast {
					errOnce.Do(func() {
						firstErr = err
						cancel()
					})
				}
			}
		}()
	}

feed:
	for i := range n {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}

	return ctx.Err()
}
