package waiton

import (
	"context"
	"sync"
)

// Manager runs several independent Options through Run concurrently, with a
// bounded worker pool. A semaphore gates concurrent Run calls across many
// resource groups, each with its own timeout and resource list.
type Manager struct {
	// Concurrency is the maximum number of concurrent Run calls.
	Concurrency int
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithConcurrency sets the maximum number of concurrent Run calls.
func WithConcurrency(n int) ManagerOption {
	return func(m *Manager) {
		m.Concurrency = n
	}
}

// NewManager creates a new Manager with default settings.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{Concurrency: 10}
	for _, opt := range opts {
		opt(m)
	}
	if m.Concurrency < 1 {
		m.Concurrency = 1
	}
	return m
}

// Run runs every element of sets concurrently, bounded by m.Concurrency, and
// returns a *MultiError aggregating every failure. A nil return means every
// set's resources became available.
func (m *Manager) Run(ctx context.Context, sets ...Options) error {
	if len(sets) == 0 {
		return nil
	}

	sem := make(chan struct{}, m.Concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	merr := &MultiError{}

	for _, opts := range sets {
		wg.Add(1)
		go func(opts Options) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				mu.Lock()
				merr.Add(ctx.Err())
				mu.Unlock()
				return
			}

			if err := Run(ctx, opts); err != nil {
				mu.Lock()
				merr.Add(err)
				mu.Unlock()
			}
		}(opts)
	}

	wg.Wait()

	return merr.Err()
}
