package waiton

import (
	"context"
	"sync"
	"time"

	"vawter.tech/stopper"
)

// cancelGrace is how long Run gives in-flight probes to release their
// sockets and file handles cooperatively before returning. Every poller,
// its probe dispatches, and the aggregator's fan-in goroutines are
// registered via sctx.Go (see poller.go, aggregator.go), so sctx.Wait()
// below genuinely blocks on that in-flight work instead of returning
// immediately.
const cancelGrace = 100 * time.Millisecond

// Run blocks until every resource in opts is available (or, under reverse
// mode, unavailable), or returns once opts.Timeout elapses. It validates
// opts first and returns a *Error of KindConfigInvalid synchronously on bad
// input. A blocking call is the natural Go shape for "wait for this, then
// continue"; RunCallback below exists for callers that want the async form
// instead.
func Run(ctx context.Context, opts Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	logger := opts.Logger

	if opts.Reverse {
		logger.Info("reverse mode: waiting for resources to become unavailable")
	}

	descriptors := make([]Descriptor, len(opts.Resources))
	for i, r := range opts.Resources {
		descriptors[i] = ParseResource(r)
	}

	sctx := stopper.WithContext(ctx)
	runCtx, cancel := context.WithCancel(ctx)
	sctx.Defer(cancel)
	defer func() {
		sctx.Stop(cancelGrace)
		_ = sctx.Wait()
	}()

	agg := newAggregator(descriptors, opts)
	snapshots := agg.run(sctx, runCtx, logger)

	deadline := newRunDeadline(opts.Timeout)
	defer deadline.stop()

	pending := allRaw(descriptors)

	for {
		select {
		case snap, ok := <-snapshots:
			if !ok {
				logger.Info("all resources available")
				return nil
			}
			pending = agg.pendingFrom(snap)
			if len(pending) == 0 {
				logger.Info("all resources available")
				return nil
			}

		case <-deadline.fired():
			err := newTimeoutError(pending)
			logger.Info("timed out waiting for resources", "pending", pending)
			return err

		case <-ctx.Done():
			return newFatalError(ctx.Err())
		}
	}
}

// RunCallback runs opts in the background and delivers the result to cb
// exactly once. sync.Once guards against a caller-supplied cb being called
// twice if Run's cleanup path is ever revised to retry delivery.
func RunCallback(ctx context.Context, opts Options, cb func(error)) {
	var once sync.Once
	deliver := func(err error) {
		once.Do(func() { cb(err) })
	}

	go func() {
		deliver(Run(ctx, opts))
	}()
}

func allRaw(descriptors []Descriptor) []string {
	out := make([]string, len(descriptors))
	for i, d := range descriptors {
		out[i] = d.Raw
	}
	return out
}
