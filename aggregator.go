package waiton

import (
	"context"

	"vawter.tech/stopper"
)

// aggregator combines every resource's poller into a single snapshot
// stream. It also computes, on every change, the subset of resources still
// pending — the same data the CLI's waiting-for logger and the deadline's
// timeout message both need.
type aggregator struct {
	resources []Descriptor
	pollers   []*poller
}

func newAggregator(resources []Descriptor, opts Options) *aggregator {
	pollers := make([]*poller, len(resources))
	for i, d := range resources {
		pollers[i] = newPoller(d, opts)
	}
	return &aggregator{resources: resources, pollers: pollers}
}

// update is one poller's contribution to the shared state, tagged with its
// index in resources/pollers so the fan-in goroutine can update the right
// slot regardless of arrival order.
type update struct {
	idx  int
	done bool
}

// run starts every poller and returns a channel of snapshots, one []bool per
// resource in resources order. The channel closes once every element is
// true, or once sctx starts stopping. Invariant 4 (non-decreasing count of
// done resources) holds because a latched poller only ever sends true once
// and state[idx] is only ever set, never cleared.
//
// Both the per-poller fan-in reader and the aggregating goroutine below are
// registered with sctx.Go, so a stop genuinely waits for them (and every
// poller and probe goroutine they depend on) to unwind, not just for ctx to
// be marked done.
func (a *aggregator) run(sctx *stopper.Context, ctx context.Context, logger Logger) <-chan []bool {
	snapshots := make(chan []bool, 1)
	updates := make(chan update, len(a.pollers)*2+1)

	for i, p := range a.pollers {
		i, p := i, p
		ch := p.run(sctx, ctx)
		sctx.Go(func(sctx *stopper.Context) error {
			for v := range ch {
				select {
				case updates <- update{idx: i, done: v}:
				case <-sctx.Stopping():
					return nil
				}
			}
			return nil
		})
	}

	sctx.Go(func(sctx *stopper.Context) error {
		defer close(snapshots)

		state := make([]bool, len(a.pollers))
		remaining := len(state)

		for {
			select {
			case <-sctx.Stopping():
				return nil

			case u, ok := <-updates:
				if !ok {
					return nil
				}
				if u.done && !state[u.idx] {
					state[u.idx] = true
					remaining--
				}

				logger.Debug("waiting for resources", "pending", a.pendingFrom(state))

				snap := append([]bool(nil), state...)
				select {
				case snapshots <- snap:
				case <-sctx.Stopping():
					return nil
				}

				if remaining == 0 {
					return nil
				}
			}
		}
	})

	return snapshots
}

// pendingFrom returns the raw resource strings not yet done in state, in
// original resource order.
func (a *aggregator) pendingFrom(state []bool) []string {
	var pending []string
	for i, done := range state {
		if !done {
			pending = append(pending, a.resources[i].Raw)
		}
	}
	return pending
}
