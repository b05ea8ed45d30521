package waiton

import (
	"context"
	"sync"
	"time"

	"github.com/agilira/go-timecache"
	"vawter.tech/stopper"
)

// fileStability tracks one file's size and how long it's held that size.
// It's owned exclusively by the poller goroutine that created it; nothing
// else ever touches it, so it needs no synchronization of its own (the
// mutex on poller guards access from evaluate, which can run concurrently
// with a dispatched probe's own goroutine).
type fileStability struct {
	size        int64
	firstSeenAt time.Time
}

// now is the poller's time source. It is a var so tests can't accidentally
// depend on wall-clock skew across a long-running suite; production code
// always uses go-timecache's cached reads to avoid a syscall on every tick
// of a hot poll loop.
var now = timecache.CachedTime

// poller drives one resource's state machine to completion: it waits out an
// optional delay, dispatches probes on a fixed interval bounded by
// Simultaneous, and latches done on the first probe result that satisfies
// the resource's success predicate. It owns one state-machine goroutine, one
// goroutine per in-flight probe, and one prober.
type poller struct {
	descriptor Descriptor
	opts       Options
	prober     prober

	mu sync.Mutex
	fs fileStability
}

// newPoller constructs a poller for one resource. Runtime state lives only
// for the run and is discarded once it completes.
func newPoller(d Descriptor, opts Options) *poller {
	return &poller{
		descriptor: d,
		opts:       opts,
		prober:     newProber(d, opts),
		fs:         fileStability{size: -1, firstSeenAt: now()},
	}
}

// run executes the poller until it latches Done or sctx starts stopping. It
// sends false once at startup and true exactly once on success, then closes
// done. The returned channel has capacity 2 so both sends never block on a
// slow reader.
//
// The state machine goroutine, and every in-flight probe it dispatches, is
// registered with sctx.Go rather than launched with a bare "go func(){}()".
// That's what makes sctx.Wait() at the top of Run mean something: it only
// returns once every probe here has actually released its socket or file
// handle, not merely once ctx has been cancelled.
func (p *poller) run(sctx *stopper.Context, ctx context.Context) <-chan bool {
	done := make(chan bool, 2)

	sctx.Go(func(sctx *stopper.Context) error {
		defer close(done)

		select {
		case done <- false:
		case <-sctx.Stopping():
			return nil
		}

		pollCtx, cancel := context.WithCancel(ctx)
		sctx.Defer(cancel)

		if p.opts.Delay > 0 {
			t := time.NewTimer(p.opts.Delay)
			select {
			case <-t.C:
			case <-sctx.Stopping():
				t.Stop()
				return nil
			}
		}

		results := make(chan probeResult, 1)
		sem := newSemaphore(p.opts.Simultaneous)

		dispatch := func() {
			if !sem.tryAcquire() {
				p.opts.Logger.Debug("simultaneous probe bound reached, dropping tick", "resource", p.descriptor.Raw)
				return
			}
			sctx.Go(func(sctx *stopper.Context) error {
				r := p.prober.probe(pollCtx)
				sem.release()
				select {
				case results <- r:
				case <-sctx.Stopping():
				}
				return nil
			})
		}

		// A zero Interval has no ticker: the next probe is dispatched as soon
		// as the previous one's result has been evaluated.
		var tick <-chan time.Time
		if *p.opts.Interval > 0 {
			ticker := time.NewTicker(*p.opts.Interval)
			sctx.Defer(ticker.Stop)
			tick = ticker.C
		}

		dispatch()

		for {
			select {
			case <-sctx.Stopping():
				return nil

			case r := <-results:
				p.opts.Logger.Debug("probe result", "resource", p.descriptor.Raw, "available", r.Available, "size", r.Size)

				if p.evaluate(r) {
					select {
					case done <- true:
					case <-sctx.Stopping():
					}
					return nil
				}
				if tick == nil {
					dispatch()
				}

			case <-tick:
				dispatch()
			}
		}
	})

	return done
}

// evaluate applies the success predicate for one probe result, given the
// resource's kind and reverse mode.
func (p *poller) evaluate(r probeResult) bool {
	if p.descriptor.Kind == KindFile {
		if p.opts.Reverse {
			return r.Size == -1
		}
		return p.evaluateFileStability(r.Size)
	}
	if p.opts.Reverse {
		return !r.Available
	}
	return r.Available
}

// evaluateFileStability declares a file ready once it has sat at one
// constant, non-negative size for at least Window. Any size change, or the
// file disappearing, resets the clock.
func (p *poller) evaluateFileStability(size int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := now()

	switch {
	case size == -1:
		p.fs = fileStability{size: -1, firstSeenAt: n}
		return false
	case p.fs.size == -1 || size != p.fs.size:
		p.fs = fileStability{size: size, firstSeenAt: n}
		return false
	default:
		return n.Sub(p.fs.firstSeenAt) >= *p.opts.Window
	}
}

// semaphore bounds concurrent probe dispatch to Options.Simultaneous.
// A zero limit means unbounded.
type semaphore struct {
	slots chan struct{}
}

func newSemaphore(limit int) *semaphore {
	if limit <= 0 {
		return &semaphore{}
	}
	return &semaphore{slots: make(chan struct{}, limit)}
}

func (s *semaphore) tryAcquire() bool {
	if s.slots == nil {
		return true
	}
	select {
	case s.slots <- struct{}{}:
		return true
	default:
		return false
	}
}

func (s *semaphore) release() {
	if s.slots == nil {
		return
	}
	<-s.slots
}
