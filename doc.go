// Package waiton provides a concurrent availability engine that blocks until
// a set of heterogeneous resources — files, HTTP(S) endpoints, TCP ports, and
// Unix domain sockets — all reach a desired state, then returns.
//
// The core entry point is Run, which polls every resource on its own cadence
// and returns once all of them are available, or fails once a global deadline
// elapses:
//
//	err := waiton.Run(context.Background(), waiton.Options{
//	    Resources: []string{"tcp:localhost:5432", "http://localhost:8080/health"},
//	    Timeout:   30 * time.Second,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Manager for Bulk Waits
//
// The Manager type runs several independent waits concurrently. It's useful
// for pipelines that gate on unrelated groups of resources with different
// timeouts:
//
//	manager := waiton.NewManager(
//	    waiton.WithConcurrency(4),
//	)
//	err := manager.Run(ctx, optsA, optsB, optsC)
//
// If a caller already has its own concurrency framework, or only ever
// performs a single Run, the Manager is unnecessary — Run alone is the whole
// engine.
//
// # Design Philosophy
//
// This library prioritizes:
//
//   - Cooperative cancellation: no goroutine outlives the run that started it
//   - Type safety (a tagged Kind, not string-based dispatch)
//   - Exactly-once delivery of the terminal result
//   - Context-aware operations with proper timeouts throughout
package waiton
