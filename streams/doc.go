// Package streams implements a pull-based reactive stream abstraction:
// publishers, subscribers, subscriptions, and an operator library, all
// driven by explicit demand signaling.
//
// # Contract
//
// Subscribe delivers exactly one OnSubscribe before any other signal.
// Data then flows under demand: the subscriber calls Request(n); the
// source emits at most n items via OnNext, decrementing outstanding
// demand by one per item. When its data is exhausted the source emits
// OnComplete; on failure it emits OnError and stops. Exactly one terminal
// signal is delivered per subscription lifetime.
//
// Signal delivery is strictly sequential: the contract assumes a single
// goroutine delivers all signals to one subscriber. Cancellation is
// cooperative; Cancel invoked reentrantly from inside signal delivery is
// deferred until the active delivery unwinds.
//
// # Delivery disciplines
//
// Cold sources (Of, Range, Generate) are exact: they never emit beyond
// outstanding demand and resume only when more demand arrives. Hot
// sources (Async) wrap externally driven producers that cannot be
// paused; emissions arriving with no outstanding demand are dropped.
//
// # Ownership
//
// A publisher is consumed by at most one subscriber, ever. A second
// Subscribe call panics. A subscription owns itself for its active
// lifetime and is consumed exactly once on its terminal transition.
package streams
