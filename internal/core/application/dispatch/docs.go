// Package dispatch matches confirmed orders to drivers and moves deliveries
// through their lifecycle.
//
// Every exported Service operation is one short unit of work: it loads fresh
// aggregates through a UoW, applies domain transitions and stores the result
// before committing. Accepting a delivery is a compare-and-swap on the stored
// status, so of several concurrent claims exactly one wins and the others get
// ports.ErrAlreadyAssigned. Integration events are published after the commit
// and a failing publisher never undoes a transition.
package dispatch
