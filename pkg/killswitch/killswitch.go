// Package killswitch implements the process-wide cooperative cancellation
// signal shared by the Agent and the Exporter.
package killswitch

import "sync/atomic"

// Killswitch is a monotonic cancellation flag: false -> true only, safe for
// many concurrent readers and writers. It is constructed once by the
// entrypoint and passed explicitly to every worker; it is not a singleton.
type Killswitch struct {
	engaged atomic.Bool
	done    chan struct{}
}

// New returns a disengaged Killswitch.
func New() *Killswitch {
	return &Killswitch{done: make(chan struct{})}
}

// Engage trips the switch. Safe to call more than once; only the first call
// has an effect.
func (k *Killswitch) Engage() {
	if k.engaged.CompareAndSwap(false, true) {
		close(k.done)
	}
}

// Engaged reports whether Engage has ever been called.
func (k *Killswitch) Engaged() bool {
	return k.engaged.Load()
}

// Done returns a channel that is closed exactly once, on first Engage. It
// lets callers select between a timer and cancellation without polling.
func (k *Killswitch) Done() <-chan struct{} {
	return k.done
}
