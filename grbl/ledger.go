package grbl

import (
	"context"
	"sync"
)

// pendingSend is a line that was written to the firmware but not yet acknowledged.
type pendingSend struct {
	size int
	cmd  *command
}

// Ledger tracks the bytes occupying the firmware's receive buffer.
//
// Every written line has its own record and records are released strictly
// oldest first, matching the order in which the firmware acknowledges lines.
type Ledger struct {
	limit int

	mx        sync.Mutex
	pending   []pendingSend
	occupancy int
	released  chan struct{}
}

// NewLedger returns a ledger for a firmware buffer of the given capacity,
// keeping reserve bytes free as a safety margin.
func NewLedger(capacity, reserve int) *Ledger {
	limit := capacity - reserve
	if limit < 1 {
		limit = 1
	}
	return &Ledger{limit: limit, released: make(chan struct{})}
}

// Limit is the maximum number of bytes that may be in flight.
func (l *Ledger) Limit() int { return l.limit }

// Occupancy returns the bytes currently sent but unacknowledged.
func (l *Ledger) Occupancy() int {
	l.mx.Lock()
	defer l.mx.Unlock()
	return l.occupancy
}

// Pending returns the number of unacknowledged lines.
func (l *Ledger) Pending() int {
	l.mx.Lock()
	defer l.mx.Unlock()
	return len(l.pending)
}

// TryReserve records a send of size bytes if it fits, and reports whether it did.
func (l *Ledger) TryReserve(size int) bool {
	ok, _ := l.tryReserve(size, nil)
	return ok
}

// tryReserve returns the current release channel when the reservation fails,
// so the caller can wait on it without missing a release.
func (l *Ledger) tryReserve(size int, cmd *command) (bool, <-chan struct{}) {
	l.mx.Lock()
	defer l.mx.Unlock()

	if l.occupancy+size > l.limit {
		return false, l.released
	}
	l.pending = append(l.pending, pendingSend{size: size, cmd: cmd})
	l.occupancy += size
	return true, nil
}

// Reserve blocks until size bytes can be recorded or ctx is done.
func (l *Ledger) Reserve(ctx context.Context, size int) error {
	return l.reserve(ctx, size, nil)
}

func (l *Ledger) reserve(ctx context.Context, size int, cmd *command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for {
		ok, released := l.tryReserve(size, cmd)
		if ok {
			return nil
		}
		select {
		case <-released:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// ReleaseOldest removes the oldest record and returns its size.
// It returns ErrProtocolDesync if nothing is pending.
func (l *Ledger) ReleaseOldest() (int, error) {
	p, err := l.releaseOldest()
	return p.size, err
}

func (l *Ledger) releaseOldest() (pendingSend, error) {
	l.mx.Lock()
	defer l.mx.Unlock()

	if len(l.pending) == 0 {
		return pendingSend{}, ErrProtocolDesync
	}
	p := l.pending[0]
	l.pending[0] = pendingSend{}
	l.pending = l.pending[1:]
	l.occupancy -= p.size

	close(l.released)
	l.released = make(chan struct{})
	return p, nil
}

// drain removes every record, oldest first. Used once the link is gone.
func (l *Ledger) drain() []pendingSend {
	l.mx.Lock()
	defer l.mx.Unlock()

	p := l.pending
	l.pending = nil
	l.occupancy = 0
	close(l.released)
	l.released = make(chan struct{})
	return p
}
