package services

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type dialogLock struct {
	ch   chan struct{}
	refs int
}

// dialogLocks serializes turns per dialog. Entries are dropped once nobody holds or waits for them.
type dialogLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*dialogLock
}

func newDialogLocks() *dialogLocks {
	return &dialogLocks{locks: make(map[uuid.UUID]*dialogLock)}
}

// Lock blocks until the dialog is free or ctx is done. The returned func releases the lock.
func (d *dialogLocks) Lock(ctx context.Context, dialogID uuid.UUID) (func(), error) {
	d.mu.Lock()
	l, ok := d.locks[dialogID]
	if !ok {
		l = &dialogLock{ch: make(chan struct{}, 1)}
		d.locks[dialogID] = l
	}
	l.refs++
	d.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
		return func() {
			<-l.ch
			d.release(dialogID, l)
		}, nil
	case <-ctx.Done():
		d.release(dialogID, l)
		return nil, ctx.Err()
	}
}

func (d *dialogLocks) release(dialogID uuid.UUID, l *dialogLock) {
	d.mu.Lock()
	defer d.mu.Unlock()

	l.refs--
	if l.refs == 0 {
		delete(d.locks, dialogID)
	}
}

func (d *dialogLocks) size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.locks)
}
