package service

import "context"

// Locker provides short-lived mutual exclusion keyed by string. It is
// used to serialise toggles of one identifier when enabled.
type Locker interface {
	// Lock blocks until the key is held or ctx is done. The returned
	// function releases the key.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
