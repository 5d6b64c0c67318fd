package operation

import "sync"

// CommitCallbacks holds the functions a batch runs once its outcome is known.
// Each callback runs at most once: Notify drains the list.
type CommitCallbacks struct {
	mu        sync.Mutex
	callbacks []func(error)
}

func (c *CommitCallbacks) Add(callback func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks = append(c.callbacks, callback)
}

// Notify runs the pending callbacks in the order they were added, passing the
// result of the commit, or the error that aborted the batch.
func (c *CommitCallbacks) Notify(err error) {
	c.mu.Lock()
	pending := c.callbacks
	c.callbacks = nil
	c.mu.Unlock()

	for _, callback := range pending {
		callback(err)
	}
}
