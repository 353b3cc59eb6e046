package ldap3

import "time"

// WithControls queues controls to be attached to the next operation only.
// Subsequent operations see no controls unless WithControls is called
// again. Calling WithControls while another goroutine is also about to
// submit an operation on c is a race the caller must avoid: the last
// writer before the next Write wins, matching the connection's one-shot
// option semantics.
func (c *Conn) WithControls(controls ...Control) *Conn {
	c.mu.Lock()
	c.pendingControls = controls
	c.mu.Unlock()
	return c
}

// WithTimeout arms a one-shot deadline for the next operation. A timed
// out operation is deregistered from the pending table and returns an
// *Error with ResultCode ErrorTimeout.
func (c *Conn) WithTimeout(d time.Duration) *Conn {
	c.mu.Lock()
	c.pendingTimeout = d
	c.mu.Unlock()
	return c
}

// WithSearchOptions arms one-shot SizeLimit/TimeLimit/TypesOnly tuning
// consumed by the next Search call only.
func (c *Conn) WithSearchOptions(opts SearchOptions) *Conn {
	c.mu.Lock()
	c.pendingSearchOptions = &opts
	c.mu.Unlock()
	return c
}
