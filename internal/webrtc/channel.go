package webrtc

import (
	"sync"

	"telecare-session-service/internal/domain"

	pion "github.com/pion/webrtc/v4"
)

// Channel wraps a pion data channel and enforces the open/closed contract:
// a send before open fails with ErrChannelNotOpen, a send after close with
// ErrChannelClosed. Silent loss would desynchronize the two test machines.
type Channel struct {
	dc *pion.DataChannel

	mu     sync.Mutex
	open   bool
	closed bool
}

func newChannel(dc *pion.DataChannel) *Channel {
	return &Channel{dc: dc}
}

func (c *Channel) Send(text string) error {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return domain.ErrChannelClosed
	case !c.open:
		c.mu.Unlock()
		return domain.ErrChannelNotOpen
	}
	c.mu.Unlock()
	return c.dc.SendText(text)
}

func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.dc.Close()
}

func (c *Channel) markOpen() {
	c.mu.Lock()
	c.open = true
	c.mu.Unlock()
}

func (c *Channel) markClosed() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *Channel) isOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open && !c.closed
}
