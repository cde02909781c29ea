package engine

import "github.com/1broseidon/persistwin/internal/topology"

// Context holds the active topology. It is owned by the goroutine driving the
// engine and passed to it explicitly rather than kept in a package global.
type Context struct {
	active *topology.ID
}

// Set makes id the active topology.
func (c *Context) Set(id topology.ID) {
	c.active = &id
}

// IsSet reports whether a topology has been established.
func (c *Context) IsSet() bool {
	return c.active != nil
}

// Active returns the active topology. Calling it before Set is a programming
// error and panics.
func (c *Context) Active() topology.ID {
	if c.active == nil {
		panic("engine: no active topology; Start must run before capture or restore")
	}
	return *c.active
}
