package hub

import "sync/atomic"

// Chan is a Subscriber backed by a buffered channel. When the buffer is full
// new events are dropped and counted.
type Chan struct {
	id      string
	types   []Type
	ch      chan Event
	dropped atomic.Int64
}

// NewChan returns a channel subscriber with the given buffer size that only
// receives the listed types (all types when none are given).
func NewChan(id string, size int, types ...Type) *Chan {
	return &Chan{id: id, types: types, ch: make(chan Event, size)}
}

func (c *Chan) ID() string       { return c.id }
func (c *Chan) Accepts() []Type  { return c.types }
func (c *Chan) C() <-chan Event  { return c.ch }
func (c *Chan) Dropped() int64   { return c.dropped.Load() }

func (c *Chan) Send(ev Event) {
	select {
	case c.ch <- ev:
	default:
		c.dropped.Add(1)
	}
}

// Func adapts a function to the Subscriber interface. The function runs on
// the publisher's goroutine and must return quickly.
type Func struct {
	Name  string
	Types []Type
	Fn    func(Event)
}

func (f Func) ID() string      { return f.Name }
func (f Func) Accepts() []Type { return f.Types }
func (f Func) Send(ev Event)   { f.Fn(ev) }
