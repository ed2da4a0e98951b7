package session

import (
	"context"
	"sync"
	"time"
)

// Status is the user-visible session status.
type Status int

const (
	NotConnected Status = iota
	Connecting
	Connected
)

// String returns the status line shown to the user
func (s Status) String() string {
	switch s {
	case Connecting:
		return "Status: Connecting"
	case Connected:
		return "Status: Connected"
	default:
		return "Status: Not Connected"
	}
}

// Event is one status transition. Events are delivered in the order the
// transitions happened, one per transition.
type Event struct {
	Seq     uint64
	Status  Status
	Address string
	// Err is set on the NotConnected event that follows a failed connect.
	Err error
	At  time.Time
}

// Observer receives status events. OnStatus is called from a dedicated
// delivery goroutine, so it may block or call back into the Machine.
type Observer interface {
	OnStatus(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// OnStatus calls f(e).
func (f ObserverFunc) OnStatus(e Event) {
	f(e)
}

// ChannelObserver forwards every event to ch. Delivery blocks while ch is
// full, which delays later events but never drops or reorders them.
func ChannelObserver(ch chan<- Event) Observer {
	return ObserverFunc(func(e Event) {
		ch <- e
	})
}

// Fanout delivers each event to every non-nil observer in argument order.
// It fills the Machine's single observer slot when several consumers
// need the same stream.
func Fanout(observers ...Observer) Observer {
	var live []Observer
	for _, o := range observers {
		if o != nil {
			live = append(live, o)
		}
	}
	return ObserverFunc(func(e Event) {
		for _, o := range live {
			o.OnStatus(e)
		}
	})
}

// publisher queues events without blocking the publisher and delivers
// them in order to the installed observer.
type publisher struct {
	mu       sync.Mutex
	cond     *sync.Cond
	queue    []Event
	observer Observer
	seq      uint64
	closed   bool
	done     chan struct{}
}

func newPublisher() *publisher {
	p := &publisher{done: make(chan struct{})}
	p.cond = sync.NewCond(&p.mu)
	go p.run()
	return p
}

func (p *publisher) publish(status Status, address string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.seq++
	p.queue = append(p.queue, Event{
		Seq:     p.seq,
		Status:  status,
		Address: address,
		Err:     err,
		At:      time.Now(),
	})
	p.cond.Signal()
}

func (p *publisher) setObserver(o Observer) Observer {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev := p.observer
	p.observer = o
	return prev
}

func (p *publisher) run() {
	defer close(p.done)

	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		e := p.queue[0]
		p.queue[0] = Event{}
		p.queue = p.queue[1:]
		obs := p.observer
		p.mu.Unlock()

		if obs != nil {
			obs.OnStatus(e)
		}
	}
}

// close stops accepting events and waits until the queue is drained or
// ctx expires.
func (p *publisher) close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		p.cond.Broadcast()
	}
	p.mu.Unlock()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
