package events

import (
	"context"
	"sync"
	"time"
)

// Publisher decouples event emission from event persistence. In sync mode
// Emit appends directly; with an async buffer, events are queued and a
// background worker drains them, dropping on overflow rather than blocking
// the detection path.
type Publisher struct {
	store Store

	inbox  chan Event
	done   chan struct{}
	closed sync.Once
	wg     sync.WaitGroup
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithAsyncBuffer enables asynchronous emission with the given queue size.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.inbox = make(chan Event, size)
		}
	}
}

// NewPublisher builds a publisher over the given store.
func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{
		store: store,
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit records an event. Timestamp defaults to now when the caller left it
// zero. In async mode a full buffer drops the event: the feed is advisory
// and must never stall a detection pass.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}

	select {
	case p.inbox <- event:
	default:
		// Buffer full: drop.
	}
	return nil
}

// Close stops the background worker, draining any queued events first.
func (p *Publisher) Close() {
	p.closed.Do(func() {
		close(p.done)
		p.wg.Wait()
	})
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for {
		select {
		case event := <-p.inbox:
			_ = p.store.Append(context.Background(), event)
		case <-p.done:
			for {
				select {
				case event := <-p.inbox:
					_ = p.store.Append(context.Background(), event)
				default:
					return
				}
			}
		}
	}
}
