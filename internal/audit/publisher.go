package audit

import (
	"context"
	"errors"
	"sync"
	"time"

	id "medledger/pkg/domain"
)

// ErrBufferFull is returned when an async publisher cannot accept more
// events. Callers treat audit emission as best effort.
var ErrBufferFull = errors.New("audit buffer full")

// Publisher captures structured audit events. In sync mode Emit appends
// directly to the store; with WithAsyncBuffer events are queued and drained
// by a background worker, and Close flushes the queue.
type Publisher struct {
	store Store

	inbox chan Event
	done  chan struct{}
	once  sync.Once
}

type PublisherOption func(*Publisher)

// WithAsyncBuffer switches the publisher to async mode with the given
// queue depth.
func WithAsyncBuffer(size int) PublisherOption {
	return func(p *Publisher) {
		p.inbox = make(chan Event, size)
	}
}

func NewPublisher(store Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{store: store, done: make(chan struct{})}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		go p.drain()
	}
	return p
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}
	select {
	case p.inbox <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrBufferFull
	}
}

func (p *Publisher) List(ctx context.Context, hospitalID id.HospitalID) ([]Event, error) {
	return p.store.ListByHospital(ctx, hospitalID)
}

// Close stops the background worker, flushing any queued events first.
func (p *Publisher) Close() {
	p.once.Do(func() {
		if p.inbox == nil {
			return
		}
		close(p.inbox)
		<-p.done
	})
}

func (p *Publisher) drain() {
	defer close(p.done)
	for event := range p.inbox {
		_ = p.store.Append(context.Background(), event)
	}
}
