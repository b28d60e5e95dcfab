package events

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Handler consumes events of the types it declares.
type Handler interface {
	// Handles returns the event types this handler consumes.
	Handles() []string

	// Handle processes one event.
	Handle(ctx context.Context, event Event) error
}

const deliveryAttempts = 3

// Publisher delivers events to registered handlers on a background
// goroutine with its own retry policy. Publish never blocks the caller
// and never returns a delivery failure; a full buffer drops the event
// and logs it.
type Publisher struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	queue    chan Event
	done     chan struct{}
	wg       sync.WaitGroup
	logger   *zap.Logger
}

// NewPublisher creates a publisher with the given buffer size and
// starts its delivery loop.
func NewPublisher(buffer int, logger *zap.Logger) *Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	p := &Publisher{
		handlers: make(map[string][]Handler),
		queue:    make(chan Event, buffer),
		done:     make(chan struct{}),
		logger:   logger,
	}
	p.wg.Add(1)
	go p.run()
	return p
}

// Register registers a handler for the events it handles.
func (p *Publisher) Register(handler Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, eventType := range handler.Handles() {
		p.handlers[eventType] = append(p.handlers[eventType], handler)
		p.logger.Debug("registered event handler",
			zap.String("event_type", eventType),
		)
	}
}

// Publish enqueues an event for delivery. It implements
// outbound.EventPublisherPort and always returns nil.
func (p *Publisher) Publish(_ context.Context, event any) error {
	ev, ok := event.(Event)
	if !ok {
		p.logger.Warn("dropping event of unknown type")
		return nil
	}

	select {
	case p.queue <- ev:
	default:
		p.logger.Warn("event buffer full, dropping event",
			zap.String("event_type", ev.EventType()),
		)
	}
	return nil
}

// Close stops the delivery loop after draining the queue.
func (p *Publisher) Close() {
	close(p.done)
	p.wg.Wait()
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for {
		select {
		case ev := <-p.queue:
			p.deliver(ev)
		case <-p.done:
			// Drain what is already queued, then stop.
			for {
				select {
				case ev := <-p.queue:
					p.deliver(ev)
				default:
					return
				}
			}
		}
	}
}

func (p *Publisher) deliver(ev Event) {
	p.mu.RLock()
	handlers := p.handlers[ev.EventType()]
	p.mu.RUnlock()

	ctx := context.Background()
	for _, handler := range handlers {
		var err error
		for attempt := 1; attempt <= deliveryAttempts; attempt++ {
			if err = handler.Handle(ctx, ev); err == nil {
				break
			}
			time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
		}
		if err != nil {
			// Delivery failures never propagate to the emitting call.
			p.logger.Error("event handler failed after retries",
				zap.String("event_type", ev.EventType()),
				zap.Error(err),
			)
		}
	}
}
