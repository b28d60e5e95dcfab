package outbound

import "context"

// UnitOfWorkPort runs fn inside one atomic unit. Every repository call
// made with the context fn receives joins the same transaction; any
// error rolls the whole unit back, so a state change and its ledger
// rows commit together or not at all.
type UnitOfWorkPort interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisherPort publishes outbound notification events after a
// unit of work commits. Delivery is fire and forget; the core never
// blocks on or fails because of it.
type EventPublisherPort interface {
	Publish(ctx context.Context, event any) error
}
