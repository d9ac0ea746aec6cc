package broadcast

import "context"

// Channel carries events between tabs of one origin. Delivery is
// at-least-once and unordered across tabs. A channel may deliver an event
// back to the tab that published it.
type Channel interface {
	Publish(ctx context.Context, ev Event) error
	// Listen invokes deliver for every received event until ctx is done.
	// deliver is never called concurrently by one Listen call.
	Listen(ctx context.Context, deliver func(Event)) error
}
