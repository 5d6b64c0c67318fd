package engine

// Notifier is a concurrency primitive for informing worker routines about the
// arrival of new work. Notifications are collapsed: any number of Notify calls
// while no worker is listening leave a single pending notification. Workers
// check for pending work after every notification, so no work is missed.
//
// Notifier is safe to pass by value; copies share the same channel.
type Notifier struct {
	notifier chan struct{}
}

// NewNotifier instantiates a Notifier without a pending notification.
func NewNotifier() Notifier {
	return Notifier{make(chan struct{}, 1)}
}

// Notify sends a notification without blocking.
func (n Notifier) Notify() {
	select {
	case n.notifier <- struct{}{}:
	default:
	}
}

// Channel returns the channel notifications are received on.
func (n Notifier) Channel() <-chan struct{} {
	return n.notifier
}
