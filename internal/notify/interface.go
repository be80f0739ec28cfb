// Package notify delivers the daily report to configured channels.
package notify

import "context"

// Message is a rendered report ready for delivery.
type Message struct {
	Subject  string
	Markdown string
}

// Notifier defines the interface for report delivery channels.
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Send delivers one report message
	Send(ctx context.Context, msg Message) error
}
