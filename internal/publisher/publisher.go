// Package publisher announces finished runs to downstream consumers.
package publisher

import "context"

// Publisher delivers a payload to a named topic and returns the message ID.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}
