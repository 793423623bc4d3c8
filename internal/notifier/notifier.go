// Package notifier defines the delivery-side collaborators of the
// scheduler engine. The engine only ever hands over a channel reference
// and a fully rendered message; everything transport-specific lives
// behind these interfaces.
package notifier

import "context"

// Notifier delivers a rendered announcement to a channel.
//
// Delivery failures are returned to the caller, which logs and moves
// on; the engine never retries a firing.
type Notifier interface {
	Deliver(ctx context.Context, channel string, text string) error
}

// AudienceResolver maps an opaque audience reference to a mention
// string. It is consulted fresh at every firing, never at creation
// time, so membership changes take effect immediately.
//
// An unknown reference resolves to an empty mention with a nil error:
// the announcement still goes out, just without a ping.
type AudienceResolver interface {
	Resolve(ctx context.Context, audienceRef string) (string, error)
}
