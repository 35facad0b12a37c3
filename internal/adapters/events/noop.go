package events

import "context"

// Noop discards events. Used when the broker is disabled.
type Noop struct{}

func (Noop) Publish(context.Context, string, any) error { return nil }

func (Noop) Close() error { return nil }
