package domain

import "context"

// Sink receives anomaly alerts. Emit is fire-and-forget: implementations
// swallow their own failures so alerting can never break the caller.
type Sink interface {
	Emit(ctx context.Context, alert Alert)
}
