package domain

import "context"

type Service interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// ReconcileSchedule reads the scheduler keys, falling back to a disabled
	// 02:00 schedule on missing or malformed values.
	ReconcileSchedule(ctx context.Context) Schedule
}
