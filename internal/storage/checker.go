package storage

import (
	"context"

	"api-boilerplate/internal/health"
)

// Checker reports bucket reachability for health aggregation.
func Checker(svc Service) health.Checker {
	return health.CheckFunc{
		ComponentName: "storage",
		Fn: func(ctx context.Context) error {
			return svc.Status(ctx)
		},
	}
}
