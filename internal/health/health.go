package health

import (
	"context"
	"sync"
	"time"
)

const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusDown     = "down"

	defaultCheckTimeout = 5 * time.Second
)

// Checker probes one dependency.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// CheckFunc adapts a function into a Checker.
type CheckFunc struct {
	ComponentName string
	Fn            func(ctx context.Context) error
}

func (c CheckFunc) Name() string                    { return c.ComponentName }
func (c CheckFunc) Check(ctx context.Context) error { return c.Fn(ctx) }

type Component struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Latency string `json:"latency"`
}

type Report struct {
	Status     string      `json:"status"`
	Components []Component `json:"components"`
}

func (r Report) Healthy() bool {
	return r.Status == StatusOK
}

// Aggregate runs every checker concurrently, each bounded by timeout, and
// reports ok only when all of them pass. Components keep the checker order.
func Aggregate(ctx context.Context, timeout time.Duration, checkers ...Checker) Report {
	if timeout <= 0 {
		timeout = defaultCheckTimeout
	}

	components := make([]Component, len(checkers))
	var wg sync.WaitGroup
	for i, checker := range checkers {
		wg.Add(1)
		go func(i int, checker Checker) {
			defer wg.Done()

			checkCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := time.Now()
			err := checker.Check(checkCtx)
			c := Component{
				Name:    checker.Name(),
				Status:  StatusOK,
				Latency: time.Since(start).Round(time.Millisecond).String(),
			}
			if err != nil {
				c.Status = StatusDown
				c.Error = err.Error()
			}
			components[i] = c
		}(i, checker)
	}
	wg.Wait()

	report := Report{Status: StatusOK, Components: components}
	for _, c := range components {
		if c.Status != StatusOK {
			report.Status = StatusDegraded
			break
		}
	}
	return report
}
