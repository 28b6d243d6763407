package queue

import (
	"context"
	"time"
)

// Job is a unit of deferred work, e.g. a background sync registration.
type Job struct {
	Key     string
	Payload any
	RunAt   time.Time
}

// Queue accepts jobs for later execution.
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
}

// Nop queue swallows jobs (used for tests or disabled scheduling).
type Nop struct{}

var _ Queue = (*Nop)(nil)

func (n *Nop) Enqueue(ctx context.Context, job Job) error { return nil }
