package pipeline

import (
	"context"
	"time"
)

// Stage entry buffers: a stage is skipped outright when less than its buffer
// remains, because a partial stage result is worse than an honest skip.
const (
	searchBuffer = 10 * time.Second
	verifyBuffer = 15 * time.Second
	renderBuffer = 20 * time.Second
)

// Budget tracks a run's wall-clock allowance. The zero duration means
// unlimited; every stage consults the budget before starting and truncates
// its work rather than overrunning.
type Budget struct {
	deadline time.Time
}

// NewBudget starts a budget of total from now. total <= 0 disables deadlines.
func NewBudget(total time.Duration) *Budget {
	b := &Budget{}
	if total > 0 {
		b.deadline = time.Now().Add(total)
	}
	return b
}

// Remaining returns the time left, or a very large value when unlimited.
func (b *Budget) Remaining() time.Duration {
	if b.deadline.IsZero() {
		return time.Duration(1<<62 - 1)
	}
	return time.Until(b.deadline)
}

// PastBuffer reports whether less than buffer remains.
func (b *Budget) PastBuffer(buffer time.Duration) bool {
	return b.Remaining() < buffer
}

// Context derives a context that expires with the budget.
func (b *Budget) Context(parent context.Context) (context.Context, context.CancelFunc) {
	if b.deadline.IsZero() {
		return context.WithCancel(parent)
	}
	return context.WithDeadline(parent, b.deadline)
}
