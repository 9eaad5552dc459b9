package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/brokerdesk/internal/core/domain"
	"github.com/custodia-labs/brokerdesk/internal/core/ports/driven"
)

// Ensure OperationLog implements the interface.
var _ driven.OperationLog = (*OperationLog)(nil)

// OperationLog is an in-memory implementation of driven.OperationLog.
type OperationLog struct {
	mu  sync.RWMutex
	ops []domain.Operation
}

// NewOperationLog creates an empty operation log.
func NewOperationLog() *OperationLog {
	return &OperationLog{}
}

// Append records an operation.
func (l *OperationLog) Append(_ context.Context, op domain.Operation) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	op.ID = int64(len(l.ops) + 1)
	if op.CreatedAt.IsZero() {
		op.CreatedAt = time.Now().UTC()
	}
	if op.Actor == "" {
		op.Actor = "system"
	}
	l.ops = append(l.ops, op)
	return nil
}

// Recent returns the latest operations, newest first.
func (l *OperationLog) Recent(_ context.Context, limit int) ([]domain.Operation, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	out := make([]domain.Operation, 0, min(limit, len(l.ops)))
	for i := len(l.ops) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, l.ops[i])
	}
	return out, nil
}

// Types returns the recorded operation types in append order.
func (l *OperationLog) Types() []domain.OperationType {
	l.mu.RLock()
	defer l.mu.RUnlock()

	types := make([]domain.OperationType, len(l.ops))
	for i, op := range l.ops {
		types[i] = op.Type
	}
	return types
}
