package queue

import (
	"context"
	"time"
)

// CaseDispatcher adapts a queue Client to the batch coordinator's
// dispatch hook.
type CaseDispatcher struct {
	Client Client
}

// DispatchCase enqueues one case for a worker to analyze.
func (d CaseDispatcher) DispatchCase(ctx context.Context, batchID, caseID, requestID string) error {
	return d.Client.Send(ctx, Message{
		BatchID:    batchID,
		RecordID:   caseID,
		RequestID:  requestID,
		EnqueuedAt: time.Now().UTC().Format(time.RFC3339),
		Version:    1,
	})
}
