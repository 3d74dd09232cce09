// Package jobs enqueues background work on the task queue.
package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// TypeRemediationExecute is the task type for remediation executions.
	TypeRemediationExecute = "remediation:execute"

	// QueueRemediation is the queue remediation executions run on.
	QueueRemediation = "remediation"
)

// RemediationPayload contains the data the remediation pipeline needs to run
// one execution.
type RemediationPayload struct {
	ExecutionID   string `json:"execution_id"`
	FindingID     string `json:"finding_id"`
	FindingType   string `json:"finding_type"`
	AccountID     string `json:"account_id"`
	ResourceID    string `json:"resource_id"`
	RequestTicket bool   `json:"request_ticket"`
}

// NewRemediationTask creates a task for one remediation execution. The task
// ID is the execution ID, so re-enqueueing the same execution is a no-op at
// the broker.
func NewRemediationTask(payload RemediationPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal remediation payload: %w", err)
	}

	opts := []asynq.Option{
		asynq.TaskID(payload.ExecutionID),
		asynq.MaxRetry(3),
		asynq.Timeout(10 * time.Minute),
		asynq.Queue(QueueRemediation),
	}

	return asynq.NewTask(TypeRemediationExecute, data, opts...), nil
}
