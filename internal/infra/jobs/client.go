package jobs

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/remedyops/findings-api/internal/app"
	"github.com/remedyops/findings-api/pkg/domain/finding"
	"github.com/remedyops/findings-api/pkg/logger"
)

// Client manages enqueueing background jobs using Asynq.
type Client struct {
	client *asynq.Client
	logger *logger.Logger
}

// ClientConfig contains configuration for the job client.
type ClientConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// NewClient creates a new job client for enqueueing tasks.
func NewClient(cfg ClientConfig, log *logger.Logger) (*Client, error) {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	client := asynq.NewClient(redisOpt)

	return &Client{
		client: client,
		logger: log.With("component", "job_client"),
	}, nil
}

// Close closes the client connection.
func (c *Client) Close() error {
	return c.client.Close()
}

var _ app.RemediationDispatcher = (*Client)(nil)

// StartExecution enqueues a remediation execution for the finding and returns
// the assigned execution identifier.
func (c *Client) StartExecution(ctx context.Context, f *finding.Finding, requestTicket bool) (string, error) {
	payload := RemediationPayload{
		ExecutionID:   uuid.NewString(),
		FindingID:     f.ID(),
		FindingType:   f.FindingType(),
		AccountID:     f.AccountID(),
		ResourceID:    f.ResourceID(),
		RequestTicket: requestTicket,
	}

	task, err := NewRemediationTask(payload)
	if err != nil {
		return "", fmt.Errorf("failed to create task: %w", err)
	}

	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		c.logger.Error("failed to enqueue remediation execution",
			"finding_id", f.ID(),
			"error", err,
		)
		return "", fmt.Errorf("failed to enqueue task: %w", err)
	}

	c.logger.Info("remediation execution queued",
		"task_id", info.ID,
		"finding_id", f.ID(),
		"queue", info.Queue,
		"ticket", requestTicket,
	)
	return payload.ExecutionID, nil
}
