package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/remedyops/findings-api/pkg/logger"
)

// ExecutionRunner is the remediation pipeline that performs the actual
// execution. It lives outside this service.
type ExecutionRunner interface {
	Execute(ctx context.Context, payload RemediationPayload) error
}

// ExecutionRecorder persists execution lifecycle transitions into the
// remediation history.
type ExecutionRecorder interface {
	MarkRunning(ctx context.Context, findingID, executionID string) error
	RecordOutcome(ctx context.Context, findingID, executionID string, succeeded bool, message string) error
}

// WorkerConfig holds the configuration for the job worker.
type WorkerConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Concurrency   int
}

// Worker processes background jobs.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *logger.Logger
}

// NewWorker creates a new background job worker.
func NewWorker(cfg WorkerConfig, runner ExecutionRunner, recorder ExecutionRecorder, log *logger.Logger) (*Worker, error) {
	server := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		},
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				"default":        5,
				QueueRemediation: 5,
			},
		},
	)

	mux := asynq.NewServeMux()

	handler := NewRemediationTaskHandler(runner, recorder, log)
	mux.HandleFunc(TypeRemediationExecute, handler.HandleExecute)

	return &Worker{
		server: server,
		mux:    mux,
		logger: log,
	}, nil
}

// Start starts the worker.
func (w *Worker) Start() error {
	w.logger.Info("starting job worker")
	return w.server.Start(w.mux)
}

// Stop stops the worker gracefully.
func (w *Worker) Stop() {
	w.logger.Info("stopping job worker")
	w.server.Shutdown()
}

// Run runs the worker until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Start(w.mux)
	}()

	select {
	case <-ctx.Done():
		w.Stop()
		return ctx.Err()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("worker error: %w", err)
		}
		return nil
	}
}

// RemediationTaskHandler handles remediation execution tasks.
type RemediationTaskHandler struct {
	runner   ExecutionRunner
	recorder ExecutionRecorder
	log      *logger.Logger
}

// NewRemediationTaskHandler creates a new remediation task handler.
func NewRemediationTaskHandler(runner ExecutionRunner, recorder ExecutionRecorder, log *logger.Logger) *RemediationTaskHandler {
	return &RemediationTaskHandler{
		runner:   runner,
		recorder: recorder,
		log:      log.With("component", "remediation_worker"),
	}
}

// HandleExecute runs one remediation execution and records its outcome. The
// run failing is an outcome, not a task failure; only failing to record the
// outcome makes the task retry.
func (h *RemediationTaskHandler) HandleExecute(ctx context.Context, t *asynq.Task) error {
	var payload RemediationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.log.Error("failed to unmarshal remediation payload", "error", err)
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	h.log.Info("processing remediation execution",
		"execution_id", payload.ExecutionID,
		"finding_id", payload.FindingID,
	)

	// Best effort; the run proceeds even when the transition does not stick,
	// the terminal outcome write below is the one that must land.
	if err := h.recorder.MarkRunning(ctx, payload.FindingID, payload.ExecutionID); err != nil {
		h.log.Warn("failed to mark execution running",
			"execution_id", payload.ExecutionID,
			"finding_id", payload.FindingID,
			"error", err,
		)
	}

	succeeded := true
	message := "remediation completed"
	if err := h.runner.Execute(ctx, payload); err != nil {
		succeeded = false
		message = err.Error()
		h.log.Warn("remediation execution failed",
			"execution_id", payload.ExecutionID,
			"finding_id", payload.FindingID,
			"error", err,
		)
	}

	if err := h.recorder.RecordOutcome(ctx, payload.FindingID, payload.ExecutionID, succeeded, message); err != nil {
		h.log.Error("failed to record execution outcome",
			"execution_id", payload.ExecutionID,
			"finding_id", payload.FindingID,
			"error", err,
		)
		return err
	}
	return nil
}
