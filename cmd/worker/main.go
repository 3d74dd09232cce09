package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/remedyops/findings-api/internal/app"
	"github.com/remedyops/findings-api/internal/config"
	"github.com/remedyops/findings-api/internal/infra/dynamo"
	"github.com/remedyops/findings-api/internal/infra/jobs"
	"github.com/remedyops/findings-api/pkg/domain/accesscontrol"
	"github.com/remedyops/findings-api/pkg/logger"
)

// passthroughRunner hands executions to the external remediation engine. The
// engine integration is deployment-specific; this binary only records the
// outcome the engine reports.
type passthroughRunner struct {
	log *logger.Logger
}

func (r *passthroughRunner) Execute(_ context.Context, payload jobs.RemediationPayload) error {
	r.log.Info("remediation execution delegated",
		"execution_id", payload.ExecutionID,
		"finding_id", payload.FindingID,
		"ticket", payload.RequestTicket,
	)
	return nil
}

func main() {
	os.Exit(run())
}

func run() int {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log := logger.NewDefault()
		log.Error("failed to load configuration", "error", err)
		return 1
	}

	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	log.Info("starting worker", "app", cfg.App.Name, "env", cfg.App.Env)

	ddb, err := dynamo.NewClient(ctx, cfg.AWS.Region, cfg.AWS.EndpointURL)
	if err != nil {
		log.Error("failed to create dynamodb client", "error", err)
		return 1
	}

	findings := dynamo.NewFindingRepository(ddb, cfg.Dynamo, cfg.Search.InMemorySortLimit, log)
	remediations := dynamo.NewRemediationRepository(ddb, cfg.Dynamo, cfg.Search.InMemorySortLimit, log)
	grants := dynamo.NewGrantRepository(ddb, cfg.Dynamo.GrantsTable, log)

	auth := app.NewAuthService(grants, accesscontrol.ClaimNames{
		Groups:    cfg.Auth.GroupsClaim,
		Principal: cfg.Auth.PrincipalClaim,
		Email:     cfg.Auth.EmailClaim,
	}, log)
	recorder := app.NewRemediationService(remediations, findings, auth, log)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisAddr:     cfg.Redis.Addr,
		RedisPassword: cfg.Redis.Password,
		RedisDB:       cfg.Redis.DB,
		Concurrency:   10,
	}, &passthroughRunner{log: log}, recorder, log)
	if err != nil {
		log.Error("failed to initialize worker", "error", err)
		return 1
	}

	runCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := worker.Run(runCtx); err != nil && runCtx.Err() == nil {
		log.Error("worker failed", "error", err)
		return 1
	}
	return 0
}
