package main

import (
	"context"

	"github.com/remedyops/findings-api/internal/app"
	"github.com/remedyops/findings-api/internal/config"
	"github.com/remedyops/findings-api/internal/infra/s3export"
	"github.com/remedyops/findings-api/pkg/domain/accesscontrol"
	"github.com/remedyops/findings-api/pkg/logger"
)

// Services groups the application services.
type Services struct {
	Auth        *app.AuthService
	Finding     *app.FindingService
	Remediation *app.RemediationService
	Export      *app.ExportService
}

// NewServices wires the application services onto the repositories and
// collaborators.
func NewServices(ctx context.Context, cfg *config.Config, repos *Repositories, dispatcher app.RemediationDispatcher, log *logger.Logger) (*Services, error) {
	claims := accesscontrol.ClaimNames{
		Groups:    cfg.Auth.GroupsClaim,
		Principal: cfg.Auth.PrincipalClaim,
		Email:     cfg.Auth.EmailClaim,
	}
	auth := app.NewAuthService(repos.Grants, claims, log)

	sink, err := s3export.NewSink(ctx, s3export.Config{
		Bucket:   cfg.Export.Bucket,
		Prefix:   cfg.Export.Prefix,
		URLTTL:   cfg.Export.URLTTL,
		Region:   cfg.AWS.Region,
		Endpoint: cfg.AWS.EndpointURL,
	}, log)
	if err != nil {
		return nil, err
	}

	return &Services{
		Auth:        auth,
		Finding:     app.NewFindingService(repos.Findings, repos.Remediations, auth, dispatcher, log),
		Remediation: app.NewRemediationService(repos.Remediations, repos.Findings, auth, log),
		Export:      app.NewExportService(repos.Findings, auth, sink, cfg.Export.MaxRecords, log),
	}, nil
}
