package main

import (
	httpinfra "github.com/remedyops/findings-api/internal/infra/http"
	"github.com/remedyops/findings-api/internal/infra/http/handler"
	"github.com/remedyops/findings-api/pkg/logger"
	"github.com/remedyops/findings-api/pkg/validator"
)

// NewHandlers wires the HTTP handlers onto the services.
func NewHandlers(services *Services, log *logger.Logger) httpinfra.Handlers {
	v := validator.New()
	return httpinfra.Handlers{
		Finding:     handler.NewFindingHandler(services.Finding, services.Export, services.Auth, v, log),
		Remediation: handler.NewRemediationHandler(services.Remediation, services.Auth, v, log),
		Health:      handler.NewHealthHandler(),
	}
}
