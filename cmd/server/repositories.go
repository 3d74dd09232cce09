package main

import (
	"github.com/remedyops/findings-api/internal/config"
	"github.com/remedyops/findings-api/internal/infra/dynamo"
	"github.com/remedyops/findings-api/pkg/logger"
)

// Repositories groups the store-backed repositories.
type Repositories struct {
	Findings     *dynamo.FindingRepository
	Remediations *dynamo.RemediationRepository
	Grants       *dynamo.GrantRepository
}

// NewRepositories wires the DynamoDB repositories.
func NewRepositories(api dynamo.API, cfg *config.Config, log *logger.Logger) *Repositories {
	return &Repositories{
		Findings:     dynamo.NewFindingRepository(api, cfg.Dynamo, cfg.Search.InMemorySortLimit, log),
		Remediations: dynamo.NewRemediationRepository(api, cfg.Dynamo, cfg.Search.InMemorySortLimit, log),
		Grants:       dynamo.NewGrantRepository(api, cfg.Dynamo.GrantsTable, log),
	}
}
