package app

import (
	"fmt"

	capabilityHTTP "github.com/allisson/missionhub/internal/capability/http"
	capabilityRepository "github.com/allisson/missionhub/internal/capability/repository"
	capabilityUseCase "github.com/allisson/missionhub/internal/capability/usecase"
)

// GrantRepository returns the capability grant repository for the configured driver.
func (c *Container) GrantRepository() (capabilityUseCase.GrantRepository, error) {
	return c.grantRepo.get(c.initGrantRepository)
}

// AuthorizerUseCase returns the capability authorizer, wrapped with business metrics.
func (c *Container) AuthorizerUseCase() (capabilityUseCase.AuthorizerUseCase, error) {
	return c.authorizerUseCase.get(c.initAuthorizerUseCase)
}

// GrantHandler returns the admin HTTP handler for capability grants.
func (c *Container) GrantHandler() (*capabilityHTTP.GrantHandler, error) {
	authorizer, err := c.AuthorizerUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get authorizer use case for grant handler: %w", err)
	}
	return capabilityHTTP.NewGrantHandler(authorizer, c.Logger()), nil
}

// initGrantRepository creates the grant repository.
func (c *Container) initGrantRepository() (capabilityUseCase.GrantRepository, error) {
	if c.UsesMemoryStore() {
		return capabilityRepository.NewMemoryGrantRepository(), nil
	}

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for grant repository: %w", err)
	}
	dialect, err := c.Dialect()
	if err != nil {
		return nil, fmt.Errorf("failed to get dialect for grant repository: %w", err)
	}
	return capabilityRepository.NewSQLGrantRepository(db, dialect), nil
}

// initAuthorizerUseCase creates the authorizer with its audit trail and metrics.
func (c *Container) initAuthorizerUseCase() (capabilityUseCase.AuthorizerUseCase, error) {
	grantRepo, err := c.GrantRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get grant repository for authorizer use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for authorizer use case: %w", err)
	}

	useCase := capabilityUseCase.NewAuthorizerUseCase(grantRepo, c.EventLog())
	return capabilityUseCase.NewAuthorizerUseCaseWithMetrics(useCase, businessMetrics), nil
}
