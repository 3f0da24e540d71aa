package app

import (
	"fmt"

	missionRepository "github.com/allisson/missionhub/internal/mission/repository"
	missionUseCase "github.com/allisson/missionhub/internal/mission/usecase"
	"github.com/allisson/missionhub/internal/topic"
)

// EventRepository returns the domain event repository for the configured driver.
func (c *Container) EventRepository() (missionUseCase.EventRepository, error) {
	return c.eventRepo.get(c.initEventRepository)
}

// SnapshotRepository returns the domain snapshot repository for the configured driver.
func (c *Container) SnapshotRepository() (missionUseCase.SnapshotRepository, error) {
	return c.snapshotRepo.get(c.initSnapshotRepository)
}

// MissionUseCase returns the mission domain service.
func (c *Container) MissionUseCase() (missionUseCase.UseCase, error) {
	return c.missionUseCase.get(c.initMissionUseCase)
}

// TopicRegistry returns the topic subscription registry.
func (c *Container) TopicRegistry() (*topic.Registry, error) {
	return c.topicRegistry.get(func() (*topic.Registry, error) {
		store, err := c.DocumentStore()
		if err != nil {
			return nil, fmt.Errorf("failed to get document store for topic registry: %w", err)
		}
		return topic.NewRegistry(store), nil
	})
}

// initEventRepository creates the domain event repository.
func (c *Container) initEventRepository() (missionUseCase.EventRepository, error) {
	if c.UsesMemoryStore() {
		return missionRepository.NewMemoryEventRepository(), nil
	}

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for event repository: %w", err)
	}
	dialect, err := c.Dialect()
	if err != nil {
		return nil, fmt.Errorf("failed to get dialect for event repository: %w", err)
	}
	return missionRepository.NewSQLEventRepository(db, dialect), nil
}

// initSnapshotRepository creates the domain snapshot repository.
func (c *Container) initSnapshotRepository() (missionUseCase.SnapshotRepository, error) {
	if c.UsesMemoryStore() {
		return missionRepository.NewMemorySnapshotRepository(), nil
	}

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for snapshot repository: %w", err)
	}
	dialect, err := c.Dialect()
	if err != nil {
		return nil, fmt.Errorf("failed to get dialect for snapshot repository: %w", err)
	}
	return missionRepository.NewSQLSnapshotRepository(db, dialect), nil
}

// initMissionUseCase creates the mission domain service with all its dependencies.
func (c *Container) initMissionUseCase() (missionUseCase.UseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for mission use case: %w", err)
	}

	store, err := c.DocumentStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get document store for mission use case: %w", err)
	}

	eventRepo, err := c.EventRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get event repository for mission use case: %w", err)
	}

	snapshotRepo, err := c.SnapshotRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot repository for mission use case: %w", err)
	}

	return missionUseCase.NewMissionUseCase(
		txManager,
		store,
		eventRepo,
		snapshotRepo,
		c.config.DomainEventRetention,
	), nil
}
