package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	capabilityDomain "github.com/allisson/missionhub/internal/capability/domain"
	"github.com/allisson/missionhub/internal/database"
)

func TestMemoryGrantRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryGrantRepository()

	require.NoError(t, repo.Upsert(ctx, &capabilityDomain.Grant{Identity: "b", Capability: "mission.read"}))
	require.NoError(t, repo.Upsert(ctx, &capabilityDomain.Grant{Identity: "a", Capability: "mission.write"}))
	require.NoError(t, repo.Upsert(ctx, &capabilityDomain.Grant{Identity: "a", Capability: "checklist.read"}))

	grants, err := repo.ListByIdentity(ctx, "a")
	require.NoError(t, err)
	require.Len(t, grants, 2)
	assert.Equal(t, capabilityDomain.Capability("checklist.read"), grants[0].Capability)

	assert.ErrorIs(t, repo.Delete(ctx, "a", "mission.read"), capabilityDomain.ErrGrantNotFound)
	require.NoError(t, repo.Delete(ctx, "a", "mission.write"))

	grants, err = repo.ListByIdentity(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, grants, 1)
}

func TestMemoryGrantRepository_RollbackWithTxManager(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryGrantRepository()
	txManager := database.NewMemoryTxManager(repo)

	err := txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := repo.Upsert(ctx, &capabilityDomain.Grant{Identity: "a", Capability: "mission.read"}); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.Error(t, err)

	grants, err := repo.ListByIdentity(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, grants)
}
