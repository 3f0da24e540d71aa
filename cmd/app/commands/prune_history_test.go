package commands

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	missionDomain "github.com/allisson/missionhub/internal/mission/domain"
	missionUseCase "github.com/allisson/missionhub/internal/mission/usecase"
)

type MockHistoryUseCase struct {
	mock.Mock
}

func (m *MockHistoryUseCase) ListDomainEvents(
	ctx context.Context,
	filter missionDomain.EventFilter,
) ([]*missionDomain.DomainEvent, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*missionDomain.DomainEvent), args.Error(1)
}

func (m *MockHistoryUseCase) ListSnapshots(
	ctx context.Context,
	aggregateType, aggregateUID string,
) ([]*missionDomain.DomainSnapshot, error) {
	args := m.Called(ctx, aggregateType, aggregateUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*missionDomain.DomainSnapshot), args.Error(1)
}

func (m *MockHistoryUseCase) PruneHistory(ctx context.Context) (*missionUseCase.PruneResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*missionUseCase.PruneResult), args.Error(1)
}

func TestRunPruneHistory(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cutoff := time.Date(2026, 7, 21, 0, 0, 0, 0, time.UTC)

	t.Run("text-output", func(t *testing.T) {
		history := &MockHistoryUseCase{}
		history.On("PruneHistory", ctx).Return(&missionUseCase.PruneResult{
			Cutoff:           cutoff,
			EventsDeleted:    12,
			SnapshotsDeleted: 3,
		}, nil).Once()

		var out bytes.Buffer
		require.NoError(t, RunPruneHistory(ctx, history, logger, &out, "text"))
		require.Equal(t, "Deleted 12 event(s) and 3 snapshot(s) older than 2026-07-21T00:00:00Z\n", out.String())
		history.AssertExpectations(t)
	})

	t.Run("json-output", func(t *testing.T) {
		history := &MockHistoryUseCase{}
		history.On("PruneHistory", ctx).Return(&missionUseCase.PruneResult{Cutoff: cutoff, EventsDeleted: 1}, nil).Once()

		var out bytes.Buffer
		require.NoError(t, RunPruneHistory(ctx, history, logger, &out, "json"))
		require.Contains(t, out.String(), `"events_deleted": 1`)
	})

	t.Run("error", func(t *testing.T) {
		history := &MockHistoryUseCase{}
		history.On("PruneHistory", ctx).Return(nil, errors.New("database is locked")).Once()

		err := RunPruneHistory(ctx, history, logger, &bytes.Buffer{}, "text")
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to prune history")
	})
}
