package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	missionUseCase "github.com/allisson/missionhub/internal/mission/usecase"
)

// RunPruneHistory deletes domain events and snapshots older than the retention horizon.
// Appends prune on their own; this is for hubs that sat idle.
func RunPruneHistory(
	ctx context.Context,
	history missionUseCase.HistoryUseCase,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	result, err := history.PruneHistory(ctx)
	if err != nil {
		return fmt.Errorf("failed to prune history: %w", err)
	}

	logger.Info("history pruned",
		slog.Time("cutoff", result.Cutoff),
		slog.Int64("events_deleted", result.EventsDeleted),
		slog.Int64("snapshots_deleted", result.SnapshotsDeleted),
	)

	if format == "json" {
		return writeJSON(writer, result)
	}

	_, err = fmt.Fprintf(writer, "Deleted %d event(s) and %d snapshot(s) older than %s\n",
		result.EventsDeleted, result.SnapshotsDeleted, result.Cutoff.Format(time.RFC3339))
	return err
}
