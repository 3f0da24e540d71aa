package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	missionDomain "github.com/allisson/missionhub/internal/mission/domain"
	missionUseCase "github.com/allisson/missionhub/internal/mission/usecase"
)

// ImportChecklistOptions describes a CSV import from the command line.
type ImportChecklistOptions struct {
	// File is the CSV path; "-" reads standard input.
	File        string
	Name        string
	Description string
	MissionUID  string
	TemplateUID string
	// StartTime is RFC3339; empty means now.
	StartTime string
	HasHeader bool
	Actor     string
	Format    string
}

// RunImportChecklist creates an offline checklist from a CSV file.
func RunImportChecklist(
	ctx context.Context,
	checklists missionUseCase.ChecklistUseCase,
	logger *slog.Logger,
	streams IOTuple,
	opts ImportChecklistOptions,
) error {
	if err := validateFormat(opts.Format); err != nil {
		return err
	}

	data, err := readCSV(streams.Reader, opts.File)
	if err != nil {
		return err
	}

	input := &missionDomain.ImportChecklistCSVInput{
		CreateOfflineChecklistInput: missionDomain.CreateOfflineChecklistInput{
			Name:        opts.Name,
			Description: opts.Description,
			MissionUID:  opts.MissionUID,
			TemplateUID: opts.TemplateUID,
			Actor:       opts.Actor,
		},
		CSV:       string(data),
		HasHeader: opts.HasHeader,
	}
	if opts.StartTime != "" {
		startTime, err := time.Parse(time.RFC3339, opts.StartTime)
		if err != nil {
			return fmt.Errorf("invalid start-time %q: must be RFC3339", opts.StartTime)
		}
		input.StartTime = &startTime
	}

	checklist, err := checklists.ImportChecklistCSV(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to import checklist: %w", err)
	}

	logger.Info("checklist imported",
		slog.String("checklist_uid", checklist.UID),
		slog.Int("tasks", len(checklist.Tasks)),
	)

	if opts.Format == "json" {
		return writeJSON(streams.Writer, checklist)
	}

	_, err = fmt.Fprintf(streams.Writer, "Imported checklist %s (%s) with %d task(s)\n",
		checklist.UID, checklist.Name, len(checklist.Tasks))
	return err
}

func readCSV(stdin io.Reader, file string) ([]byte, error) {
	if file == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV from stdin: %w", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return data, nil
}
