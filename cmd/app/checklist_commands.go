package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/missionhub/cmd/app/commands"
)

func getChecklistCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "import-checklist",
			Usage: "Create an offline checklist from a CSV file",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "file",
					Required: true,
					Usage:    "CSV file path, or '-' for standard input",
				},
				&cli.StringFlag{
					Name:     "name",
					Aliases:  []string{"n"},
					Required: true,
					Usage:    "Checklist name",
				},
				&cli.StringFlag{
					Name:  "description",
					Usage: "Checklist description",
				},
				&cli.StringFlag{
					Name:  "mission-uid",
					Usage: "Mission the checklist belongs to",
				},
				&cli.StringFlag{
					Name:  "template-uid",
					Usage: "Template the checklist was derived from",
				},
				&cli.StringFlag{
					Name:  "start-time",
					Usage: "Checklist start time in RFC3339; defaults to now",
				},
				&cli.BoolFlag{
					Name:  "header",
					Usage: "Treat the first CSV record as column names",
				},
				&cli.StringFlag{
					Name:  "actor",
					Value: "cli",
					Usage: "Identity recorded as the task editor",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container, err := newContainer()
				if err != nil {
					return err
				}
				defer func() { _ = container.Shutdown(ctx) }()

				missionUseCase, err := container.MissionUseCase()
				if err != nil {
					return err
				}

				return commands.RunImportChecklist(
					ctx,
					missionUseCase,
					container.Logger(),
					commands.DefaultIO(),
					commands.ImportChecklistOptions{
						File:        cmd.String("file"),
						Name:        cmd.String("name"),
						Description: cmd.String("description"),
						MissionUID:  cmd.String("mission-uid"),
						TemplateUID: cmd.String("template-uid"),
						StartTime:   cmd.String("start-time"),
						HasHeader:   cmd.Bool("header"),
						Actor:       cmd.String("actor"),
						Format:      cmd.String("format"),
					},
				)
			},
		},
	}
}
