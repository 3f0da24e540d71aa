package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/allisson/missionhub/cmd/app/commands"
	capabilityUseCase "github.com/allisson/missionhub/internal/capability/usecase"
)

func identityFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "identity",
		Aliases:  []string{"i"},
		Required: true,
		Usage:    "Mesh identity hash (hex)",
	}
}

func capabilityFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "capability",
		Aliases:  []string{"c"},
		Required: true,
		Usage:    "Capability name (e.g., mission.write) or '*'",
	}
}

type authorizerAction func(
	ctx context.Context,
	cmd *cli.Command,
	authorizer capabilityUseCase.AuthorizerUseCase,
	logger *slog.Logger,
) error

// withAuthorizer opens a container for the duration of one capability command.
func withAuthorizer(action authorizerAction) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		container, err := newContainer()
		if err != nil {
			return err
		}
		defer func() { _ = container.Shutdown(ctx) }()

		authorizer, err := container.AuthorizerUseCase()
		if err != nil {
			return fmt.Errorf("failed to initialize capability store: %w", err)
		}
		return action(ctx, cmd, authorizer, container.Logger())
	}
}

func getCapabilityCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "grant-capability",
			Usage: "Grant a capability to a mesh identity",
			Flags: []cli.Flag{
				identityFlag(),
				capabilityFlag(),
				&cli.StringFlag{
					Name:  "granted-by",
					Value: "cli",
					Usage: "Who granted the capability, recorded in the audit log",
				},
				&cli.DurationFlag{
					Name:    "expires-in",
					Aliases: []string{"e"},
					Usage:   "Grant lifetime (e.g., 72h); zero never expires",
				},
				formatFlag(),
			},
			Action: withAuthorizer(func(
				ctx context.Context,
				cmd *cli.Command,
				authorizer capabilityUseCase.AuthorizerUseCase,
				logger *slog.Logger,
			) error {
				return commands.RunGrantCapability(
					ctx,
					authorizer,
					logger,
					commands.DefaultIO().Writer,
					cmd.String("identity"),
					cmd.String("capability"),
					cmd.String("granted-by"),
					cmd.Duration("expires-in"),
					cmd.String("format"),
				)
			}),
		},
		{
			Name:  "revoke-capability",
			Usage: "Revoke a capability from a mesh identity",
			Flags: []cli.Flag{
				identityFlag(),
				capabilityFlag(),
				formatFlag(),
			},
			Action: withAuthorizer(func(
				ctx context.Context,
				cmd *cli.Command,
				authorizer capabilityUseCase.AuthorizerUseCase,
				logger *slog.Logger,
			) error {
				return commands.RunRevokeCapability(
					ctx,
					authorizer,
					logger,
					commands.DefaultIO().Writer,
					cmd.String("identity"),
					cmd.String("capability"),
					cmd.String("format"),
				)
			}),
		},
		{
			Name:  "list-capabilities",
			Usage: "List the capabilities granted to a mesh identity",
			Flags: []cli.Flag{
				identityFlag(),
				formatFlag(),
			},
			Action: withAuthorizer(func(
				ctx context.Context,
				cmd *cli.Command,
				authorizer capabilityUseCase.AuthorizerUseCase,
				logger *slog.Logger,
			) error {
				return commands.RunListCapabilities(
					ctx,
					authorizer,
					commands.DefaultIO().Writer,
					cmd.String("identity"),
					cmd.String("format"),
				)
			}),
		},
	}
}
