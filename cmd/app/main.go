// Package main provides the entry point for the application with CLI commands.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/allisson/warden/cmd/app/commands"
	"github.com/allisson/warden/internal/config"
)

func main() {
	cmd := &cli.Command{
		Name:    "warden",
		Usage:   "Capability-token authorization kernel for agent tool execution",
		Version: "1.0.0",
		Commands: []*cli.Command{
			{
				Name:  "keygen",
				Usage: "Generate a new signing key",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunKeygen(commands.DefaultIO())
				},
			},
			{
				Name:  "wrap-key",
				Usage: "Generate a signing key wrapped by a KMS keeper",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "kms-provider",
						Value: "",
						Usage: "KMS provider (localsecrets, gcpkms, awskms, azurekeyvault, hashivault)",
					},
					&cli.StringFlag{
						Name:  "kms-key-uri",
						Value: "",
						Usage: "KMS key URI (e.g., base64key://<32-byte-base64-key>)",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunWrapKey(ctx, commands.DefaultIO(), cmd.String("kms-provider"), cmd.String("kms-key-uri"))
				},
			},
			{
				Name:  "mint",
				Usage: "Mint a capability token from a JSON permission-set file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "permissions",
						Aliases:  []string{"p"},
						Usage:    "Path to the JSON permission-set file",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "directive-id",
						Value: "",
						Usage: "Directive UUID (generated when omitted)",
					},
					&cli.DurationFlag{
						Name:  "ttl",
						Value: 0,
						Usage: "Token lifetime (default TTL from configuration when omitted)",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunMint(
						ctx,
						commands.DefaultIO(),
						config.Load(),
						cmd.String("permissions"),
						cmd.String("directive-id"),
						cmd.Duration("ttl"),
					)
				},
			},
			{
				Name:  "inspect",
				Usage: "Decode and verify a serialized token file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "token",
						Aliases:  []string{"t"},
						Usage:    "Path to the JSON token file",
						Required: true,
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunInspect(commands.DefaultIO(), config.Load(), cmd.String("token"))
				},
			},
			{
				Name:  "simulate",
				Usage: "Dry-run a gateway decision against a static registry file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "token",
						Aliases:  []string{"t"},
						Usage:    "Path to the JSON token file",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "registry",
						Aliases:  []string{"r"},
						Usage:    "Path to the JSON tool-registry file",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "tool",
						Usage:    "Tool id to invoke",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "path",
						Value: "",
						Usage: "Filesystem target of the call, if any",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunSimulate(
						ctx,
						commands.DefaultIO(),
						config.Load(),
						cmd.String("token"),
						cmd.String("registry"),
						cmd.String("tool"),
						cmd.String("path"),
					)
				},
			},
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := cmd.Run(ctx, os.Args); err != nil {
		slog.Error("command failed", slog.Any("error", err))
		os.Exit(1)
	}
}
