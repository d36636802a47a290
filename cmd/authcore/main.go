package main

import (
	"context"
	"time"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/authcore/cmd/authcore/internal/commands"
	"github.com/wolfeidau/authcore/internal/logger"
	"github.com/wolfeidau/authcore/internal/telemetry"
)

var (
	version = "dev"
	cli     struct {
		Migrate commands.MigrateCmd `cmd:"" help:"Run database migrations"`
		Grant   commands.GrantCmd   `cmd:"" help:"Grant a role to a principal"`
		Revoke  commands.RevokeCmd  `cmd:"" help:"Revoke a role assignment"`
		Roles   commands.RolesCmd   `cmd:"" help:"List role assignments for a principal"`
		Keys    commands.KeysCmd    `cmd:"" help:"Manage API keys"`
		Orgs    commands.OrgsCmd    `cmd:"" help:"Manage organizations"`
		Check   commands.CheckCmd   `cmd:"" help:"Check whether a principal may access an organization"`
		Audit   commands.AuditCmd   `cmd:"" help:"List audit records for an entity"`

		Debug     bool `help:"Enable debug mode."`
		Telemetry bool `help:"Export metrics over OTLP." env:"AUTHCORE_TELEMETRY"`
		Version   kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	cmd.FatalIfErrorf(run(ctx, cmd))
}

func run(ctx context.Context, cmd *kong.Context) error {
	log := logger.Setup(cli.Debug)

	if cli.Telemetry {
		shutdown, err := telemetry.InitTelemetry(ctx, "authcore", version)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(shutdownCtx); err != nil {
					log.Error().Err(err).Msg("Failed to shutdown telemetry")
				}
			}()
		}
	}

	return cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
}
