package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/pictune/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file when missing, initializes the database and runs migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := r.configPath
	if configPath == "" {
		configPath = "config.toml"
	}

	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		config, err := shared.LoadConfig(configPath)
		if err != nil {
			return err
		}
		r.config = config
		r.writePlain("✓ Config written to %s\n", configPath)
	} else {
		r.writePlain("✓ Using existing config %s\n", configPath)
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)
	if err := r.database(); err != nil {
		return err
	}

	statuses, err := shared.Migrations(r.db)
	if err != nil {
		return err
	}
	for _, s := range statuses {
		mark := "✗"
		if s.Applied {
			mark = "✓"
		}
		r.writePlain("  %s %04d %s\n", mark, s.Version, s.Name)
	}
	r.writePlain("✓ Database ready at %s\n", r.config.Database.Path)

	values, err := shared.LoadCredentials(r.config.Spotify.CredentialsFile)
	if err != nil || values[shared.KeyClientID] == "" {
		r.writePlainln("Next steps:")
		r.writePlain("1. Create a Spotify app and add %s as a redirect URI\n", r.config.Spotify.RedirectURI)
		r.writePlain("2. Put client_id and client_secret in %s\n", r.config.Spotify.CredentialsFile)
		r.writePlain("3. Run 'pictune spotify connect' to test authorization\n")
	}
	return nil
}
