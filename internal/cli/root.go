// Package cli implements the assetctl operator commands.
package cli

import (
	"context"
	"fmt"

	"github.com/garyjia/asset-registry/internal/config"
	"github.com/garyjia/asset-registry/internal/container"
	"github.com/garyjia/asset-registry/pkg/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// operatorActor is recorded in the audit trail for CLI changes
const operatorActor = "assetctl"

type rootOptions struct {
	configPath string
	verbose    bool
}

// NewRootCmd builds the assetctl command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "assetctl",
		Short: "Operator tool for the asset registry",
		Long: `assetctl manages the asset registry database outside the HTTP API.

Examples:
  # Apply pending migrations
  assetctl migrate

  # Require ministry review for a ministry
  assetctl ministry set min-works --name "Ministry of Works" --review

  # Issue a bearer token for an approver
  assetctl token issue --actor A2 --role agency-approver --agency ag-1 --ministry min-works
`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadEnvFiles(".env")
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config.yaml (defaults and ASSET_* environment when empty)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr")

	root.AddCommand(migrateCmd(opts))
	root.AddCommand(ministryCmd(opts))
	root.AddCommand(tokenCmd(opts))

	return root
}

func (o *rootOptions) load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	if !o.verbose {
		return cfg, zap.NewNop(), nil
	}
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: "stderr",
		Format:     "console",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, nil
}

// withContainer starts a container for the duration of fn.
func (o *rootOptions) withContainer(ctx context.Context, fn func(*container.Container) error) error {
	cfg, logger, err := o.load()
	if err != nil {
		return err
	}
	defer logger.Sync()

	c, err := container.NewContainer(cfg.ToContainerConfig(), logger)
	if err != nil {
		return err
	}
	if err := c.Start(ctx); err != nil {
		return err
	}

	fnErr := fn(c)
	if err := c.Close(); err != nil && fnErr == nil {
		return err
	}
	return fnErr
}
