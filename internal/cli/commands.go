package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/garyjia/asset-registry/internal/auth"
	"github.com/garyjia/asset-registry/internal/container"
	"github.com/garyjia/asset-registry/internal/domain/entity"
	"github.com/spf13/cobra"
)

func migrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			defer logger.Sync()

			dbCfg := cfg.ToContainerConfig().Database
			bundle, err := container.ProvideDatabase(&dbCfg, logger)
			if err != nil {
				return err
			}
			defer bundle.DB.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "Database %s is up to date\n", dbCfg.Path)
			return nil
		},
	}
}

func ministryCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ministry",
		Short: "Manage ministry review policy",
	}
	cmd.AddCommand(ministrySetCmd(opts), ministryListCmd(opts))
	return cmd
}

func ministrySetCmd(opts *rootOptions) *cobra.Command {
	var (
		name   string
		review bool
	)

	cmd := &cobra.Command{
		Use:   "set <ministry-id>",
		Short: "Create or update a ministry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withContainer(cmd.Context(), func(c *container.Container) error {
				actor := entity.Actor{ID: operatorActor, Role: entity.RoleFederalAdmin}
				m, err := c.Services().Ministries.UpsertMinistry(cmd.Context(), actor, entity.Ministry{
					ID:                     args[0],
					Name:                   name,
					RequiresMinistryReview: review,
				})
				if err != nil {
					return fmt.Errorf("failed to set ministry: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Ministry %s (%s) requires_ministry_review=%t\n", m.ID, m.Name, m.RequiresMinistryReview)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().BoolVar(&review, "review", false, "require ministry-admin review after agency approval")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func ministryListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List ministries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withContainer(cmd.Context(), func(c *container.Container) error {
				ministries, err := c.Services().Ministries.ListMinistries(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to list ministries: %w", err)
				}

				out := cmd.OutOrStdout()
				if len(ministries) == 0 {
					fmt.Fprintln(out, "No ministries found.")
					return nil
				}

				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tREVIEW\tUPDATED")
				for _, m := range ministries {
					fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", m.ID, m.Name, m.RequiresMinistryReview, m.UpdatedAt.Format("2006-01-02 15:04"))
				}
				return w.Flush()
			})
		},
	}
}

func tokenCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue bearer tokens",
	}
	cmd.AddCommand(tokenIssueCmd(opts))
	return cmd
}

func tokenIssueCmd(opts *rootOptions) *cobra.Command {
	var actor entity.Actor

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a signed token for an actor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.load()
			if err != nil {
				return err
			}
			tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
			if err != nil {
				return err
			}
			token, err := tokens.Issue(actor)
			if err != nil {
				return fmt.Errorf("failed to issue token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&actor.ID, "actor", "", "actor ID (token subject)")
	cmd.Flags().StringVar(&actor.Role, "role", "", "agency | agency-approver | ministry-admin | federal-admin")
	cmd.Flags().StringVar(&actor.AgencyID, "agency", "", "agency ID claim")
	cmd.Flags().StringVar(&actor.MinistryID, "ministry", "", "ministry ID claim")
	_ = cmd.MarkFlagRequired("actor")
	_ = cmd.MarkFlagRequired("role")

	return cmd
}

// Execute runs assetctl and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
