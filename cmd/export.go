package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clavrr/clavr/internal/config"
	"github.com/clavrr/clavr/internal/export"
	"github.com/clavrr/clavr/internal/logging"
	"github.com/clavrr/clavr/internal/store"
)

func newExportCmd() *cobra.Command {
	var (
		configPath string
		email      string
		outDir     string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a user's data to a zip archive",
		Long: `Assemble a GDPR data export for one user: profile, tasks, query history,
and webhook subscriptions as JSON files inside a zip archive. Runs against
the configured database without needing a running server.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if outDir == "" {
				outDir = cfg.Export.Dir
			}

			logger := setupLogging(false)
			ctx := cmd.Context()

			db, err := store.NewDBConnection(cfg.Database)
			if err != nil {
				return err
			}
			if err := store.Migrate(db); err != nil {
				return err
			}
			st := store.New(db, logging.NewSlogAdapter(logger))
			defer func() { _ = st.Close() }()

			user, err := st.Users.GetByEmail(ctx, email)
			if err != nil {
				return fmt.Errorf("no user with email %s: %w", email, err)
			}

			// Nil pool: the export runs inline on this goroutine.
			manager := export.NewManager(st, outDir, nil, nil, logger)
			job, err := manager.Request(ctx, user.ID)
			if err != nil {
				return err
			}
			if job.Status != export.StatusReady {
				return fmt.Errorf("export failed: %s", job.Error)
			}

			fmt.Fprintln(cmd.OutOrStdout(), job.Archive.Path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to the YAML config file")
	cmd.Flags().StringVar(&email, "email", "", "Email address of the user to export")
	cmd.Flags().StringVar(&outDir, "out", "", "Output directory (default: the configured export directory)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}
