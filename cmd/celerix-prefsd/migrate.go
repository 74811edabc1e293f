package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/celerix-dev/celerix-prefs/internal/logger"
	"github.com/celerix-dev/celerix-prefs/internal/store"
)

func newMigrateCommand() *cobra.Command {
	var from, to, dataDir, toDir string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Copy every tenant, category and document between store backends",
		Example: "  celerix-prefsd migrate --from file --to sqlite --data-dir ./data\n" +
			"  celerix-prefsd migrate --from bolt --to file --data-dir ./data --to-dir ./backup",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if toDir == "" {
				toDir = dataDir
			}
			if from == to && toDir == dataDir {
				return fmt.Errorf("source and destination are the same store")
			}

			log, err := logger.New(os.Stderr, zap.InfoLevel, logger.FormatConsole)
			if err != nil {
				return err
			}
			defer log.Sync()

			src, err := store.New(from, dataDir, log)
			if err != nil {
				return fmt.Errorf("failed to open source: %w", err)
			}
			defer src.Close()

			dst, err := store.New(to, toDir, log)
			if err != nil {
				return fmt.Errorf("failed to open destination: %w", err)
			}
			defer dst.Close()

			log.Info("Migrating", zap.String("from", from), zap.String("to", to), zap.String("dir", toDir))
			if err := store.Migrate(cmd.Context(), src, dst); err != nil {
				return err
			}
			log.Info("Migration complete")
			return nil
		},
	}

	backends := strings.Join(store.Backends, "|")
	cmd.Flags().StringVar(&from, "from", store.BackendFile, "source backend ("+backends+")")
	cmd.Flags().StringVar(&to, "to", store.BackendSqlite, "destination backend ("+backends+")")
	cmd.Flags().StringVar(&dataDir, "data-dir", "./data", "directory of the source store")
	cmd.Flags().StringVar(&toDir, "to-dir", "", "directory of the destination store (defaults to --data-dir)")
	return cmd
}
