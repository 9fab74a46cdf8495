package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func backupCommand() *cobra.Command {
	var upload bool

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Take one database snapshot and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := bootstrap(ctx, upload)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.services.Backup.Snapshot(ctx); err != nil {
				return err
			}
			a.log.Info("snapshot written", zap.String("path", a.services.Backup.Path()))
			return a.services.Close(ctx)
		},
	}

	cmd.Flags().BoolVar(&upload, "upload", true, "Also upload the snapshot to object storage when configured")
	return cmd
}
