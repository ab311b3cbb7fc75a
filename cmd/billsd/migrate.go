package main

import (
	"github.com/spf13/cobra"

	"github.com/sefa-b/go-bill-ledger/internal/utils"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema to the configured store",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		st, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer st.close()

		if err := st.migrate(cmd.Context()); err != nil {
			return err
		}

		utils.Info("schema up to date", "driver", cfg.StorageDriver)
		return nil
	},
}
