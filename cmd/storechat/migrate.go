package main

import (
	"log"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"storechat/internal/bootstrap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(func(db *gorm.DB) error {
			if err := bootstrap.Migrate(db); err != nil {
				return err
			}
			log.Printf("migrated %s database", db.Dialector.Name())
			return nil
		})
	},
}
