package cmd

import (
	"database/sql"

	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-payment-verification/config"
	"github.com/vibast-solutions/ms-go-payment-verification/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate [up|down|status|version|redo|reset]",
	Short: "Apply the embedded database migrations",
	Args:  cobra.MaximumNArgs(2),
	Run: func(_ *cobra.Command, args []string) {
		command, rest := "up", []string(nil)
		if len(args) > 0 {
			command, rest = args[0], args[1:]
		}

		cfg, err := config.Load()
		if err != nil {
			logrus.WithError(err).Fatal("Failed to load configuration")
		}
		if err := configureLogging(cfg); err != nil {
			logrus.WithError(err).Fatal("Failed to configure logging")
		}

		db, err := sql.Open("mysql", cfg.MySQL.DSN)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to connect to database")
		}
		defer db.Close()

		goose.SetBaseFS(migrations.FS)
		if err := goose.SetDialect("mysql"); err != nil {
			logrus.WithError(err).Fatal("Failed to set migration dialect")
		}
		if err := goose.Run(command, db, ".", rest...); err != nil {
			logrus.WithError(err).WithField("command", command).Fatal("Migration failed")
		}
		logrus.WithField("command", command).Info("Migration finished")
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
