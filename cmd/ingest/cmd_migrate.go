package main

import (
	"github.com/spf13/cobra"

	"github.com/hyperschedule/hyperschedule-sub000/pkg/database"
	applogger "github.com/hyperschedule/hyperschedule-sub000/pkg/logger"
)

var migrateDown int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "执行或回滚数据库迁移",
	Long: `默认应用全部未执行的迁移；--down N 回滚 N 个版本。
run 与 link --persist 启动时会自动执行向上迁移。`,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().IntVar(&migrateDown, "down", 0, "回滚的版本数")
}

func runMigrate(_ *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer applogger.Sync(a.logger)

	if migrateDown == 0 {
		db, err := a.openDB()
		if err != nil {
			return err
		}
		closeDB(db)
		return nil
	}

	db, err := database.NewDB(&a.cfg.Database, a.logger)
	if err != nil {
		return err
	}
	defer closeDB(db)
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return database.RollbackMigrations(sqlDB, migrateDown, a.logger)
}
