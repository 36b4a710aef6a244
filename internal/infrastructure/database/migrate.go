package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"estatehub-http-service/internal/domain/models"
	applogger "estatehub-http-service/internal/infrastructure/logger"
)

// 迁移模式
const (
	MigrationModeAuto = "auto"
	MigrationModeDrop = "drop"
)

// AutoMigrate 自动迁移所有模型（只添加新列和新表）
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	applogger.Named("database").Info("database migration completed", zap.Int("tables", len(models.AllModels())))
	return nil
}

// DropAndRecreateTables 删除并重建所有表
func DropAndRecreateTables(db *gorm.DB) error {
	log := applogger.Named("database")
	all := models.AllModels()

	// 逆序删除，先删依赖表
	for i := len(all) - 1; i >= 0; i-- {
		if err := db.Migrator().DropTable(all[i]); err != nil {
			log.Warn("drop table failed", zap.String("model", fmt.Sprintf("%T", all[i])), zap.Error(err))
		}
	}
	return AutoMigrate(db)
}

// Migrate runs the migration selected by mode. Unknown modes fall back to auto.
func Migrate(db *gorm.DB, mode string) error {
	if mode == MigrationModeDrop {
		applogger.Named("database").Warn("running in drop mode, all tables will be recreated")
		return DropAndRecreateTables(db)
	}
	return AutoMigrate(db)
}
