package database

import (
	"fmt"

	"github.com/wfunc/park-gate/internal/logger"
	"github.com/wfunc/park-gate/internal/models"
	"github.com/wfunc/park-gate/internal/tariff"
	"github.com/wfunc/park-gate/internal/utils"
	"go.uber.org/zap"
)

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate() error {
	if DB == nil {
		return fmt.Errorf("数据库未初始化")
	}

	// 清理过期锁文件
	CleanupStaleLocks()

	// 获取迁移锁，避免多个进程同时迁移
	dbPath := getDBPath()
	if dbPath != "" {
		lockFile, err := acquireMigrationLock(dbPath)
		if err != nil {
			logger.Error("无法获取迁移锁", zap.Error(err))
			return fmt.Errorf("获取迁移锁失败: %w", err)
		}
		defer releaseMigrationLock(lockFile)
	}

	logger.Info("开始数据库迁移...")

	if DB.Dialector.Name() == "sqlite" {
		// 禁用外键约束，避免重建表时的问题
		DB.Exec("PRAGMA foreign_keys = OFF")
		defer DB.Exec("PRAGMA foreign_keys = ON")
	}

	for _, model := range models.AllModels() {
		if err := DB.AutoMigrate(model); err != nil {
			logger.Error("迁移失败",
				zap.String("model", fmt.Sprintf("%T", model)),
				zap.Error(err),
			)
			return err
		}
		logger.Debug("迁移成功", zap.String("model", fmt.Sprintf("%T", model)))
	}

	// 创建索引
	if err := createIndexes(); err != nil {
		return err
	}

	// 初始化默认数据
	if err := initDefaultData(); err != nil {
		return err
	}

	logger.Info("数据库迁移完成")
	return nil
}

// createIndexes 创建数据库索引
func createIndexes() error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_tickets_bar ON tickets(bar)",
		"CREATE INDEX IF NOT EXISTS idx_tickets_status ON tickets(status)",
		"CREATE INDEX IF NOT EXISTS idx_cards_serial ON cards(serial)",
		"CREATE INDEX IF NOT EXISTS idx_cards_status ON cards(status)",
		"CREATE INDEX IF NOT EXISTS idx_pass_events_at ON pass_events(at)",
		"CREATE INDEX IF NOT EXISTS idx_gate_events_at ON gate_events(at)",
		"CREATE INDEX IF NOT EXISTS idx_payments_created_at ON payments(created_at)",
		"CREATE INDEX IF NOT EXISTS idx_payments_kind ON payments(kind)",
	}

	for _, idx := range indexes {
		if err := DB.Exec(idx).Error; err != nil {
			logger.Warn("创建索引失败", zap.String("index", idx), zap.Error(err))
		}
	}

	logger.Info("数据库索引创建完成")
	return nil
}

// initDefaultData 初始化默认数据
func initDefaultData() error {
	// 默认管理员账号
	var operatorCount int64
	DB.Model(&models.Operator{}).Count(&operatorCount)
	if operatorCount == 0 {
		hash, err := utils.HashPassword("admin123")
		if err != nil {
			return err
		}
		admin := &models.Operator{
			Username: "admin",
			Password: hash,
			Role:     "admin",
			Status:   "active",
		}
		if err := DB.Create(admin).Error; err != nil {
			logger.Error("创建默认管理员失败", zap.Error(err))
			return err
		}
		logger.Info("已创建默认管理员账号", zap.String("username", admin.Username))
	}

	// 默认小时费率
	var tariffCount int64
	DB.Model(&models.Tariff{}).Count(&tariffCount)
	if tariffCount == 0 {
		defaultTariffs := []models.Tariff{
			{
				Title:    "标准小时费率",
				Type:     tariff.TypeFixed,
				Interval: tariff.IntervalHourly,
				Cost:     "10",
				FreeTime: -1,
				Enabled:  true,
			},
			{
				Title:    "标准包月费率",
				Type:     tariff.TypeSubscription,
				Interval: tariff.IntervalMonthly,
				Cost:     "600",
				FreeTime: -1,
				Enabled:  true,
			},
		}
		for _, row := range defaultTariffs {
			if err := DB.Create(&row).Error; err != nil {
				logger.Error("创建默认费率失败",
					zap.String("title", row.Title),
					zap.Error(err),
				)
			}
		}
	}

	// 场区状态单行表
	var lotCount int64
	DB.Model(&models.LotState{}).Count(&lotCount)
	if lotCount == 0 {
		if err := DB.Create(&models.LotState{}).Error; err != nil {
			logger.Error("初始化场区状态失败", zap.Error(err))
			return err
		}
	}

	logger.Info("默认数据初始化完成")
	return nil
}

// DropAllTables 删除所有表（仅用于测试环境）
func DropAllTables() error {
	if DB == nil {
		return fmt.Errorf("数据库未初始化")
	}

	var tables []string
	if err := DB.Raw("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'").Scan(&tables).Error; err != nil {
		return err
	}

	for _, table := range tables {
		if err := DB.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", table)).Error; err != nil {
			logger.Error("删除表失败", zap.String("table", table), zap.Error(err))
			return err
		}
	}

	logger.Info("所有表已删除")
	return nil
}
