/*
 * @module service/models/test_utils
 * @description 模型测试辅助工具
 * @architecture 测试基础设施 - 专门为模型测试提供工具
 * @stateFlow 测试环境初始化 -> 测试数据创建 -> 测试执行 -> 清理资源
 * @rules 避免循环导入，专门为模型层测试提供工具
 * @dependencies gorm, sqlite
 */

package models

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ModelTestDB 模型测试数据库配置
type ModelTestDB struct {
	DB *gorm.DB
}

// NewModelTestDB 创建模型测试数据库
func NewModelTestDB() *ModelTestDB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(fmt.Sprintf("failed to connect model test database: %v", err))
	}

	if err := db.AutoMigrate(&CacheEntry{}); err != nil {
		panic(fmt.Sprintf("failed to migrate model test database: %v", err))
	}

	return &ModelTestDB{DB: db}
}

// Close 关闭数据库连接
func (tdb *ModelTestDB) Close() {
	if db, err := tdb.DB.DB(); err == nil {
		db.Close()
	}
}

// NewTestSourceItem 创建测试语料条目
func NewTestSourceItem(id, text string, category Category) SourceItem {
	return SourceItem{
		ID:   id,
		Text: text,
		SourceMeta: SourceMeta{
			Source:     SourceExternal,
			LocalID:    id,
			LicenseTag: LicenseExternalUnknown,
		},
		CategoryMeta: CategoryMeta{
			MetaphorType: category,
			CulturalLoad: CulturalLoadUnknown,
		},
		Meta: ItemMeta{
			LenChar:   len([]rune(text)),
			CreatedAt: "2026-02-15T00:00:00Z",
		},
	}
}
