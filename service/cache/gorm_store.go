package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"inkstone-service/service/models"
)

// GormStore 基于 gorm 的缓存表实现
type GormStore struct {
	db *gorm.DB
}

// NewGormStore 使用已打开的连接创建缓存存储，并确保缓存表存在
func NewGormStore(ctx context.Context, db *gorm.DB) (*GormStore, error) {
	if err := db.WithContext(ctx).AutoMigrate(&models.CacheEntry{}); err != nil {
		return nil, storageError("迁移缓存表失败", err)
	}
	return &GormStore{db: db}, nil
}

// OpenSQLite 打开 sqlite 缓存文件，单连接串行访问
func OpenSQLite(ctx context.Context, path string) (*GormStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, storageError("创建缓存目录失败", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, storageError("打开sqlite缓存失败", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, storageError("获取sqlite连接失败", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.WithContext(ctx).Exec("PRAGMA busy_timeout = 5000").Error; err != nil {
		_ = sqlDB.Close()
		return nil, storageError("设置sqlite参数失败", err)
	}
	store, err := NewGormStore(ctx, db)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return store, nil
}

// OpenPostgres 打开 postgres 缓存表
func OpenPostgres(ctx context.Context, dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, storageError("连接postgres缓存失败", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, storageError("获取postgres连接失败", err)
	}
	sqlDB.SetMaxIdleConns(4)
	sqlDB.SetMaxOpenConns(16)
	sqlDB.SetConnMaxLifetime(time.Hour)

	store, err := NewGormStore(ctx, db)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return store, nil
}

// Get 读取缓存
func (s *GormStore) Get(ctx context.Context, key models.CacheKey) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, storageError("读取缓存失败", err)
	}
	var entry models.CacheEntry
	err := s.db.WithContext(ctx).
		Where("sid = ? AND system_id = ? AND prompt_version = ?", key.ItemID, key.EvaluatorID, key.PromptVersion).
		Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, storageError("读取缓存失败", err)
	}
	return entry.Output, true, nil
}

// Put 写入缓存，冲突时覆盖
func (s *GormStore) Put(ctx context.Context, key models.CacheKey, output string) error {
	if err := ctx.Err(); err != nil {
		return storageError("写入缓存失败", err)
	}
	entry := models.CacheEntry{
		ItemID:        key.ItemID,
		EvaluatorID:   key.EvaluatorID,
		PromptVersion: key.PromptVersion,
		Output:        output,
		UpdatedAt:     time.Now().UTC(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&entry).Error
	if err != nil {
		return storageError(fmt.Sprintf("写入缓存 %s/%s 失败", key.ItemID, key.EvaluatorID), err)
	}
	return nil
}

// Count 返回缓存行数
func (s *GormStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.CacheEntry{}).Count(&count).Error; err != nil {
		return 0, storageError("统计缓存失败", err)
	}
	return count, nil
}

// Close 关闭连接
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return storageError("获取连接失败", err)
	}
	return sqlDB.Close()
}
