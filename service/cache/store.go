/*
 * @module service/cache/store
 * @description 评测输出缓存：以 (条目, 评测者, 提示词版本) 为复合键的持久化存储
 * @architecture 存储接口 + 多后端实现（gorm: sqlite/postgres，badger）
 * @stateFlow Open -> Get/Put（可重入，同键后写覆盖）-> Close
 * @rules
 *   - Put 为单行原子 upsert，同键不产生重复行
 *   - 存储层错误统一包装为 ErrStorage，调用方视为运行级致命错误
 * @dependencies gorm.io/gorm, gorm.io/driver/sqlite, gorm.io/driver/postgres, github.com/dgraph-io/badger/v4
 * @refs gorm_store.go, badger_store.go, memoizer.go
 */

package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"inkstone-service/service/models"
)

// ErrStorage 缓存存储不可用或损坏
var ErrStorage = errors.New("缓存存储错误")

// 支持的存储驱动
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverBadger   = "badger"
)

// Store 缓存存储接口
type Store interface {
	// Get 读取缓存，未命中时 ok 为 false
	Get(ctx context.Context, key models.CacheKey) (output string, ok bool, err error)

	// Put 写入缓存，同键覆盖
	Put(ctx context.Context, key models.CacheKey, output string) error

	// Close 释放存储句柄
	Close() error
}

// Options 缓存打开参数
type Options struct {
	Driver string
	DSN    string
	Logger *slog.Logger
}

// DefaultDSN 返回驱动在数据目录下的默认存储位置
func DefaultDSN(driver, dataDir string) string {
	switch driver {
	case DriverBadger:
		return filepath.Join(dataDir, "cache.badger")
	case DriverPostgres:
		return ""
	default:
		return filepath.Join(dataDir, "cache.sqlite3")
	}
}

// Open 按驱动打开缓存存储
func Open(ctx context.Context, opts Options) (Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.DSN == "" {
		return nil, fmt.Errorf("%w: 未配置缓存位置", ErrStorage)
	}

	var (
		store Store
		err   error
	)
	switch opts.Driver {
	case "", DriverSQLite:
		store, err = OpenSQLite(ctx, opts.DSN)
	case DriverPostgres:
		store, err = OpenPostgres(ctx, opts.DSN)
	case DriverBadger:
		store, err = OpenBadger(opts.DSN, logger)
	default:
		return nil, fmt.Errorf("%w: 不支持的缓存驱动 %s", ErrStorage, opts.Driver)
	}
	if err != nil {
		return nil, err
	}
	logger.Debug("缓存已打开", "driver", opts.Driver)
	return store, nil
}

func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
