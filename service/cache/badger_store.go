package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"inkstone-service/service/models"
)

const keySeparator = "\x00"

// BadgerStore 基于 badger 的嵌入式缓存实现
type BadgerStore struct {
	db *badger.DB
}

// badgerLogger 将 badger 日志转接到 slog
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// OpenBadger 打开 badger 缓存目录，path 为空时使用内存模式
func OpenBadger(path string, logger *slog.Logger) (*BadgerStore, error) {
	var opts badger.Options
	if path == "" || path == ":memory:" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0o750); err != nil {
			return nil, storageError("创建缓存目录失败", err)
		}
		opts = badger.DefaultOptions(path).WithSyncWrites(true)
	}
	opts = opts.WithNumVersionsToKeep(1)
	if logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, storageError("打开badger缓存失败", err)
	}
	return &BadgerStore{db: db}, nil
}

func badgerKey(key models.CacheKey) []byte {
	return []byte(key.ItemID + keySeparator + key.EvaluatorID + keySeparator + key.PromptVersion)
}

// Get 读取缓存
func (s *BadgerStore) Get(ctx context.Context, key models.CacheKey) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, storageError("读取缓存失败", err)
	}
	var output []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(key))
		if err != nil {
			return err
		}
		output, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, storageError("读取缓存失败", err)
	}
	return string(output), true, nil
}

// Put 写入缓存
func (s *BadgerStore) Put(ctx context.Context, key models.CacheKey, output string) error {
	if err := ctx.Err(); err != nil {
		return storageError("写入缓存失败", err)
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(key), []byte(output))
	})
	if err != nil {
		return storageError(fmt.Sprintf("写入缓存 %s/%s 失败", key.ItemID, key.EvaluatorID), err)
	}
	return nil
}

// Close 关闭数据库
func (s *BadgerStore) Close() error {
	if err := s.db.Close(); err != nil {
		return storageError("关闭badger缓存失败", err)
	}
	return nil
}
