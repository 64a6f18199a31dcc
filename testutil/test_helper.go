/*
 * @module testutil/test_helper
 * @description 测试工具和辅助函数
 * @architecture 测试基础设施 - 提供测试通用工具和数据工厂
 * @stateFlow 测试环境初始化 -> 测试数据创建 -> 测试执行 -> 清理资源
 * @rules 提供可重用的测试工具，确保测试环境的一致性；不依赖 service 下的业务包以避免循环导入
 * @dependencies gorm, sqlite, testify
 * @refs service/models
 */

package testutil

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"inkstone-service/service/models"
	"inkstone-service/service/utils"
)

// FrozenTime 测试中固定使用的时间戳
const FrozenTime = "2026-02-15T00:00:00Z"

// TestDB 测试数据库配置
type TestDB struct {
	DB *gorm.DB
}

// NewTestDB 创建内存 sqlite 测试库并迁移缓存表
func NewTestDB() *TestDB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(fmt.Sprintf("failed to connect test database: %v", err))
	}

	// 内存库每个连接独立，限制为单连接
	sqlDB, err := db.DB()
	if err != nil {
		panic(fmt.Sprintf("failed to get test database handle: %v", err))
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.CacheEntry{}); err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}

	return &TestDB{DB: db}
}

// Close 关闭数据库连接
func (tdb *TestDB) Close() {
	if db, err := tdb.DB.DB(); err == nil {
		db.Close()
	}
}

// SourceItemOption 语料条目选项函数类型
type SourceItemOption func(*models.SourceItem)

// WithCategory 设置隐喻类型
func WithCategory(category models.Category) SourceItemOption {
	return func(item *models.SourceItem) { item.CategoryMeta.MetaphorType = category }
}

// NewSourceItem 创建测试语料条目，标识由文本与来源派生
func NewSourceItem(text string, opts ...SourceItemOption) models.SourceItem {
	item := models.SourceItem{
		Text: text,
		SourceMeta: models.SourceMeta{
			Source:     models.SourceExternal,
			LocalID:    "test.jsonl:1",
			LicenseTag: models.LicenseExternalUnknown,
		},
		CategoryMeta: models.CategoryMeta{
			MetaphorType: models.CategoryMixedOther,
			CulturalLoad: models.CulturalLoadUnknown,
		},
		Meta: models.ItemMeta{
			LenChar:   utf8.RuneCountInString(text),
			CreatedAt: FrozenTime,
		},
	}

	// 应用选项
	for _, opt := range opts {
		opt(&item)
	}

	item.ID = utils.StableID(item.Text, item.SourceMeta.Source, item.SourceMeta.LocalID)
	return item
}

// NewSourceItems 按类别批量创建测试语料条目
func NewSourceItems(category models.Category, n int) []models.SourceItem {
	items := make([]models.SourceItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, NewSourceItem(fmt.Sprintf("%s类测试句子第%d条。", category, i+1), WithCategory(category)))
	}
	return items
}

// WriteFile 在目录下写入测试文件并返回路径
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// HTTPTestHelper HTTP测试辅助工具
type HTTPTestHelper struct{}

// NewHTTPTestHelper 创建HTTP测试辅助工具
func NewHTTPTestHelper() *HTTPTestHelper {
	return &HTTPTestHelper{}
}

// DecodeResponse 解析统一响应结构中的 data 字段
func (h *HTTPTestHelper) DecodeResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, data interface{}) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code)

	var envelope struct {
		Status int             `json:"status"`
		Msg    string          `json:"msg"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	if data != nil && len(envelope.Data) > 0 {
		require.NoError(t, json.Unmarshal(envelope.Data, data))
	}
}
