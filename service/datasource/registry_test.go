/*
 * @module service/datasource/registry_test
 * @description 格式适配器注册中心单元测试
 * @architecture 单元测试 - 测试适配器注册与扩展名分派
 * @stateFlow 准备注册中心 -> 注册/查找 -> 验证结果
 * @rules 覆盖内置适配器、重复注册和非法适配器
 * @dependencies testing, testify
 * @refs registry.go, adapters.go
 */

package datasource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAdapter struct {
	exts []string
}

func (s *stubAdapter) Name() string         { return "stub" }
func (s *stubAdapter) Extensions() []string { return s.exts }
func (s *stubAdapter) Parse(ctx context.Context, content string) ([]Row, error) {
	return []Row{{{Key: "text_zh", Value: content}}}, nil
}

func TestRegistry_BuiltinAdapters(t *testing.T) {
	registry := NewRegistry()
	assert.Equal(t, []string{".csv", ".json", ".jsonl", ".tsv", ".txt"}, registry.SupportedExtensions())

	adapter, ok := registry.AdapterFor(".JSONL")
	require.True(t, ok)
	assert.Equal(t, "jsonl", adapter.Name())

	_, ok = registry.AdapterFor(".xml")
	assert.False(t, ok)
}

func TestRegistry_Register(t *testing.T) {
	tests := []struct {
		name        string
		creator     AdapterCreator
		expectError bool
	}{
		{
			name:        "新扩展名",
			creator:     func() Adapter { return &stubAdapter{exts: []string{".md"}} },
			expectError: false,
		},
		{
			name:        "扩展名冲突",
			creator:     func() Adapter { return &stubAdapter{exts: []string{".csv"}} },
			expectError: true,
		},
		{
			name:        "未声明扩展名",
			creator:     func() Adapter { return &stubAdapter{} },
			expectError: true,
		},
		{
			name:        "空创建函数",
			creator:     nil,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewRegistry()
			err := registry.Register(tt.creator)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			_, ok := registry.AdapterFor(".md")
			assert.True(t, ok)
		})
	}
}

func TestGetGlobalRegistry(t *testing.T) {
	assert.Same(t, GetGlobalRegistry(), GetGlobalRegistry())
}
