/*
 * @module service/translate/translate_test
 * @description 翻译阶段测试
 * @architecture 单元测试 - 内存 sqlite 缓存 + httptest 模拟模型服务
 * @stateFlow 构造评测集 -> 运行翻译阶段 -> 断言译文、缓存与回退顺序
 * @rules 覆盖兜底译文、重跑命中缓存、主模型成功、主模型失败回退备用模型
 * @dependencies testing, testify
 * @refs translate.go
 */

package translate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkstone-service/service/cache"
	"inkstone-service/service/llm"
	"inkstone-service/service/models"
	"inkstone-service/testutil"
)

const testKeyEnv = "INKSTONE_TEST_TRANSLATE_KEY"

func newMemoizer(t *testing.T) (*cache.Memoizer, cache.Store) {
	t.Helper()
	testDB := testutil.NewTestDB()
	t.Cleanup(testDB.Close)
	store, err := cache.NewGormStore(context.Background(), testDB.DB)
	require.NoError(t, err)
	return cache.NewMemoizer(store), store
}

func chatServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": content}}},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func llmConfig(baseURL string) *llm.Config {
	return &llm.Config{Model: "m", BaseURL: baseURL, APIKeyEnv: testKeyEnv, Timeout: 5 * time.Second}
}

func TestMockTranslate(t *testing.T) {
	assert.Equal(t, "[sys_a] 她的笑容像春风一样温暖。(候选1)", MockTranslate("sys_a", "她的笑容像春风一样温暖。（候选1）"))
}

func TestRun_MockAndCache(t *testing.T) {
	ctx := context.Background()
	memo, store := newMemoizer(t)
	evalSet := []models.SourceItem{
		testutil.NewSourceItem("城市在夜里打了个哈欠。（候选3）"),
		testutil.NewSourceItem("生活是一场旅行。"),
	}
	opts := Options{Systems: []System{
		{ID: "sys_a", PromptVersion: "trans_v1"},
		{ID: "sys_b", PromptVersion: "trans_v2"},
	}}

	rows, err := Run(ctx, memo, evalSet, opts)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, evalSet[0].ID, rows[0].ItemID)
	assert.Equal(t, "sys_a", rows[0].SystemID)
	assert.Equal(t, "sys_b", rows[1].SystemID)
	assert.Equal(t, "[sys_a] 城市在夜里打了个哈欠。(候选3)", rows[0].Translation)
	assert.Equal(t, "trans_v2", rows[1].PromptVersion)

	output, ok, err := store.Get(ctx, models.CacheKey{ItemID: evalSet[1].ID, EvaluatorID: "sys_b", PromptVersion: "trans_v2"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "[sys_b] 生活是一场旅行。", output)

	// 预置缓存后重跑应直接使用缓存值
	key := models.CacheKey{ItemID: evalSet[0].ID, EvaluatorID: "sys_a", PromptVersion: "trans_v1"}
	require.NoError(t, store.Put(ctx, key, "The city yawned at night."))
	again, err := Run(ctx, memo, evalSet, opts)
	require.NoError(t, err)
	assert.Equal(t, "The city yawned at night.", again[0].Translation)
	assert.Equal(t, rows[1:], again[1:])
}

func TestRun_LLMDisabledIgnoresConfiguredModels(t *testing.T) {
	t.Setenv(testKeyEnv, "sk-test")
	server := chatServer(t, http.StatusOK, "from model")
	memo, _ := newMemoizer(t)

	rows, err := Run(context.Background(), memo, []models.SourceItem{testutil.NewSourceItem("时间在指缝间悄悄流走。")}, Options{
		Systems: []System{{ID: "sys_a", PromptVersion: "v1", LLM: llmConfig(server.URL)}},
	})
	require.NoError(t, err)
	assert.Equal(t, "[sys_a] 时间在指缝间悄悄流走。", rows[0].Translation)
}

func TestRun_StrategyOrder(t *testing.T) {
	t.Setenv(testKeyEnv, "sk-test")
	good := chatServer(t, http.StatusOK, "Time slips through the fingers.")
	bad := chatServer(t, http.StatusServiceUnavailable, "")
	item := testutil.NewSourceItem("时间在指缝间悄悄流走。")

	testCases := []struct {
		name     string
		system   System
		expected string
	}{
		{
			name:     "主模型成功",
			system:   System{ID: "s1", PromptVersion: "v1", LLM: llmConfig(good.URL), FallbackLLM: llmConfig(bad.URL)},
			expected: "Time slips through the fingers.",
		},
		{
			name:     "主模型失败回退备用模型",
			system:   System{ID: "s2", PromptVersion: "v1", LLM: llmConfig(bad.URL), FallbackLLM: llmConfig(good.URL)},
			expected: "Time slips through the fingers.",
		},
		{
			name:     "全部失败回退兜底",
			system:   System{ID: "s3", PromptVersion: "v1", LLM: llmConfig(bad.URL), FallbackLLM: llmConfig(bad.URL)},
			expected: "[s3] 时间在指缝间悄悄流走。",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			memo, _ := newMemoizer(t)
			rows, err := Run(context.Background(), memo, []models.SourceItem{item}, Options{Systems: []System{tc.system}, EnableLLM: true})
			require.NoError(t, err)
			require.Len(t, rows, 1)
			assert.Equal(t, tc.expected, rows[0].Translation)
		})
	}
}

func TestBuildChain_InvalidProvider(t *testing.T) {
	_, err := BuildChain(System{ID: "s", LLM: &llm.Config{Provider: "other"}}, true, nil)
	assert.Error(t, err)
}
