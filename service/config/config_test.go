/*
 * @module service/config/config_test
 * @description 配置加载、校验、默认值与指纹测试
 * @architecture 单元测试 - 临时目录写入配置文件
 * @rules 必填项缺失返回 ErrMissingField；非法取值返回 ErrInvalidField
 * @dependencies testing, testify
 * @refs config.go, validate.go, fingerprint.go
 */

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
paths:
  data_processed: data/processed
  data_external: data/external
  data_raw_books: data/raw/books
run:
  seed: 20260215
  n_eval: 300
systems:
  - id: sys_a
    prompt_version: v1
    llm:
      model: qwen
      base_url: http://localhost:1234/v1
      timeout: 30s
      max_retries: 2
  - id: sys_b
    prompt_version: v1
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "systems.yaml", validYAML))
	require.NoError(t, err)

	assert.Equal(t, int64(20260215), cfg.Seed())
	assert.Equal(t, 300, cfg.NEval())
	assert.Equal(t, 900, cfg.SyntheticRows())
	assert.Equal(t, DefaultReportsDir, cfg.Paths.ReportsDir)
	assert.Equal(t, "writer", cfg.Run.ReferenceSource)
	assert.Equal(t, "judge_standard_v1_icl", cfg.Judge.StandardModel.PromptVersion)
	assert.Equal(t, "sqlite", cfg.Cache.Driver)
	assert.Equal(t, filepath.Join("data/processed", "cache.sqlite3"), cfg.Cache.DSN)
	assert.Equal(t, DefaultServerAddr, cfg.Server.Addr)
	assert.Equal(t, filepath.Join(DefaultReportsDir, MetricsTextfileName), cfg.Metrics.Textfile)
	require.Len(t, cfg.Systems, 2)
	require.NotNil(t, cfg.Systems[0].LLM)
	assert.Equal(t, 30*time.Second, cfg.Systems[0].LLM.Timeout)
	assert.Nil(t, cfg.Systems[1].LLM)

	_, frozen := cfg.FrozenAt()
	assert.False(t, frozen)
}

func TestLoad_JSONFormat(t *testing.T) {
	content := `{"paths":{"data_processed":"p","data_external":"e"},"run":{"seed":0,"n_eval":5,"synthetic_rows":-1,"frozen_at":"2026-02-15T00:00:00Z"},"systems":[{"id":"a","prompt_version":"v1"}]}`
	cfg, err := Load(writeConfig(t, "systems.json", content))
	require.NoError(t, err)
	assert.Equal(t, int64(0), cfg.Seed())
	assert.Equal(t, 0, cfg.SyntheticRows())

	at, ok := cfg.FrozenAt()
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC), at)
}

func TestLoad_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{"缺少种子", `
paths: {data_processed: p, data_external: e}
run: {n_eval: 3}
systems: [{id: a, prompt_version: v1}]
`, "run.seed"},
		{"缺少评测集规模", `
paths: {data_processed: p, data_external: e}
run: {seed: 1}
systems: [{id: a, prompt_version: v1}]
`, "run.n_eval"},
		{"缺少数据目录", `
paths: {data_external: e}
run: {seed: 1, n_eval: 3}
systems: [{id: a, prompt_version: v1}]
`, "paths.data_processed"},
		{"缺少评测系统", `
paths: {data_processed: p, data_external: e}
run: {seed: 1, n_eval: 3}
`, "systems"},
		{"缺少提示词版本", `
paths: {data_processed: p, data_external: e}
run: {seed: 1, n_eval: 3}
systems: [{id: a}]
`, "prompt_version"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, "c.yaml", tt.content))
			require.ErrorIs(t, err, ErrMissingField)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"评测集规模为 0", `
paths: {data_processed: p, data_external: e}
run: {seed: 1, n_eval: 0}
systems: [{id: a, prompt_version: v1}]
`},
		{"系统 id 重复", `
paths: {data_processed: p, data_external: e}
run: {seed: 1, n_eval: 3}
systems: [{id: a, prompt_version: v1}, {id: a, prompt_version: v2}]
`},
		{"不支持的 provider", `
paths: {data_processed: p, data_external: e}
run: {seed: 1, n_eval: 3}
systems: [{id: a, prompt_version: v1, llm: {provider: anthropic, model: m}}]
`},
		{"超时小于 1 毫秒", `
paths: {data_processed: p, data_external: e}
run: {seed: 1, n_eval: 3}
systems: [{id: a, prompt_version: v1, llm: {model: m, timeout: 10us}}]
`},
		{"未知缓存驱动", `
paths: {data_processed: p, data_external: e}
run: {seed: 1, n_eval: 3}
systems: [{id: a, prompt_version: v1}]
cache: {driver: redis}
`},
		{"非法 cron 表达式", `
paths: {data_processed: p, data_external: e}
run: {seed: 1, n_eval: 3}
systems: [{id: a, prompt_version: v1}]
server: {rebuild_cron: "every day"}
`},
		{"非法冻结时间", `
paths: {data_processed: p, data_external: e}
run: {seed: 1, n_eval: 3, frozen_at: yesterday}
systems: [{id: a, prompt_version: v1}]
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, "c.yaml", tt.content))
			assert.ErrorIs(t, err, ErrInvalidField)
		})
	}
}

func TestLoad_FileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "c.toml", "a = 1"))
	assert.ErrorIs(t, err, ErrInvalidField)

	_, err = Load(writeConfig(t, "c.yaml", "paths: [unclosed"))
	assert.Error(t, err)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv(EnvPrefix+"DATA_PROCESSED", "/tmp/override")
	t.Setenv(EnvPrefix+"CACHE_DRIVER", "badger")

	cfg, err := Load(writeConfig(t, "systems.yaml", validYAML))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/override", cfg.Paths.DataProcessed)
	assert.Equal(t, filepath.Join("/tmp/override", "cache.badger"), cfg.Cache.DSN)
}

func TestFingerprint(t *testing.T) {
	path := writeConfig(t, "systems.yaml", validYAML)
	a, err := Load(path)
	require.NoError(t, err)
	b, err := Load(path)
	require.NoError(t, err)

	fa, err := Fingerprint(a)
	require.NoError(t, err)
	fb, err := Fingerprint(b)
	require.NoError(t, err)
	assert.Len(t, fa, 64)
	assert.Equal(t, fa, fb)

	seed := int64(1)
	b.Run.Seed = &seed
	fc, err := Fingerprint(b)
	require.NoError(t, err)
	assert.NotEqual(t, fa, fc)
}

func TestValidate_NilConfig(t *testing.T) {
	assert.ErrorIs(t, Validate(nil), ErrMissingField)
}
