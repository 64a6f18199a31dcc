/*
 * @module service/config/config
 * @description 流水线配置：从 YAML/JSON 文件加载，补齐可选项默认值，必填项缺失即报错
 * @architecture 分层架构 - 配置层
 * @stateFlow 读取文件 -> 解析 -> 环境变量覆盖 -> 校验 -> 补齐默认值
 * @rules
 *   - 必填项（数据目录、随机种子、评测集规模、评测系统）不做静默默认
 *   - 可选项缺省时使用固定默认值
 *   - 环境变量前缀为 INKSTONE_
 * @dependencies gopkg.in/yaml.v3, github.com/go-playground/validator/v10
 * @refs validate.go, fingerprint.go
 */

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"inkstone-service/service/cache"
	"inkstone-service/service/judge"
	"inkstone-service/service/llm"
	"inkstone-service/service/metrics"
)

// 配置错误
var (
	ErrMissingField = errors.New("缺少必填配置项")
	ErrInvalidField = errors.New("配置项取值无效")
)

// EnvPrefix 环境变量覆盖前缀
const EnvPrefix = "INKSTONE_"

// 可选项默认值
const (
	DefaultReportsDir   = "reports"
	DefaultServerAddr   = ":8080"
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "json"
	MetricsTextfileName = "metrics.prom"
)

// Config 流水线配置
type Config struct {
	Paths   PathsConfig    `yaml:"paths" json:"paths"`
	Run     RunConfig      `yaml:"run" json:"run"`
	Systems []SystemConfig `yaml:"systems" json:"systems" validate:"required,min=1,unique=ID,dive"`
	Judge   JudgeConfig    `yaml:"judge" json:"judge"`
	Cache   CacheConfig    `yaml:"cache" json:"cache"`
	Server  ServerConfig   `yaml:"server" json:"server"`
	Metrics MetricsConfig  `yaml:"metrics" json:"metrics"`
	Logging LoggingConfig  `yaml:"logging" json:"logging"`
}

// PathsConfig 数据目录
type PathsConfig struct {
	DataProcessed string `yaml:"data_processed" json:"data_processed" validate:"required"`
	DataExternal  string `yaml:"data_external" json:"data_external" validate:"required"`
	DataRawBooks  string `yaml:"data_raw_books" json:"data_raw_books,omitempty"`
	ReportsDir    string `yaml:"reports_dir" json:"reports_dir"`
}

// RunConfig 运行参数
type RunConfig struct {
	Seed            *int64 `yaml:"seed" json:"seed" validate:"required"`
	NEval           *int   `yaml:"n_eval" json:"n_eval" validate:"required,gt=0"`
	ReferenceSource string `yaml:"reference_source" json:"reference_source"`
	EnableLLM       bool   `yaml:"enable_llm" json:"enable_llm"`
	// SyntheticRows 为负数时关闭合成语料
	SyntheticRows   *int   `yaml:"synthetic_rows" json:"synthetic_rows,omitempty"`
	// FrozenAt 固定写入每条记录的时间戳
	FrozenAt        string `yaml:"frozen_at" json:"frozen_at,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// SystemConfig 评测系统
type SystemConfig struct {
	ID            string      `yaml:"id" json:"id" validate:"required"`
	PromptVersion string      `yaml:"prompt_version" json:"prompt_version" validate:"required"`
	LLM           *llm.Config `yaml:"llm" json:"llm,omitempty"`
	FallbackLLM   *llm.Config `yaml:"fallback_llm" json:"fallback_llm,omitempty"`
}

// JudgeConfig 评审参数
type JudgeConfig struct {
	StandardModel struct {
		PromptVersion string `yaml:"prompt_version" json:"prompt_version"`
	} `yaml:"standard_model" json:"standard_model"`
}

// CacheConfig 缓存存储
type CacheConfig struct {
	Driver string `yaml:"driver" json:"driver" validate:"omitempty,oneof=sqlite postgres badger"`
	DSN    string `yaml:"dsn" json:"dsn"`
}

// ServerConfig 服务模式参数
type ServerConfig struct {
	Addr        string `yaml:"addr" json:"addr"`
	RebuildCron string `yaml:"rebuild_cron" json:"rebuild_cron,omitempty" validate:"omitempty,cronspec"`
}

// MetricsConfig 监控指标导出
type MetricsConfig struct {
	Textfile string `yaml:"textfile" json:"textfile"`
}

// LoggingConfig 日志
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" json:"format" validate:"omitempty,oneof=json text auto"`
}

// Load 加载并校验配置文件
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	cfg := &Config{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".json":
		err = json.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("%w: 不支持的配置文件格式 %s", ErrInvalidField, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	applyEnvironmentOverrides(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// applyEnvironmentOverrides 环境变量覆盖数据目录与缓存位置
func applyEnvironmentOverrides(cfg *Config) {
	overrides := map[string]*string{
		"DATA_PROCESSED": &cfg.Paths.DataProcessed,
		"DATA_EXTERNAL":  &cfg.Paths.DataExternal,
		"DATA_RAW_BOOKS": &cfg.Paths.DataRawBooks,
		"REPORTS_DIR":    &cfg.Paths.ReportsDir,
		"CACHE_DRIVER":   &cfg.Cache.Driver,
		"CACHE_DSN":      &cfg.Cache.DSN,
	}
	for name, field := range overrides {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok && v != "" {
			*field = v
		}
	}
}

// ApplyDefaults 补齐可选项默认值
func (c *Config) ApplyDefaults() {
	if c.Paths.ReportsDir == "" {
		c.Paths.ReportsDir = DefaultReportsDir
	}
	if c.Run.ReferenceSource == "" {
		c.Run.ReferenceSource = metrics.DefaultReferenceSource
	}
	if c.Judge.StandardModel.PromptVersion == "" {
		c.Judge.StandardModel.PromptVersion = judge.DefaultJudgePromptVersion
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = cache.DriverSQLite
	}
	if c.Cache.DSN == "" {
		c.Cache.DSN = cache.DefaultDSN(c.Cache.Driver, c.Paths.DataProcessed)
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
	if c.Metrics.Textfile == "" {
		c.Metrics.Textfile = filepath.Join(c.Paths.ReportsDir, MetricsTextfileName)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
}

// Seed 随机种子
func (c *Config) Seed() int64 {
	if c.Run.Seed == nil {
		return 0
	}
	return *c.Run.Seed
}

// NEval 评测集目标规模
func (c *Config) NEval() int {
	if c.Run.NEval == nil {
		return 0
	}
	return *c.Run.NEval
}

// SyntheticRows 合成语料行数，未配置时为 max(3·n_eval, 900)，负数为 0
func (c *Config) SyntheticRows() int {
	if c.Run.SyntheticRows == nil {
		return max(3*c.NEval(), 900)
	}
	return max(0, *c.Run.SyntheticRows)
}

// FrozenAt 解析固定时间戳，未配置时返回零值
func (c *Config) FrozenAt() (time.Time, bool) {
	if c.Run.FrozenAt == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, c.Run.FrozenAt)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// PathMap 数据目录映射，写入运行清单
func (c *Config) PathMap() map[string]string {
	out := map[string]string{
		"data_processed": c.Paths.DataProcessed,
		"data_external":  c.Paths.DataExternal,
		"reports_dir":    c.Paths.ReportsDir,
	}
	if c.Paths.DataRawBooks != "" {
		out["data_raw_books"] = c.Paths.DataRawBooks
	}
	return out
}
