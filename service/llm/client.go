/*
 * @module service/llm/client
 * @description OpenAI 兼容的对话补全客户端，作为评测输出的外部生产方
 * @architecture 外部协作方适配层 - 对核心只暴露 (输出, 是否成功)
 * @stateFlow 解析密钥 -> 限速 -> 带超时请求 -> 失败重试 -> 输出或缺席
 * @rules
 *   - 重试次数为 max_retries+1，全部失败返回缺席，绝不向上抛错
 *   - 未配置密钥且地址为本机时使用占位密钥；否则无密钥即缺席
 *   - 空回复视为缺席
 * @dependencies github.com/sashabaranov/go-openai, golang.org/x/time/rate
 * @refs service/translate
 */

package llm

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// ProviderOpenAICompatible 唯一支持的提供方类型
const ProviderOpenAICompatible = "openai_compatible"

// DefaultTemperature 未配置采样温度时的默认值
const DefaultTemperature float32 = 0.2

// localAPIKey 本机推理服务的占位密钥
const localAPIKey = "lm-studio"

// Config 客户端配置
type Config struct {
	Provider          string        `yaml:"provider" json:"provider" validate:"omitempty,oneof=openai_compatible"`
	Model             string        `yaml:"model" json:"model" validate:"required"`
	BaseURL           string        `yaml:"base_url" json:"base_url,omitempty" validate:"omitempty,url"`
	APIKeyEnv         string        `yaml:"api_key_env" json:"api_key_env"`
	Temperature       *float32      `yaml:"temperature" json:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout" validate:"omitempty,min=1ms"`
	MaxRetries        int           `yaml:"max_retries" json:"max_retries" validate:"gte=0"`
	RequestsPerSecond float64       `yaml:"requests_per_second" json:"requests_per_second" validate:"gte=0"`
}

// WithDefaults 返回补齐默认值的配置
func (c Config) WithDefaults() Config {
	if c.Provider == "" {
		c.Provider = ProviderOpenAICompatible
	}
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = "OPENAI_API_KEY"
	}
	if c.Temperature == nil {
		t := DefaultTemperature
		c.Temperature = &t
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	return c
}

// Client 对话补全客户端
type Client struct {
	cfg     Config
	client  *openai.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClient 创建客户端；没有可用密钥时返回的客户端始终缺席
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	cfg = cfg.WithDefaults()
	if cfg.Provider != ProviderOpenAICompatible {
		return nil, fmt.Errorf("暂不支持的 provider: %s", cfg.Provider)
	}
	if logger == nil {
		logger = slog.Default()
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	c := &Client{cfg: cfg, limiter: rate.NewLimiter(limit, 1), logger: logger}

	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" && strings.Contains(cfg.BaseURL, "localhost") {
		key = localAPIKey
	}
	if key == "" {
		logger.Debug("未配置LLM密钥，客户端不可用", "model", cfg.Model, "api_key_env", cfg.APIKeyEnv)
		return c, nil
	}

	clientCfg := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	c.client = openai.NewClientWithConfig(clientCfg)
	return c, nil
}

// Available 是否具备发起请求的条件
func (c *Client) Available() bool {
	return c.client != nil
}

// Model 模型名称
func (c *Client) Model() string {
	return c.cfg.Model
}

// Produce 请求一次对话补全，失败时按配置重试，最终失败返回缺席
func (c *Client) Produce(ctx context.Context, systemPrompt, userPrompt string) (string, bool) {
	if c.client == nil {
		return "", false
	}

	attempts := max(1, c.cfg.MaxRetries+1)
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", false
		}
		output, err := c.complete(ctx, systemPrompt, userPrompt)
		if err == nil && output != "" {
			return output, true
		}
		c.logger.Warn("LLM请求失败", "model", c.cfg.Model, "attempt", attempt, "attempts", attempts, "error", err)
		if ctx.Err() != nil {
			return "", false
		}
	}
	return "", false
}

// temperature 请求中的采样温度；go-openai 会省略零值，显式的 0 以最小正数发送
func (c *Client) temperature() float32 {
	if c.cfg.Temperature == nil {
		return DefaultTemperature
	}
	if *c.cfg.Temperature == 0 {
		return math.SmallestNonzeroFloat32
	}
	return *c.cfg.Temperature
}

func (c *Client) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Temperature: c.temperature(),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("对话补全请求失败: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("对话补全没有返回结果")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
