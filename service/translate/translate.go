/*
 * @module service/translate/translate
 * @description 翻译阶段：评测集 × 评测系统，经缓存记忆化生产译文
 * @architecture 策略链 - 主模型 -> 备用本地模型 -> 确定性兜底
 * @stateFlow 评测集 -> (条目, 系统, 提示词版本) -> 缓存/策略链 -> translations.jsonl
 * @rules
 *   - 先查缓存再生产，任何结果都写回缓存
 *   - 仅在启用 LLM 时把模型策略放入链中
 *   - 兜底译文为 "[系统] 原文"，全角 ASCII 变体折叠为半角
 * @dependencies inkstone-service/service/cache, inkstone-service/service/llm
 * @refs service/pipeline
 */

package translate

import (
	"context"
	"fmt"
	"log/slog"

	"inkstone-service/service/cache"
	"inkstone-service/service/llm"
	"inkstone-service/service/models"
	"inkstone-service/service/utils"
)

// 策略名称
const (
	ProducerPrimary  = "llm_primary"
	ProducerFallback = "llm_fallback"
	ProducerMock     = "mock"
)

const systemPrompt = "You are a literary translator. Translate the Chinese sentence into natural English, " +
	"preserving its metaphor and imagery. Reply with the translation only."

// System 评测系统
type System struct {
	ID            string
	PromptVersion string
	LLM           *llm.Config
	FallbackLLM   *llm.Config
}

// Options 翻译阶段参数
type Options struct {
	Systems   []System
	EnableLLM bool
	Logger    *slog.Logger
}

// MockTranslate 确定性兜底译文
func MockTranslate(systemID, text string) string {
	return "[" + systemID + "] " + utils.NarrowWidth(text)
}

// Producer 对话补全协作方
type Producer interface {
	Produce(ctx context.Context, systemPrompt, userPrompt string) (string, bool)
}

// llmStrategy 将协作方适配为缓存策略
type llmStrategy struct {
	name     string
	producer Producer
}

func (s llmStrategy) Name() string { return s.name }

func (s llmStrategy) Produce(ctx context.Context, key models.CacheKey, input string) (string, bool) {
	return s.producer.Produce(ctx, systemPrompt, input)
}

// BuildChain 为单个系统构建生产策略链
func BuildChain(system System, enableLLM bool, logger *slog.Logger) (*cache.Chain, error) {
	var strategies []cache.Strategy
	if enableLLM {
		for _, candidate := range []struct {
			name string
			cfg  *llm.Config
		}{
			{ProducerPrimary, system.LLM},
			{ProducerFallback, system.FallbackLLM},
		} {
			if candidate.cfg == nil {
				continue
			}
			client, err := llm.NewClient(*candidate.cfg, logger)
			if err != nil {
				return nil, fmt.Errorf("系统 %s 的 %s 配置无效: %w", system.ID, candidate.name, err)
			}
			if client.Available() {
				strategies = append(strategies, llmStrategy{name: candidate.name, producer: client})
			}
		}
	}
	fallback := func(key models.CacheKey, input string) string {
		return MockTranslate(key.EvaluatorID, input)
	}
	return cache.NewChain(ProducerMock, fallback, strategies...), nil
}

// Run 为评测集中每个条目、每个系统生产译文
func Run(ctx context.Context, memo *cache.Memoizer, evalSet []models.SourceItem, opts Options) ([]models.TranslationRow, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	chains := make(map[string]*cache.Chain, len(opts.Systems))
	for _, system := range opts.Systems {
		chain, err := BuildChain(system, opts.EnableLLM, logger)
		if err != nil {
			return nil, err
		}
		chains[system.ID] = chain
	}
	return RunWithChains(ctx, memo, evalSet, opts.Systems, chains, logger)
}

// RunWithChains 使用给定策略链执行翻译阶段
func RunWithChains(ctx context.Context, memo *cache.Memoizer, evalSet []models.SourceItem, systems []System, chains map[string]*cache.Chain, logger *slog.Logger) ([]models.TranslationRow, error) {
	rows := make([]models.TranslationRow, 0, len(evalSet)*len(systems))
	hits := 0
	for _, item := range evalSet {
		for _, system := range systems {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			key := models.CacheKey{ItemID: item.ID, EvaluatorID: system.ID, PromptVersion: system.PromptVersion}
			result, err := memo.GetOrProduce(ctx, key, item.Text, chains[system.ID])
			if err != nil {
				return nil, fmt.Errorf("翻译 %s/%s 失败: %w", item.ID, system.ID, err)
			}
			if result.Hit {
				hits++
			}
			rows = append(rows, models.TranslationRow{
				ItemID:        item.ID,
				SystemID:      system.ID,
				Text:          item.Text,
				Translation:   result.Output,
				PromptVersion: system.PromptVersion,
			})
		}
	}
	logger.Info("翻译阶段完成", "rows", len(rows), "cache_hits", hits, "systems", len(systems))
	return rows, nil
}
