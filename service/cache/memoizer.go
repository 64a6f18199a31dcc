/*
 * @module service/cache/memoizer
 * @description 先查缓存再生产的记忆化执行器，以及按序回退的生产策略链
 * @architecture 策略链模式 + singleflight 合并同键并发
 * @stateFlow 查缓存 -> 命中返回 | 未命中 -> 策略链(首个成功者) -> 写缓存 -> 返回
 * @rules
 *   - 命中时绝不调用生产方
 *   - 同键在一次运行中最多生产一次
 *   - 策略链末端为必然成功的确定性兜底，任何结果都写入缓存
 * @dependencies golang.org/x/sync/singleflight
 * @refs store.go, service/translate
 */

package cache

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"inkstone-service/service/models"
)

// Strategy 一次生产尝试，ok 为 false 表示无输出
type Strategy interface {
	Name() string
	Produce(ctx context.Context, key models.CacheKey, input string) (output string, ok bool)
}

// StrategyFunc 函数形式的生产策略
type StrategyFunc struct {
	Label string
	Fn    func(ctx context.Context, key models.CacheKey, input string) (string, bool)
}

func (s StrategyFunc) Name() string { return s.Label }

func (s StrategyFunc) Produce(ctx context.Context, key models.CacheKey, input string) (string, bool) {
	return s.Fn(ctx, key, input)
}

// Fallback 必然成功的确定性兜底
type Fallback func(key models.CacheKey, input string) string

// Chain 有序生产策略链
type Chain struct {
	strategies   []Strategy
	fallback     Fallback
	fallbackName string
}

// NewChain 创建策略链，fallback 不可为空
func NewChain(fallbackName string, fallback Fallback, strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies, fallback: fallback, fallbackName: fallbackName}
}

// Produce 依次尝试各策略，返回首个成功结果及其策略名；全部失败时使用兜底
func (c *Chain) Produce(ctx context.Context, key models.CacheKey, input string) (string, string) {
	for _, s := range c.strategies {
		if ctx.Err() != nil {
			break
		}
		if output, ok := s.Produce(ctx, key, input); ok {
			return output, s.Name()
		}
	}
	return c.fallback(key, input), c.fallbackName
}

// Observer 缓存命中观察者
type Observer interface {
	ObserveCache(hit bool)
	ObserveProducer(name string)
}

// Result 记忆化执行结果
type Result struct {
	Output   string
	Producer string
	Hit      bool
}

// Memoizer 记忆化执行器
type Memoizer struct {
	store    Store
	group    singleflight.Group
	observer Observer
	logger   *slog.Logger
}

// MemoizerOption 记忆化执行器选项
type MemoizerOption func(*Memoizer)

// WithObserver 设置观察者
func WithObserver(observer Observer) MemoizerOption {
	return func(m *Memoizer) { m.observer = observer }
}

// WithMemoizerLogger 设置日志记录器
func WithMemoizerLogger(logger *slog.Logger) MemoizerOption {
	return func(m *Memoizer) { m.logger = logger }
}

// NewMemoizer 创建记忆化执行器
func NewMemoizer(store Store, opts ...MemoizerOption) *Memoizer {
	m := &Memoizer{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetOrProduce 命中则返回缓存，否则经策略链生产并写入缓存
func (m *Memoizer) GetOrProduce(ctx context.Context, key models.CacheKey, input string, chain *Chain) (Result, error) {
	flightKey := key.ItemID + keySeparator + key.EvaluatorID + keySeparator + key.PromptVersion
	v, err, _ := m.group.Do(flightKey, func() (interface{}, error) {
		output, ok, err := m.store.Get(ctx, key)
		if err != nil {
			return Result{}, err
		}
		if ok {
			m.observeCache(true)
			return Result{Output: output, Hit: true}, nil
		}
		m.observeCache(false)

		output, producer := chain.Produce(ctx, key, input)
		if err := m.store.Put(ctx, key, output); err != nil {
			return Result{}, err
		}
		if m.observer != nil {
			m.observer.ObserveProducer(producer)
		}
		m.logger.Debug("缓存未命中，已生产并写入", "sid", key.ItemID, "system_id", key.EvaluatorID, "producer", producer)
		return Result{Output: output, Producer: producer}, nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("记忆化执行失败: %w", err)
	}
	return v.(Result), nil
}

func (m *Memoizer) observeCache(hit bool) {
	if m.observer != nil {
		m.observer.ObserveCache(hit)
	}
}
