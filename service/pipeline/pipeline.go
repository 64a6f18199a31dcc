/*
 * @module service/pipeline/pipeline
 * @description 流水线编排：语料构建、翻译、多角色评分、少样本库、模型评审、指标汇总
 * @architecture 管道模式 - 各阶段完整消费上游输出后再进入下一阶段
 * @stateFlow 配置 -> 语料快照 -> 译文 -> 共识评分 -> 少样本库 -> 模型评分 -> 指标 -> 运行清单
 * @rules
 *   - 随机数生成器由编排器按 (种子, 流编号) 创建并显式传入各阶段
 *   - 缓存在一次运行内打开一次，运行结束时释放
 *   - 每个阶段结束后向运行清单追加一行
 *   - 缓存错误对本次运行是致命的
 * @dependencies github.com/google/uuid, log/slog
 * @refs service/dataset, service/translate, service/judge, service/metrics, manifest.go
 */

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"inkstone-service/service/cache"
	"inkstone-service/service/config"
	"inkstone-service/service/data_quality"
	"inkstone-service/service/dataset"
	"inkstone-service/service/judge"
	"inkstone-service/service/metrics"
	"inkstone-service/service/models"
	"inkstone-service/service/monitoring"
	"inkstone-service/service/translate"
)

// 阶段名称
const (
	StageBuild     = "build_dataset"
	StageTranslate = "translate"
	StagePersona   = "judge_persona"
	StageFewShot   = "icl_builder"
	StageStandard  = "judge_standard"
	StageMetrics   = "metrics"
)

// 阶段输出文件
const (
	TranslationsFile       = "translations.jsonl"
	PersonaGoldFile        = "persona_gold.jsonl"
	FewShotBankFile        = "few_shot_bank.jsonl"
	JudgeScoresFile        = "judge_scores.jsonl"
	MetricsTraditionalFile = "metrics_traditional.jsonl"
	MetricsSummaryFile     = "metrics_summary.jsonl"
)

// Pipeline 流水线
type Pipeline struct {
	cfg         *config.Config
	fingerprint string
	logger      *slog.Logger
	collector   *monitoring.Collector
	clock       func() time.Time
}

// Option 流水线选项
type Option func(*Pipeline)

// WithLogger 设置日志
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithCollector 设置指标收集器
func WithCollector(collector *monitoring.Collector) Option {
	return func(p *Pipeline) { p.collector = collector }
}

// WithClock 设置时钟
func WithClock(clock func() time.Time) Option {
	return func(p *Pipeline) { p.clock = clock }
}

// New 创建流水线
func New(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	fingerprint, err := config.Fingerprint(cfg)
	if err != nil {
		return nil, err
	}
	p := &Pipeline{
		cfg:         cfg,
		fingerprint: fingerprint,
		logger:      slog.Default(),
		clock:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Config 返回流水线配置
func (p *Pipeline) Config() *config.Config {
	return p.cfg
}

// RunOptions 单次运行参数
type RunOptions struct {
	EnableLLM bool
}

// BuildResult 语料构建结果
type BuildResult struct {
	Corpus  *dataset.Corpus
	Report  models.QualityReport
	Outputs map[string]any
}

// RunResult 完整运行结果
type RunResult struct {
	RunID   string
	Build   *BuildResult
	Summary models.MetricsSummary
	Outputs map[string]map[string]any
}

// createdAt 记录时间戳，配置了 frozen_at 时固定
func (p *Pipeline) createdAt() string {
	if at, ok := p.cfg.FrozenAt(); ok {
		return at.Format(time.RFC3339)
	}
	return p.clock().UTC().Format(time.RFC3339)
}

// BuildCorpus 构建语料并写入快照，单独执行时同样追加运行清单
func (p *Pipeline) BuildCorpus(ctx context.Context) (*BuildResult, error) {
	runID := uuid.NewString()
	res, err := p.buildCorpus(ctx)
	if err != nil {
		return nil, err
	}
	if err := p.appendManifest(runID, StageBuild, res.Outputs); err != nil {
		return nil, err
	}
	return res, nil
}

func (p *Pipeline) buildCorpus(ctx context.Context) (*BuildResult, error) {
	start := time.Now()
	seed := p.cfg.Seed()
	createdAt := p.createdAt()
	p.logger.Info("阶段开始", "stage", StageBuild, "seed", seed, "n_eval", p.cfg.NEval())

	corpus, err := dataset.Build(ctx, dataset.BuildOptions{
		ExternalDir:   p.cfg.Paths.DataExternal,
		BooksDir:      p.cfg.Paths.DataRawBooks,
		SyntheticRows: p.cfg.SyntheticRows(),
		TargetN:       p.cfg.NEval(),
		CreatedAt:     createdAt,
		GeneratorRand: dataset.NewRand(seed, dataset.StreamSeedGenerator),
		SamplerRand:   dataset.NewRand(seed, dataset.StreamSampler),
		Logger:        p.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("构建语料失败: %w", err)
	}

	report := data_quality.BuildReport(data_quality.ReportInput{
		CreatedAt:       createdAt,
		RowsBeforeDedup: corpus.RowsBeforeDedup,
		Items:           corpus.Items,
		EvalSet:         corpus.EvalSet,
		Pool:            corpus.Pool,
		ParserMeta:      corpus.ParserMeta,
	})
	paths, err := dataset.WriteSnapshot(p.cfg.Paths.DataProcessed, dataset.Snapshot{
		Items:   corpus.Items,
		EvalSet: corpus.EvalSet,
		Pool:    corpus.Pool,
		Report:  report,
	})
	if err != nil {
		return nil, fmt.Errorf("写入语料快照失败: %w", err)
	}

	outputs := map[string]any{
		"rows":         len(corpus.Items),
		"eval_rows":    len(corpus.EvalSet),
		"pool_rows":    len(corpus.Pool),
		"duplicates":   corpus.Duplicates,
		"eval_set":     paths[dataset.EvalSetFile],
		"source_items": paths[dataset.SourceItemsFile],
		"pool":         paths[dataset.PoolFile],
		"data_quality": paths[dataset.DataQualityFile],
	}
	if p.collector != nil {
		p.collector.ObserveCorpus(len(corpus.Items), len(corpus.EvalSet), len(corpus.Pool), corpus.Duplicates)
	}
	p.finishStage(StageBuild, len(corpus.Items), start)
	return &BuildResult{Corpus: corpus, Report: report, Outputs: outputs}, nil
}

// Run 执行完整流水线
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (res *RunResult, err error) {
	runID := uuid.NewString()
	p.logger.Info("流水线开始", "run_id", runID, "enable_llm", opts.EnableLLM)
	defer func() {
		status := monitoring.RunStatusSuccess
		if err != nil {
			status = monitoring.RunStatusFailed
			p.logger.Error("流水线失败", "run_id", runID, "error", err)
		}
		p.recordRun(status)
	}()

	res = &RunResult{RunID: runID, Outputs: make(map[string]map[string]any)}
	record := func(stage string, outputs map[string]any) error {
		res.Outputs[stage] = outputs
		return p.appendManifest(runID, stage, outputs)
	}

	build, err := p.buildCorpus(ctx)
	if err != nil {
		return nil, err
	}
	res.Build = build
	if err := record(StageBuild, build.Outputs); err != nil {
		return nil, err
	}

	store, err := cache.Open(ctx, cache.Options{Driver: p.cfg.Cache.Driver, DSN: p.cfg.Cache.DSN, Logger: p.logger})
	if err != nil {
		return nil, fmt.Errorf("打开缓存失败: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("关闭缓存失败: %w", cerr)
		}
	}()
	memoOpts := []cache.MemoizerOption{cache.WithMemoizerLogger(p.logger)}
	if p.collector != nil {
		memoOpts = append(memoOpts, cache.WithObserver(p.collector))
	}
	memo := cache.NewMemoizer(store, memoOpts...)

	// 翻译
	start := time.Now()
	translations, err := translate.Run(ctx, memo, build.Corpus.EvalSet, translate.Options{
		Systems:   p.systems(),
		EnableLLM: opts.EnableLLM,
		Logger:    p.logger,
	})
	if err != nil {
		return nil, err
	}
	out, err := writeStage(p, StageTranslate, TranslationsFile, "translations", translations, start)
	if err != nil {
		return nil, err
	}
	if err := record(StageTranslate, out); err != nil {
		return nil, err
	}

	// 多角色评分
	start = time.Now()
	gold, err := judge.RunPersona(translations, p.logger)
	if err != nil {
		return nil, err
	}
	if out, err = writeStage(p, StagePersona, PersonaGoldFile, "persona_gold", gold, start); err != nil {
		return nil, err
	}
	if err := record(StagePersona, out); err != nil {
		return nil, err
	}

	// 少样本库
	start = time.Now()
	bank := judge.BuildFewShotBank(gold, translations, p.logger)
	if out, err = writeStage(p, StageFewShot, FewShotBankFile, "few_shot_bank", bank, start); err != nil {
		return nil, err
	}
	if err := record(StageFewShot, out); err != nil {
		return nil, err
	}

	// 模型评审
	start = time.Now()
	judged := judge.RunStandard(gold, p.cfg.Judge.StandardModel.PromptVersion, p.logger)
	if out, err = writeStage(p, StageStandard, JudgeScoresFile, "judge_scores", judged, start); err != nil {
		return nil, err
	}
	if err := record(StageStandard, out); err != nil {
		return nil, err
	}

	// 指标
	start = time.Now()
	result := metrics.Run(translations, judged, gold, metrics.Options{
		ReferenceSource: p.cfg.Run.ReferenceSource,
		Rand:            dataset.NewRand(p.cfg.Seed(), dataset.StreamPermutation),
		Logger:          p.logger,
	})
	if out, err = writeStage(p, StageMetrics, MetricsTraditionalFile, "metrics_traditional", result.Rows, start); err != nil {
		return nil, err
	}
	summaryPath := p.processedPath(MetricsSummaryFile)
	if err := dataset.WriteJSONL(summaryPath, []models.MetricsSummary{result.Summary}); err != nil {
		return nil, fmt.Errorf("写入指标汇总失败: %w", err)
	}
	out["metrics_summary"] = summaryPath
	out["human_model_spearman"] = result.Summary.HumanModelSpearman
	out["human_model_pvalue"] = result.Summary.HumanModelPValue
	if err := record(StageMetrics, out); err != nil {
		return nil, err
	}
	if p.collector != nil {
		p.collector.ObserveAgreement(result.Summary.HumanModelSpearman, result.Summary.HumanModelPValue)
	}
	res.Summary = result.Summary

	p.logger.Info("流水线完成", "run_id", runID, "paired_rows", result.Summary.PairedRows)
	return res, nil
}

func (p *Pipeline) systems() []translate.System {
	out := make([]translate.System, 0, len(p.cfg.Systems))
	for _, s := range p.cfg.Systems {
		out = append(out, translate.System{
			ID:            s.ID,
			PromptVersion: s.PromptVersion,
			LLM:           s.LLM,
			FallbackLLM:   s.FallbackLLM,
		})
	}
	return out
}

func (p *Pipeline) processedPath(name string) string {
	return filepath.Join(p.cfg.Paths.DataProcessed, name)
}

// writeStage 写出阶段结果并返回清单输出项
func writeStage[T any](p *Pipeline, stage, file, key string, rows []T, start time.Time) (map[string]any, error) {
	path := p.processedPath(file)
	if err := dataset.WriteJSONL(path, rows); err != nil {
		return nil, fmt.Errorf("写入 %s 失败: %w", file, err)
	}
	p.finishStage(stage, len(rows), start)
	return map[string]any{"rows": len(rows), key: path}, nil
}

func (p *Pipeline) finishStage(stage string, rows int, start time.Time) {
	elapsed := time.Since(start)
	if p.collector != nil {
		p.collector.ObserveStage(stage, rows, elapsed)
	}
	p.logger.Info("阶段完成", "stage", stage, "rows", rows, "duration", elapsed)
}

func (p *Pipeline) recordRun(status string) {
	if p.collector == nil {
		return
	}
	p.collector.ObserveRun(status, p.clock())
	if err := p.collector.WriteTextfile(p.cfg.Metrics.Textfile); err != nil {
		p.logger.Warn("导出指标文件失败", "path", p.cfg.Metrics.Textfile, "error", err)
	}
}
