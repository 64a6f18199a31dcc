/*
 * @module service/dataset/builder
 * @description 语料构建：汇集外部语料、书籍语料与合成语料，去重并分层抽样
 * @architecture 管道模式 - 各阶段完整消费上游输出后再进入下一阶段
 * @stateFlow 外部目录 + 书籍目录 + 合成生成器 -> 去重 -> 抽样 -> Corpus
 * @rules
 *   - 缺失的可选来源视为零贡献
 *   - 合成生成器与抽样器使用各自独立的随机数流
 *   - 合并顺序：外部语料、书籍语料、合成语料（去重保留先出现者）
 * @dependencies log/slog
 * @refs service/datasource/parser.go, seed.go, dedup.go, sampler.go
 */

package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"inkstone-service/service/datasource"
	"inkstone-service/service/models"
)

// BuildOptions 语料构建参数
type BuildOptions struct {
	ExternalDir   string
	BooksDir      string
	SyntheticRows int
	TargetN       int
	CreatedAt     string
	GeneratorRand *rand.Rand
	SamplerRand   *rand.Rand
	Parser        *datasource.Parser
	Logger        *slog.Logger
}

// Corpus 一次构建产出的语料
type Corpus struct {
	Items           []models.SourceItem
	EvalSet         []models.SourceItem
	Pool            []models.SourceItem
	RowsBeforeDedup int
	Duplicates      int
	ParserMeta      models.ParserMeta
}

// Build 构建语料
func Build(ctx context.Context, opts BuildOptions) (*Corpus, error) {
	if opts.SamplerRand == nil {
		return nil, fmt.Errorf("抽样随机数生成器未设置")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	parser := opts.Parser
	if parser == nil {
		parser = datasource.NewParser(opts.CreatedAt, datasource.WithLogger(logger))
	}

	external, err := parser.ParseDirectory(ctx, opts.ExternalDir)
	if err != nil {
		return nil, err
	}
	books, err := parser.ParseBooks(ctx, opts.BooksDir)
	if err != nil {
		return nil, err
	}
	seeds := GenerateSeedItems(opts.SyntheticRows, opts.CreatedAt, opts.GeneratorRand)

	rows := make([]models.SourceItem, 0, len(external.Items)+len(books)+len(seeds))
	rows = append(rows, external.Items...)
	rows = append(rows, books...)
	rows = append(rows, seeds...)

	items, dropped := Dedup(rows)
	evalSet, pool := SampleWithRand(items, opts.TargetN, opts.SamplerRand)

	logger.Info("语料构建完成",
		"external_rows", len(external.Items),
		"book_rows", len(books),
		"seed_rows", len(seeds),
		"rows_after_dedup", len(items),
		"duplicates", dropped,
		"eval_rows", len(evalSet),
		"pool_rows", len(pool))

	return &Corpus{
		Items:           items,
		EvalSet:         evalSet,
		Pool:            pool,
		RowsBeforeDedup: len(rows),
		Duplicates:      dropped,
		ParserMeta:      external.Meta,
	}, nil
}
