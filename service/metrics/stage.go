/*
 * @module service/metrics/stage
 * @description 指标阶段：按 (条目, 评测系统) 配对模型评分与共识评分，计算一致性与传统指标
 * @architecture 纯计算阶段，随机源由编排器传入
 * @stateFlow 译文 + 模型评分 + 共识评分 -> 配对 -> 逐维相关 -> 系统均值 -> Result
 * @rules
 *   - 系统均值取全部模型评分行
 *   - 无配对行时不计算逐维相关
 * @dependencies log/slog, math/rand/v2
 * @refs correlation.go, traditional.go, service/judge
 */

package metrics

import (
	"log/slog"
	"math/rand/v2"
	"time"

	"inkstone-service/service/models"
)

// DefaultReferenceSource 伪参考译文来源标签
const DefaultReferenceSource = "writer"

// Options 指标阶段参数
type Options struct {
	ReferenceSource string
	// Rand 置换检验随机源，为 nil 时 p 值记为 1
	Rand         *rand.Rand
	Permutations int
	Logger       *slog.Logger
}

// Result 指标阶段输出
type Result struct {
	Rows    []models.TraditionalMetricRow
	Summary models.MetricsSummary
}

// Run 按 (条目, 系统) 配对译文、共识评分与模型评分，计算传统指标与相关性
// 任一侧缺失的配对被排除
func Run(translations []models.TranslationRow, judged []models.JudgeScoreRow, gold []models.PersonaGoldRow, opts Options) Result {
	start := time.Now()
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	refSource := opts.ReferenceSource
	if refSource == "" {
		refSource = DefaultReferenceSource
	}

	judgeByKey := make(map[models.EvalKey]models.JudgeScoreRow, len(judged))
	for _, r := range judged {
		judgeByKey[r.Key()] = r
	}
	goldByKey := make(map[models.EvalKey]models.PersonaGoldRow, len(gold))
	for _, r := range gold {
		goldByKey[r.Key()] = r
	}

	rows := make([]models.TraditionalMetricRow, 0, len(translations))
	var ovGold, ovModel, bleu, meteor []float64
	var byDim [models.DimensionCount][]float64
	for _, t := range translations {
		g, okGold := goldByKey[t.Key()]
		m, okModel := judgeByKey[t.Key()]
		if !okGold || !okModel {
			continue
		}
		ref := ReferenceText(refSource, t.Text)
		row := models.TraditionalMetricRow{
			ItemID:          t.ItemID,
			SystemID:        t.SystemID,
			BLEU:            SentenceBLEU(ref, t.Translation),
			METEOR:          SentenceMETEOR(ref, t.Translation),
			ReferenceSource: refSource,
		}
		rows = append(rows, row)
		ovGold = append(ovGold, float64(g.OVGold))
		ovModel = append(ovModel, float64(m.OVModel))
		bleu = append(bleu, row.BLEU)
		meteor = append(meteor, row.METEOR)
		for i := range byDim {
			byDim[i] = append(byDim[i], float64(m.ScoresModel[i]))
		}
	}

	summary := models.MetricsSummary{
		HumanModelSpearman: Spearman(ovGold, ovModel),
		HumanModelPValue:   PermutationPValue(ovGold, ovModel, opts.Permutations, opts.Rand),
		PairedRows:         len(rows),
		SystemMeans:        SystemMeans(judged),
		DimCorrelation:     make(map[models.Dimension]models.DimensionCorrelation, models.DimensionCount),
	}
	if len(rows) > 0 {
		for i, dim := range models.AllDimensions() {
			summary.DimCorrelation[dim] = models.DimensionCorrelation{
				BLEU:   Spearman(byDim[i], bleu),
				METEOR: Spearman(byDim[i], meteor),
			}
		}
	}

	logger.Info("指标阶段完成",
		"stage", "metrics",
		"rows", len(rows),
		"spearman", summary.HumanModelSpearman,
		"duration", time.Since(start))
	return Result{Rows: rows, Summary: summary}
}

// SystemMeans 按系统计算各维度模型评分均值
func SystemMeans(judged []models.JudgeScoreRow) map[string]map[models.Dimension]float64 {
	sums := make(map[string]*[models.DimensionCount]int)
	counts := make(map[string]int)
	for _, r := range judged {
		acc, ok := sums[r.SystemID]
		if !ok {
			acc = new([models.DimensionCount]int)
			sums[r.SystemID] = acc
		}
		for i, s := range r.ScoresModel {
			acc[i] += s
		}
		counts[r.SystemID]++
	}
	out := make(map[string]map[models.Dimension]float64, len(sums))
	for id, acc := range sums {
		means := make(map[models.Dimension]float64, models.DimensionCount)
		for i, dim := range models.AllDimensions() {
			means[dim] = float64(acc[i]) / float64(counts[id])
		}
		out[id] = means
	}
	return out
}
