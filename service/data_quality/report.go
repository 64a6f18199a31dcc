/*
 * @module service/data_quality/report
 * @description 语料质量报告，汇总去重前后计数、来源/类别分布、长度分位数与解析诊断
 * @architecture 纯聚合函数 - 无副作用
 * @stateFlow 去重后语料 + 评测集 + 候选池 + 解析诊断 -> QualityReport
 * @rules
 *   - 类别计数预置词表内全部类别为 0
 *   - p50 取排序后下标 n/2，p90 取下标 floor(0.9·n)
 *   - 空语料返回全零统计，不报错
 * @dependencies inkstone-service/service/models
 * @refs service/dataset/builder.go, service/pipeline
 */

package data_quality

import (
	"sort"

	"inkstone-service/service/models"
)

// ReportInput 质量报告输入
type ReportInput struct {
	CreatedAt       string
	RowsBeforeDedup int
	Items           []models.SourceItem
	EvalSet         []models.SourceItem
	Pool            []models.SourceItem
	ParserMeta      models.ParserMeta
}

// BuildReport 生成质量报告
func BuildReport(in ReportInput) models.QualityReport {
	sourceCounts := make(map[string]int)
	typeCounts := make(map[models.Category]int, len(models.AllCategories()))
	for _, category := range models.AllCategories() {
		typeCounts[category] = 0
	}

	lengths := make([]int, 0, len(in.Items))
	for _, item := range in.Items {
		lengths = append(lengths, item.Meta.LenChar)
		sourceCounts[item.SourceMeta.Source]++
		typeCounts[item.Category()]++
	}

	parserMeta := in.ParserMeta
	if parserMeta.Files == nil {
		parserMeta.Files = []models.FileDiagnostic{}
	}

	return models.QualityReport{
		CreatedAt:          in.CreatedAt,
		RowsBeforeDedup:    in.RowsBeforeDedup,
		RowsAfterDedup:     len(in.Items),
		DuplicatesRemoved:  in.RowsBeforeDedup - len(in.Items),
		EvalRows:           len(in.EvalSet),
		PoolRows:           len(in.Pool),
		SourceCounts:       sourceCounts,
		MetaphorTypeCounts: typeCounts,
		LengthStats:        lengthStats(lengths),
		ParserMeta:         parserMeta,
	}
}

func lengthStats(lengths []int) models.LengthStats {
	if len(lengths) == 0 {
		return models.LengthStats{}
	}
	sort.Ints(lengths)
	total := 0
	for _, n := range lengths {
		total += n
	}
	return models.LengthStats{
		Min:  lengths[0],
		Max:  lengths[len(lengths)-1],
		Mean: float64(total) / float64(len(lengths)),
		P50:  lengths[len(lengths)/2],
		P90:  lengths[len(lengths)*9/10],
	}
}
