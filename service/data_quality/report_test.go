/*
 * @module service/data_quality/report_test
 * @description 语料质量报告测试
 * @architecture 单元测试 - 纯函数
 * @stateFlow 构造语料 -> 生成报告 -> 字段断言
 * @rules 覆盖分位数下标、类别预置、来源计数与空语料
 * @dependencies testing, testify
 * @refs report.go
 */

package data_quality

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"inkstone-service/service/models"
)

func itemWithLength(id string, n int, source string, category models.Category) models.SourceItem {
	item := models.NewTestSourceItem(id, strings.Repeat("字", n), category)
	item.SourceMeta.Source = source
	return item
}

func TestBuildReport(t *testing.T) {
	var items []models.SourceItem
	for i, n := range []int{10, 3, 7, 25, 8, 12, 6, 9, 30, 11} {
		source := models.SourceSeedBuiltin
		if i%3 == 0 {
			source = models.SourceBooks
		}
		items = append(items, itemWithLength(string(rune('a'+i)), n, source, models.CategorySimile))
	}
	items = append(items, itemWithLength("z", 5, models.SourceCMC, models.CategoryImplicit))

	report := BuildReport(ReportInput{
		CreatedAt:       "2026-02-15T00:00:00Z",
		RowsBeforeDedup: 15,
		Items:           items,
		EvalSet:         items[:4],
		Pool:            items[4:],
		ParserMeta:      models.ParserMeta{NFiles: 2, Files: []models.FileDiagnostic{{File: "a.jsonl"}, {File: "b.csv"}}},
	})

	assert.Equal(t, "2026-02-15T00:00:00Z", report.CreatedAt)
	assert.Equal(t, 15, report.RowsBeforeDedup)
	assert.Equal(t, 11, report.RowsAfterDedup)
	assert.Equal(t, 4, report.DuplicatesRemoved)
	assert.Equal(t, 4, report.EvalRows)
	assert.Equal(t, 7, report.PoolRows)

	assert.Equal(t, map[string]int{
		models.SourceBooks:       4,
		models.SourceSeedBuiltin: 6,
		models.SourceCMC:         1,
	}, report.SourceCounts)

	assert.Len(t, report.MetaphorTypeCounts, 7)
	assert.Equal(t, 10, report.MetaphorTypeCounts[models.CategorySimile])
	assert.Equal(t, 1, report.MetaphorTypeCounts[models.CategoryImplicit])
	assert.Equal(t, 0, report.MetaphorTypeCounts[models.CategorySynesthesia])

	// 排序后: 3 5 6 7 8 9 10 11 12 25 30
	assert.Equal(t, 3, report.LengthStats.Min)
	assert.Equal(t, 30, report.LengthStats.Max)
	assert.InDelta(t, 126.0/11.0, report.LengthStats.Mean, 1e-9)
	assert.Equal(t, 9, report.LengthStats.P50)
	assert.Equal(t, 25, report.LengthStats.P90)

	assert.Equal(t, 2, report.ParserMeta.NFiles)
}

func TestBuildReport_Empty(t *testing.T) {
	report := BuildReport(ReportInput{})
	assert.Equal(t, 0, report.RowsAfterDedup)
	assert.Equal(t, models.LengthStats{}, report.LengthStats)
	assert.Empty(t, report.SourceCounts)
	assert.Len(t, report.MetaphorTypeCounts, 7)
	assert.NotNil(t, report.ParserMeta.Files)
}
