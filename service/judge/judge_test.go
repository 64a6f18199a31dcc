/*
 * @module service/judge/judge_test
 * @description 评分聚合、模拟评审与少样本库测试
 * @architecture 单元测试
 * @stateFlow 构造评分 -> 聚合/评审/筛选 -> 断言
 * @rules 覆盖中位数与极差、OV 取整、确定性模拟评分、少样本筛选条件
 * @dependencies testing, testify
 * @refs aggregate.go, persona.go, standard.go, fewshot.go
 */

package judge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkstone-service/service/models"
)

func TestAggregate_MedianAndRange(t *testing.T) {
	raters := []models.ScoreVector{
		{2, 5, 3, 3, 3},
		{4, 5, 3, 3, 3},
		{3, 1, 3, 3, 3},
	}
	c, err := Aggregate(raters)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Scores.Get(models.DimensionIF))
	assert.Equal(t, 5, c.Scores.Get(models.DimensionEC))
	assert.Equal(t, 2, c.Range.Get(models.DimensionIF))
	assert.Equal(t, 4, c.Range.Get(models.DimensionEC))
	assert.Equal(t, 0, c.Range.Get(models.DimensionRE))
}

func TestAggregate_RaterOrderIndependent(t *testing.T) {
	a := models.ScoreVector{1, 2, 3, 4, 5}
	b := models.ScoreVector{5, 4, 3, 2, 1}
	c := models.ScoreVector{3, 3, 3, 3, 3}
	first, err := Aggregate([]models.ScoreVector{a, b, c})
	require.NoError(t, err)
	second, err := Aggregate([]models.ScoreVector{c, a, b})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAggregate_InvalidInput(t *testing.T) {
	_, err := Aggregate(nil)
	assert.Error(t, err)

	_, err = Aggregate([]models.ScoreVector{{0, 3, 3, 3, 3}})
	assert.Error(t, err)

	_, err = Aggregate([]models.ScoreVector{{3, 3, 3, 3, 6}})
	assert.Error(t, err)
}

func TestOverallValue(t *testing.T) {
	tests := []struct {
		name   string
		scores models.ScoreVector
		want   int
	}{
		{"全部为 3", models.ScoreVector{3, 3, 3, 3, 3}, 3},
		{"全部为 1", models.ScoreVector{1, 1, 1, 1, 1}, 1},
		{"全部为 5", models.ScoreVector{5, 5, 5, 5, 5}, 5},
		{"2.9 进位", models.ScoreVector{2, 3, 3, 3, 4}, 3},
		{"2.5 取偶", models.ScoreVector{2, 3, 2, 3, 3}, 2},
		{"3.5 取偶", models.ScoreVector{4, 3, 4, 3, 3}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OverallValue(tt.scores))
		})
	}
}

func TestWeights_SumToOne(t *testing.T) {
	sum := 0.0
	for _, w := range Weights() {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestScorePersonas_Deterministic(t *testing.T) {
	got := ScorePersonas("ab", "sys1")
	require.Len(t, got, len(Personas))
	assert.Equal(t, models.ScoreVector{2, 4, 1, 3, 5}, got[0])
	assert.Equal(t, models.ScoreVector{1, 3, 5, 2, 4}, got[1])
	assert.Equal(t, models.ScoreVector{4, 1, 3, 5, 2}, got[2])
	assert.Equal(t, got, ScorePersonas("ab", "sys1"))
}

func TestRunPersona(t *testing.T) {
	rows, err := RunPersona([]models.TranslationRow{{ItemID: "ab", SystemID: "sys1", Text: "文本", Translation: "text"}}, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, "ab", row.ItemID)
	assert.Equal(t, models.ScoreVector{2, 3, 3, 3, 4}, row.ScoresGold)
	assert.Equal(t, models.ScoreVector{3, 3, 4, 3, 3}, row.Range)
	assert.Equal(t, 3, row.OVGold)
}

func TestRunStandard_DeterministicPerturbation(t *testing.T) {
	gold := []models.PersonaGoldRow{{ItemID: "ab", SystemID: "sys1", ScoresGold: models.ScoreVector{2, 3, 3, 3, 4}}}
	rows := RunStandard(gold, "", nil)
	require.Len(t, rows, 1)
	// 仅 "abCA" 的码点和能被 3 整除
	assert.Equal(t, models.ScoreVector{2, 3, 3, 4, 4}, rows[0].ScoresModel)
	assert.Equal(t, 3, rows[0].OVModel)
	assert.Equal(t, DefaultJudgePromptVersion, rows[0].JudgePromptVersion)
}

func TestModelScores_CappedAtMax(t *testing.T) {
	got := ModelScores("ab", models.ScoreVector{5, 5, 5, 5, 5})
	assert.Equal(t, models.ScoreVector{5, 5, 5, 5, 5}, got)
}

func TestBuildFewShotBank_Filters(t *testing.T) {
	translations := []models.TranslationRow{
		{ItemID: "a", SystemID: "s", Text: "原文甲", Translation: "A"},
		{ItemID: "b", SystemID: "s", Text: "原文乙", Translation: "B"},
		{ItemID: "c", SystemID: "s", Text: "原文丙", Translation: "C"},
	}
	gold := []models.PersonaGoldRow{
		{ItemID: "a", SystemID: "s", ScoresGold: models.ScoreVector{4, 4, 4, 4, 4}, OVGold: 4, Range: models.ScoreVector{1, 0, 1, 0, 0}},
		{ItemID: "b", SystemID: "s", ScoresGold: models.ScoreVector{3, 3, 3, 3, 3}, OVGold: 3, Range: models.ScoreVector{0, 0, 0, 0, 0}},
		{ItemID: "c", SystemID: "s", ScoresGold: models.ScoreVector{5, 5, 5, 5, 5}, OVGold: 5, Range: models.ScoreVector{0, 2, 0, 0, 0}},
		{ItemID: "d", SystemID: "s", ScoresGold: models.ScoreVector{5, 5, 5, 5, 5}, OVGold: 5, Range: models.ScoreVector{0, 0, 0, 0, 0}},
	}

	bank := BuildFewShotBank(gold, translations, nil)
	require.Len(t, bank, 1)
	assert.Equal(t, "a", bank[0].ItemID)
	assert.Equal(t, "原文甲", bank[0].Text)
	assert.Equal(t, "A", bank[0].Translation)
	assert.Equal(t, FewShotRationale, bank[0].GoldRationale)
}

func TestBuildFewShotBank_EmptyInput(t *testing.T) {
	bank := BuildFewShotBank(nil, nil, nil)
	assert.NotNil(t, bank)
	assert.Empty(t, bank)
}
