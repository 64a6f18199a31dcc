package judge

import (
	"log/slog"

	"inkstone-service/service/models"
)

// DefaultJudgePromptVersion 模型评审默认提示词版本
const DefaultJudgePromptVersion = "judge_standard_v1_icl"

// ModelScores 模拟模型评审：在共识分基础上做确定性小扰动
// 共识分小于 5 且 Σ码点(条目+维度) 能被 3 整除时加 1
func ModelScores(itemID string, gold models.ScoreVector) models.ScoreVector {
	var out models.ScoreVector
	for i, dim := range models.AllDimensions() {
		raw := gold[i]
		if raw < MaxScore && codepointSum(itemID+string(dim))%3 == 0 {
			raw++
		}
		out[i] = clamp(raw)
	}
	return out
}

// RunStandard 对每条共识评分生成模型评审评分
func RunStandard(gold []models.PersonaGoldRow, promptVersion string, logger *slog.Logger) []models.JudgeScoreRow {
	if logger == nil {
		logger = slog.Default()
	}
	if promptVersion == "" {
		promptVersion = DefaultJudgePromptVersion
	}
	rows := make([]models.JudgeScoreRow, 0, len(gold))
	for _, g := range gold {
		scores := ModelScores(g.ItemID, g.ScoresGold)
		rows = append(rows, models.JudgeScoreRow{
			ItemID:             g.ItemID,
			SystemID:           g.SystemID,
			ScoresModel:        scores,
			OVModel:            OverallValue(scores),
			JudgePromptVersion: promptVersion,
		})
	}
	logger.Info("模型评审完成", "rows", len(rows), "prompt_version", promptVersion)
	return rows
}
