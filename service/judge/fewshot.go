package judge

import (
	"log/slog"

	"inkstone-service/service/models"
)

// 少样本入选条件
const (
	FewShotMinOV    = 4
	FewShotMaxRange = 1
)

// FewShotRationale 入选说明
const FewShotRationale = "High-consistency pseudo gold sample."

// BuildFewShotBank 选取高分且角色间分歧小的样本，与对应译文拼接
// 找不到对应译文的评分行跳过
func BuildFewShotBank(gold []models.PersonaGoldRow, translations []models.TranslationRow, logger *slog.Logger) []models.FewShotRow {
	if logger == nil {
		logger = slog.Default()
	}
	byKey := make(map[models.EvalKey]models.TranslationRow, len(translations))
	for _, t := range translations {
		byKey[t.Key()] = t
	}

	bank := make([]models.FewShotRow, 0)
	for _, g := range gold {
		if g.OVGold < FewShotMinOV || maxOf(g.Range) > FewShotMaxRange {
			continue
		}
		t, ok := byKey[g.Key()]
		if !ok {
			logger.Warn("少样本候选缺少译文，已跳过", "sid", g.ItemID, "system_id", g.SystemID)
			continue
		}
		bank = append(bank, models.FewShotRow{
			ItemID:        g.ItemID,
			SystemID:      g.SystemID,
			Text:          t.Text,
			Translation:   t.Translation,
			ScoresGold:    g.ScoresGold,
			OVGold:        g.OVGold,
			GoldRationale: FewShotRationale,
		})
	}
	logger.Info("少样本库构建完成", "rows", len(bank))
	return bank
}

func maxOf(v models.ScoreVector) int {
	m := v[0]
	for _, x := range v[1:] {
		m = max(m, x)
	}
	return m
}
