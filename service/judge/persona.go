package judge

import (
	"fmt"
	"log/slog"

	"inkstone-service/service/models"
)

// Personas 模拟评分角色，顺序固定
var Personas = []string{"professor", "writer", "reader"}

// ScorePersonas 为 (条目, 系统) 生成各角色的确定性模拟评分
// 第 i 维得分为 1 + ((Σ码点("条目:系统:角色") + 7i) mod 5)
func ScorePersonas(itemID, systemID string) []models.ScoreVector {
	out := make([]models.ScoreVector, 0, len(Personas))
	for _, persona := range Personas {
		seed := codepointSum(itemID + ":" + systemID + ":" + persona)
		var v models.ScoreVector
		for i := range v {
			v[i] = 1 + (seed+7*i)%5
		}
		out = append(out, v)
	}
	return out
}

// RunPersona 对每条译文生成多角色共识评分
func RunPersona(translations []models.TranslationRow, logger *slog.Logger) ([]models.PersonaGoldRow, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rows := make([]models.PersonaGoldRow, 0, len(translations))
	for _, t := range translations {
		consensus, err := Aggregate(ScorePersonas(t.ItemID, t.SystemID))
		if err != nil {
			return nil, fmt.Errorf("聚合 %s/%s 评分失败: %w", t.ItemID, t.SystemID, err)
		}
		rows = append(rows, models.PersonaGoldRow{
			ItemID:     t.ItemID,
			SystemID:   t.SystemID,
			ScoresGold: consensus.Scores,
			OVGold:     consensus.OV,
			Range:      consensus.Range,
		})
	}
	logger.Info("多角色评分完成", "rows", len(rows))
	return rows, nil
}
