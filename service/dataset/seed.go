/*
 * @module service/dataset/seed
 * @description 内置合成语料生成器
 * @architecture 生成器模式 - 七类模板轮转生成候选句
 * @stateFlow 模板 -> (按周期置换顺序) -> 带编号的候选条目
 * @rules
 *   - 每七行为一个周期，每个周期内七类模板各出现一次
 *   - 周期内模板顺序由调用方传入的随机数生成器决定，为空时保持固定顺序
 * @dependencies math/rand/v2
 * @refs service/models/source_item.go
 */

package dataset

import (
	"math/rand/v2"
	"strconv"
	"unicode/utf8"

	"inkstone-service/service/models"
	"inkstone-service/service/utils"
)

type seedTemplate struct {
	text     string
	category models.Category
}

var seedTemplates = []seedTemplate{
	{"她的笑容像春风一样温暖。", models.CategorySimile},
	{"时间在指缝间悄悄流走。", models.CategoryImplicit},
	{"城市在夜里打了个哈欠。", models.CategoryPersonification},
	{"这声音是冰蓝色的。", models.CategorySynesthesia},
	{"他是我们团队的定海神针。", models.CategoryCulturalAllusion},
	{"生活是一场旅行。", models.CategoryDeadConventional},
	{"她把忧伤揉成一杯苦茶。", models.CategoryMixedOther},
}

// DefaultSyntheticRows 默认合成行数 max(3·n, 900)
func DefaultSyntheticRows(targetN int) int {
	return max(3*targetN, 900)
}

// GenerateSeedItems 生成 n 条合成候选条目
func GenerateSeedItems(n int, createdAt string, rng *rand.Rand) []models.SourceItem {
	if n <= 0 {
		return nil
	}
	items := make([]models.SourceItem, 0, n)
	order := make([]int, len(seedTemplates))
	for i := 0; i < n; i++ {
		if i%len(seedTemplates) == 0 {
			for j := range order {
				order[j] = j
			}
			if rng != nil {
				rng.Shuffle(len(order), func(a, b int) { order[a], order[b] = order[b], order[a] })
			}
		}
		tpl := seedTemplates[order[i%len(seedTemplates)]]
		localID := strconv.Itoa(i + 1)
		text := tpl.text + "（候选" + localID + "）"
		items = append(items, models.SourceItem{
			ID:   utils.StableID(text, models.SourceSeedBuiltin, localID),
			Text: text,
			SourceMeta: models.SourceMeta{
				Source:     models.SourceSeedBuiltin,
				LocalID:    localID,
				LicenseTag: models.LicenseInternalSeed,
			},
			CategoryMeta: models.CategoryMeta{
				MetaphorType: tpl.category,
				CulturalLoad: models.CulturalLoadUnknown,
			},
			Meta: models.ItemMeta{
				LenChar:   utf8.RuneCountInString(text),
				CreatedAt: createdAt,
			},
		})
	}
	return items
}
