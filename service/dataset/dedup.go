/*
 * @module service/dataset/dedup
 * @description 语料去重：以规范化文本为键，保留首次出现的条目
 * @architecture 纯函数
 * @stateFlow 条目序列 -> 规范化键 -> 首见保留 -> (去重结果, 丢弃数)
 * @rules
 *   - 幂等：对去重结果再次去重不变
 *   - 规范化后为空的条目直接丢弃
 * @dependencies inkstone-service/service/utils
 * @refs builder.go, service/utils/normalize.go
 */

package dataset

import (
	"inkstone-service/service/models"
	"inkstone-service/service/utils"
)

// Dedup 按规范化文本去重，保留首次出现的条目；空文本与重复条目计入丢弃数
func Dedup(items []models.SourceItem) ([]models.SourceItem, int) {
	seen := make(map[string]struct{}, len(items))
	out := make([]models.SourceItem, 0, len(items))
	dropped := 0
	for _, item := range items {
		key := utils.Normalize(item.Text)
		if key == "" {
			dropped++
			continue
		}
		if _, ok := seen[key]; ok {
			dropped++
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out, dropped
}
