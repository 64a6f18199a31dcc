/*
 * @module service/dataset/sampler
 * @description 分层抽样：按隐喻类型分桶抽取评测集，剩余条目进入候选池
 * @architecture 纯函数 + 显式随机数生成器
 * @stateFlow 条目 -> 分桶 -> 桶内洗牌取配额 -> 全局补足 -> 截断 -> (评测集, 候选池)
 * @rules
 *   - 评测集大小恒为 min(targetN, len(items))
 *   - 每个非空类别至少贡献 1 条（targetN 不小于非空类别数时）
 *   - 相同 (items, targetN, seed) 输出逐字节一致
 *   - 词表外类别并入兜底类别桶
 * @dependencies math/rand/v2
 * @refs random.go, service/models/source_item.go
 */

package dataset

import (
	"math/rand/v2"

	"inkstone-service/service/models"
)

// Sample 以种子构造抽样专用随机数流后抽样
func Sample(items []models.SourceItem, targetN int, seed int64) ([]models.SourceItem, []models.SourceItem) {
	return SampleWithRand(items, targetN, NewRand(seed, StreamSampler))
}

// SampleWithRand 使用调用方持有的随机数生成器抽样，候选池保持输入顺序
func SampleWithRand(items []models.SourceItem, targetN int, rng *rand.Rand) ([]models.SourceItem, []models.SourceItem) {
	if targetN <= 0 {
		return []models.SourceItem{}, append([]models.SourceItem{}, items...)
	}
	if len(items) <= targetN {
		return append([]models.SourceItem{}, items...), []models.SourceItem{}
	}

	buckets := make(map[models.Category][]int)
	for idx, item := range items {
		category := item.Category()
		if !category.IsKnown() {
			category = models.CategoryCatchAll
		}
		buckets[category] = append(buckets[category], idx)
	}
	nonEmpty := len(buckets)
	quota := max(1, targetN/nonEmpty)

	selected := make([]int, 0, targetN)
	used := make([]bool, len(items))
	for _, category := range models.AllCategories() {
		bucket := buckets[category]
		if len(bucket) == 0 {
			continue
		}
		shuffle(rng, bucket)
		take := min(quota, len(bucket), targetN-len(selected))
		for _, idx := range bucket[:max(0, take)] {
			selected = append(selected, idx)
			used[idx] = true
		}
	}

	if shortfall := targetN - len(selected); shortfall > 0 {
		remaining := make([]int, 0, len(items)-len(selected))
		for idx := range items {
			if !used[idx] {
				remaining = append(remaining, idx)
			}
		}
		shuffle(rng, remaining)
		for _, idx := range remaining[:min(shortfall, len(remaining))] {
			selected = append(selected, idx)
			used[idx] = true
		}
	}

	evalSet := make([]models.SourceItem, 0, len(selected))
	for _, idx := range selected[:min(targetN, len(selected))] {
		evalSet = append(evalSet, items[idx])
	}
	pool := make([]models.SourceItem, 0, len(items)-len(evalSet))
	for idx, item := range items {
		if !used[idx] {
			pool = append(pool, item)
		}
	}
	return evalSet, pool
}

func shuffle(rng *rand.Rand, idx []int) {
	rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
}
