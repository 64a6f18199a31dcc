/*
 * @module service/judge/aggregate
 * @description 多角色评分聚合：逐维中位数为共识分，逐维极差为分歧度，加权取整得 OV
 * @architecture 纯函数
 * @stateFlow 各角色五维评分 -> 共识分 + 极差 -> OV
 * @rules
 *   - 维度顺序固定为 IF, EC, RE, CA, LE，与权重按位置对应
 *   - OV 以百分制整数权重精确求和，四舍六入五成双，再截断到 [1,5]
 *   - 聚合结果与评分者顺序无关
 * @dependencies inkstone-service/service/models
 * @refs persona.go, standard.go
 */

package judge

import (
	"fmt"
	"sort"

	"inkstone-service/service/models"
)

// 评分取值范围
const (
	MinScore = 1
	MaxScore = 5
)

// ovWeights OV 权重（百分制），依次对应 IF, EC, RE, CA, LE
var ovWeights = [models.DimensionCount]int{25, 20, 25, 15, 15}

// Weights 返回 OV 权重
func Weights() [models.DimensionCount]float64 {
	var out [models.DimensionCount]float64
	for i, w := range ovWeights {
		out[i] = float64(w) / 100
	}
	return out
}

// Consensus 聚合结果
type Consensus struct {
	Scores models.ScoreVector
	Range  models.ScoreVector
	OV     int
}

// OverallValue 由五维评分计算 OV
func OverallValue(scores models.ScoreVector) int {
	sum := 0
	for i, s := range scores {
		sum += ovWeights[i] * s
	}
	q, r := sum/100, sum%100
	switch {
	case r > 50, r == 50 && q%2 == 1:
		q++
	}
	return clamp(q)
}

// Aggregate 聚合多个评分者的五维评分，偶数个评分者时取下中位数
func Aggregate(raters []models.ScoreVector) (Consensus, error) {
	if len(raters) == 0 {
		return Consensus{}, fmt.Errorf("没有可聚合的评分")
	}
	var out Consensus
	values := make([]int, len(raters))
	for dim := range models.DimensionCount {
		for i, r := range raters {
			if r[dim] < MinScore || r[dim] > MaxScore {
				return Consensus{}, fmt.Errorf("评分超出范围: 维度 %s 取值 %d", models.AllDimensions()[dim], r[dim])
			}
			values[i] = r[dim]
		}
		sort.Ints(values)
		out.Scores[dim] = values[(len(values)-1)/2]
		out.Range[dim] = values[len(values)-1] - values[0]
	}
	out.OV = OverallValue(out.Scores)
	return out, nil
}

func clamp(v int) int {
	return max(MinScore, min(MaxScore, v))
}

// codepointSum 文本的 Unicode 码点之和
func codepointSum(s string) int {
	sum := 0
	for _, r := range s {
		sum += int(r)
	}
	return sum
}
