/*
 * @module service/metrics/correlation
 * @description 相关性计算：Pearson、平均秩、Spearman、置换检验 p 值
 * @architecture 纯函数，随机源由调用方注入
 * @stateFlow 配对序列 -> 秩 -> 相关系数 -> p 值
 * @rules
 *   - 长度不足 2、长度不一致或任一序列方差为 0 时相关系数为 0
 *   - 并列值取平均秩（从 1 开始）
 *   - 配对数少于 3 时 p 值固定为 1
 * @dependencies math, math/rand/v2, slices
 * @refs traditional.go, stage.go
 */

package metrics

import (
	"math"
	"math/rand/v2"
	"slices"
)

// DefaultPermutations 置换检验默认轮数
const DefaultPermutations = 2000

// MinPairsForPValue p 值计算所需的最少配对数
const MinPairsForPValue = 3

// Pearson 积差相关系数
func Pearson(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return 0
	}
	n := float64(len(x))
	var mx, my float64
	for i := range x {
		mx += x[i]
		my += y[i]
	}
	mx /= n
	my /= n

	var num, dx, dy float64
	for i := range x {
		a, b := x[i]-mx, y[i]-my
		num += a * b
		dx += a * a
		dy += b * b
	}
	if dx == 0 || dy == 0 {
		return 0
	}
	return num / (math.Sqrt(dx) * math.Sqrt(dy))
}

// Rank 按升序赋秩，并列组取平均秩
func Rank(values []float64) []float64 {
	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case values[a] < values[b]:
			return -1
		case values[a] > values[b]:
			return 1
		}
		return 0
	})

	ranks := make([]float64, len(values))
	for i := 0; i < len(order); {
		j := i
		for j+1 < len(order) && values[order[j+1]] == values[order[i]] {
			j++
		}
		avg := float64(i+j+2) / 2
		for k := i; k <= j; k++ {
			ranks[order[k]] = avg
		}
		i = j + 1
	}
	return ranks
}

// Spearman 秩相关系数
func Spearman(x, y []float64) float64 {
	if len(x) != len(y) {
		return 0
	}
	return Pearson(Rank(x), Rank(y))
}

// PermutationPValue 双侧置换检验：打乱 y 后 |rho| 不小于观测值的比例
// 结果为 (命中数 + 1) / (轮数 + 1)
func PermutationPValue(x, y []float64, rounds int, rng *rand.Rand) float64 {
	if len(x) != len(y) || len(x) < MinPairsForPValue || rng == nil {
		return 1
	}
	if rounds <= 0 {
		rounds = DefaultPermutations
	}
	rx := Rank(x)
	ry := Rank(y)
	observed := math.Abs(Pearson(rx, ry))

	shuffled := slices.Clone(ry)
	hits := 0
	for range rounds {
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		// 浮点误差容忍
		if math.Abs(Pearson(rx, shuffled)) >= observed-1e-12 {
			hits++
		}
	}
	return float64(hits+1) / float64(rounds+1)
}
