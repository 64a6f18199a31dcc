/*
 * @module service/dataset/random
 * @description 按 (种子, 流编号) 派生的确定性随机数流
 * @architecture 显式传递的随机数生成器，不使用全局随机源
 * @rules 同一种子下不同流互不影响，阶段间消耗随机数的顺序不改变彼此结果
 * @dependencies math/rand/v2
 * @refs seed.go, sampler.go, service/pipeline/pipeline.go
 */

package dataset

import "math/rand/v2"

// 随机数流编号，同一种子下各阶段使用互不干扰的独立序列
const (
	StreamSeedGenerator uint64 = 1
	StreamSampler       uint64 = 2
	StreamPermutation   uint64 = 3
)

// NewRand 以 (seed, stream) 构造确定性随机数生成器
func NewRand(seed int64, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), stream))
}
