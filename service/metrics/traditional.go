/*
 * @module service/metrics/traditional
 * @description 传统词面指标的兜底实现：句级 BLEU 与 METEOR 近似
 * @architecture 纯函数
 * @rules 参考译文为空或译文为空时得分为 0
 * @dependencies math, strings
 * @refs stage.go
 */

package metrics

import (
	"fmt"
	"math"
	"strings"
)

// ReferenceText 以原文构造伪参考译文
func ReferenceText(referenceSource, text string) string {
	return fmt.Sprintf("Reference(%s): %s", referenceSource, text)
}

// SentenceBLEU 句级 BLEU 近似：去重词重叠数 / 译文词数 × 100，保留 4 位小数
func SentenceBLEU(reference, hypothesis string) float64 {
	ref := strings.Fields(reference)
	hyp := strings.Fields(hypothesis)
	if len(ref) == 0 || len(hyp) == 0 {
		return 0
	}
	precision := float64(tokenOverlap(ref, hyp)) / float64(len(hyp))
	return math.Round(precision*100*1e4) / 1e4
}

// SentenceMETEOR 句级 METEOR 近似：召回权重为 9 的调和 F 值
func SentenceMETEOR(reference, hypothesis string) float64 {
	ref := strings.Fields(reference)
	hyp := strings.Fields(hypothesis)
	if len(ref) == 0 || len(hyp) == 0 {
		return 0
	}
	overlap := float64(tokenOverlap(ref, hyp))
	recall := overlap / float64(len(ref))
	precision := overlap / float64(len(hyp))
	if recall+precision == 0 {
		return 0
	}
	return 10 * precision * recall / (recall + 9*precision)
}

// tokenOverlap 两组词的去重交集大小
func tokenOverlap(ref, hyp []string) int {
	refSet := make(map[string]struct{}, len(ref))
	for _, tok := range ref {
		refSet[tok] = struct{}{}
	}
	seen := make(map[string]struct{}, len(hyp))
	n := 0
	for _, tok := range hyp {
		if _, ok := refSet[tok]; !ok {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		n++
	}
	return n
}
