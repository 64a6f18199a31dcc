/*
 * @module service/models/scores
 * @description 五维质量评分向量，按固定维度顺序序列化
 * @architecture 数据模型层
 * @rules 维度顺序 IF, EC, RE, CA, LE 与 OV 权重一一对应
 * @dependencies encoding/json
 * @refs service/judge
 */

package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Dimension 质量维度
type Dimension string

// 五个固定质量维度，顺序与 OV 权重一一对应
const (
	DimensionIF Dimension = "IF"
	DimensionEC Dimension = "EC"
	DimensionRE Dimension = "RE"
	DimensionCA Dimension = "CA"
	DimensionLE Dimension = "LE"
)

// DimensionCount 维度数量
const DimensionCount = 5

// AllDimensions 返回固定顺序的维度列表
func AllDimensions() [DimensionCount]Dimension {
	return [DimensionCount]Dimension{DimensionIF, DimensionEC, DimensionRE, DimensionCA, DimensionLE}
}

// ScoreVector 按固定维度顺序存放的评分，序列化为 {"IF":..,"EC":..} 对象
type ScoreVector [DimensionCount]int

// Get 按维度名取分
func (v ScoreVector) Get(dim Dimension) int {
	for i, d := range AllDimensions() {
		if d == dim {
			return v[i]
		}
	}
	return 0
}

// MarshalJSON 按维度顺序输出对象
func (v ScoreVector) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, dim := range AllDimensions() {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(string(dim)))
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(v[i]))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON 解析维度对象，缺失任一维度即报错
func (v *ScoreVector) UnmarshalJSON(data []byte) error {
	raw := make(map[string]int, DimensionCount)
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for i, dim := range AllDimensions() {
		score, ok := raw[string(dim)]
		if !ok {
			return fmt.Errorf("缺少维度评分: %s", dim)
		}
		v[i] = score
	}
	return nil
}
