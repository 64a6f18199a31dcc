/*
 * @module service/utils/normalize
 * @description 文本规范化与稳定标识生成
 * @architecture 工具函数模式，无状态纯函数
 * @stateFlow 原始文本 -> 规范化 -> 去重键 / 内容摘要
 * @rules
 *   - 相同输入在任意进程、任意机器上得到相同标识
 *   - 空白文本规范化后为空串，调用方须在计算标识前拒绝
 * @dependencies crypto/sha256, strings
 * @refs service/datasource, service/dataset
 */

package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// StableIDLength 稳定标识的十六进制长度
const StableIDLength = 16

// Normalize 去除首尾空白、转小写并将连续空白折叠为单个空格，结果用作去重键
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// StableID 基于 规范化文本::来源::本地编号 计算截断的 SHA-256 摘要
func StableID(text, source, localID string) string {
	sum := sha256.Sum256([]byte(Normalize(text) + "::" + source + "::" + localID))
	return hex.EncodeToString(sum[:])[:StableIDLength]
}
