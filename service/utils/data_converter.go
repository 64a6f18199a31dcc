/**
 * @module data_converter
 * @description 数据转换工具模块，负责异构字段值转文本、源文件编码识别与字符宽度折叠
 * @architecture 工具函数模式，提供静态转换方法集合
 * @stateFlow 无状态转换：输入 -> 转换逻辑 -> 输出
 * @rules
 *   - 转换失败不抛出，返回空串由调用方丢弃
 *   - 源文件优先按 UTF-8 解码，失败时回退 GB18030
 *   - 非法字节以替换方式清除，不中断解析
 * @dependencies
 *   - github.com/spf13/cast: 类型转换
 *   - golang.org/x/text: 编码转换与宽度折叠
 * @refs
 *   - service/datasource/*: 格式适配器
 *   - service/translate/*: 确定性兜底翻译
 */

package utils

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cast"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
	"golang.org/x/text/width"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ToText 将行内任意标量值转换为去除首尾空白的文本，复合值返回空串
func ToText(value interface{}) string {
	switch value.(type) {
	case nil, map[string]interface{}, []interface{}:
		return ""
	}
	text, err := cast.ToStringE(value)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

// DecodeText 解码源文件字节
// 合法 UTF-8 直接使用（去除 BOM），否则尝试 GB18030，仍失败则丢弃非法字节
func DecodeText(data []byte) string {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data)
	}

	decoded, _, err := transform.Bytes(simplifiedchinese.GB18030.NewDecoder(), data)
	if err == nil && utf8.Valid(decoded) {
		return string(decoded)
	}
	return strings.ToValidUTF8(string(data), "")
}

// NarrowWidth 将全角 ASCII 变体（如全角括号）折叠为半角，汉字及中文标点保持不变
func NarrowWidth(text string) string {
	return width.Fold.String(text)
}
