/*
 * @module service/utils/data_converter_test
 * @description 数据转换与规范化工具函数单元测试
 * @architecture 测试层 - 纯函数测试，无外部依赖
 * @stateFlow 输入参数 -> 函数调用 -> 输出验证
 * @rules 确保规范化、标识生成与编码转换的确定性
 * @dependencies testing, testify
 * @refs data_converter.go, normalize.go
 */

package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

func TestNormalize(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "首尾空白", input: "  Hello  ", expected: "hello"},
		{name: "折叠空白", input: "A \t\n  B", expected: "a b"},
		{name: "中文不变", input: "时间在 指缝间　流走", expected: "时间在 指缝间 流走"},
		{name: "纯空白", input: " \t\n ", expected: ""},
		{name: "空串", input: "", expected: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Normalize(tc.input))
		})
	}
}

func TestStableID(t *testing.T) {
	id := StableID("她的笑容像春风一样温暖。", "seed_builtin", "1")
	assert.Len(t, id, StableIDLength)
	assert.Equal(t, id, StableID("  她的笑容像春风一样温暖。 ", "seed_builtin", "1"), "规范化等价的文本应得到相同标识")
	assert.NotEqual(t, id, StableID("她的笑容像春风一样温暖。", "seed_builtin", "2"))
	assert.NotEqual(t, id, StableID("她的笑容像春风一样温暖。", "books", "1"))

	// sha256("hello::src::1") 的前 16 位
	assert.Equal(t, "01d7aa837521820e", StableID("HELLO", "src", "1"))
}

func TestToText(t *testing.T) {
	testCases := []struct {
		name     string
		input    interface{}
		expected string
	}{
		{name: "字符串去空白", input: "  文本 ", expected: "文本"},
		{name: "整数", input: 42, expected: "42"},
		{name: "浮点数", input: 3.5, expected: "3.5"},
		{name: "布尔", input: true, expected: "true"},
		{name: "空值", input: nil, expected: ""},
		{name: "对象", input: map[string]interface{}{"a": 1}, expected: ""},
		{name: "数组", input: []interface{}{"a"}, expected: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ToText(tc.input))
		})
	}
}

func TestDecodeText(t *testing.T) {
	t.Run("UTF-8", func(t *testing.T) {
		assert.Equal(t, "城市在夜里", DecodeText([]byte("城市在夜里")))
	})

	t.Run("去除BOM", func(t *testing.T) {
		assert.Equal(t, "文本", DecodeText(append([]byte{0xEF, 0xBB, 0xBF}, []byte("文本")...)))
	})

	t.Run("GB18030回退", func(t *testing.T) {
		encoded, _, err := transform.Bytes(simplifiedchinese.GB18030.NewEncoder(), []byte("这声音是冰蓝色的。"))
		require.NoError(t, err)
		assert.Equal(t, "这声音是冰蓝色的。", DecodeText(encoded))
	})

	t.Run("非法字节不报错", func(t *testing.T) {
		out := DecodeText([]byte{0xff, 0xfe, 'a'})
		assert.True(t, strings.HasSuffix(out, "a") || out == "")
	})
}

func TestNarrowWidth(t *testing.T) {
	assert.Equal(t, "她的笑容(候选1)。", NarrowWidth("她的笑容（候选1）。"))
	assert.Equal(t, "ABC123", NarrowWidth("ＡＢＣ１２３"))
	assert.Equal(t, "生活是一场旅行。", NarrowWidth("生活是一场旅行。"))
}
