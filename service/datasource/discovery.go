/*
 * @module service/datasource/discovery
 * @description 启发式字段发现：从异构行中挑选中文文本与类别线索，并归一化类别
 * @architecture 纯函数集合，被所有格式适配器的输出共用
 * @stateFlow Row -> (文本, 类别线索) -> 归一化类别 / 关键词推断
 * @rules
 *   - 文本键按优先级尝试，只接受含汉字的值
 *   - 优先键均未命中时按字段顺序扫描所有值，长度须在 4..220 字之间
 *   - 类别先精确匹配词表，再按同义词子串匹配
 * @dependencies github.com/spf13/cast（经 utils.ToText）
 * @refs row.go, service/models/source_item.go
 */

package datasource

import (
	"strings"
	"unicode/utf8"

	"inkstone-service/service/models"
	"inkstone-service/service/utils"
)

// 兜底扫描接受的文本长度窗口
const (
	FallbackMinChars = 4
	FallbackMaxChars = 220
)

// MinTextChars 语料条目的最小文本长度
const MinTextChars = 6

// textKeys 文本字段候选键，按优先级排列
var textKeys = []string{"text_zh", "zh", "src_zh", "chinese", "source", "sentence", "text", "content"}

// categoryKeys 类别字段候选键，按优先级排列
var categoryKeys = []string{"metaphor_type", "type", "label", "category", "metaphor"}

// categorySynonyms 类别同义词，按顺序做子串匹配
var categorySynonyms = []struct {
	keyword  string
	category models.Category
}{
	{"明喻", models.CategorySimile},
	{"simile", models.CategorySimile},
	{"隐喻", models.CategoryImplicit},
	{"metaphor", models.CategoryImplicit},
	{"拟人", models.CategoryPersonification},
	{"personification", models.CategoryPersonification},
	{"通感", models.CategorySynesthesia},
	{"synesthesia", models.CategorySynesthesia},
	{"典故", models.CategoryCulturalAllusion},
	{"allusion", models.CategoryCulturalAllusion},
	{"文化负载", models.CategoryCulturalAllusion},
	{"惯用", models.CategoryDeadConventional},
	{"conventional", models.CategoryDeadConventional},
}

// 关键词分类器词表
var (
	simileMarkers      = []string{"像", "如同", "仿佛", "好似"}
	personifySubjects  = []string{"城市", "风", "时间", "黑夜"}
	personifyActions   = []string{"笑", "哭", "说", "哈欠", "醒", "沉睡"}
	synesthesiaMarkers = []string{"颜色", "味道", "声音", "冰蓝", "温暖"}
)

// HasScript 判断文本是否包含 CJK 统一汉字（含扩展 A 区）
func HasScript(text string) bool {
	for _, r := range text {
		if r >= 0x3400 && r <= 0x9FFF {
			return true
		}
	}
	return false
}

// PickTextAndCategory 从行中挑选文本与类别线索
// 类别线索取第一个非空值的候选键；文本为空表示该行无可用文本
func PickTextAndCategory(row Row) (text string, categoryHint string) {
	for _, key := range categoryKeys {
		if value, ok := row.Get(key); ok && value != nil {
			categoryHint = utils.ToText(value)
			break
		}
	}

	for _, key := range textKeys {
		value, ok := row.Get(key)
		if !ok {
			continue
		}
		candidate := utils.ToText(value)
		if candidate != "" && HasScript(candidate) {
			return candidate, categoryHint
		}
	}

	for _, field := range row {
		candidate := utils.ToText(field.Value)
		n := utf8.RuneCountInString(candidate)
		if n >= FallbackMinChars && n <= FallbackMaxChars && HasScript(candidate) {
			return candidate, categoryHint
		}
	}
	return "", categoryHint
}

// NormalizeCategory 将类别线索映射到封闭词表，未识别时返回兜底类别和 false
func NormalizeCategory(raw string) (models.Category, bool) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return models.CategoryCatchAll, false
	}
	if category := models.Category(value); category.IsKnown() {
		return category, true
	}
	for _, syn := range categorySynonyms {
		if strings.Contains(value, syn.keyword) {
			return syn.category, true
		}
	}
	return models.CategoryCatchAll, false
}

// InferCategory 基于关键词的轻量分类器
func InferCategory(text string) models.Category {
	text = strings.TrimSpace(text)
	switch {
	case containsAny(text, simileMarkers):
		return models.CategorySimile
	case containsAny(text, personifySubjects) && containsAny(text, personifyActions):
		return models.CategoryPersonification
	case containsAny(text, synesthesiaMarkers):
		return models.CategorySynesthesia
	default:
		return models.CategoryCatchAll
	}
}

// ResolveCategory 类别线索可识别时直接使用；未识别或归为兜底类别时对文本做关键词推断
func ResolveCategory(hint, text string) models.Category {
	if category, ok := NormalizeCategory(hint); ok && category != models.CategoryCatchAll {
		return category
	}
	return InferCategory(text)
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
