/*
 * @module service/models/source_item
 * @description 语料条目模型，定义评测语料的基本单元及隐喻类型词表
 * @architecture 数据模型层
 * @documentReference SPEC_FULL.md §3
 * @stateFlow 解析/生成 -> 去重 -> 抽样 -> 快照落盘（条目创建后不可变）
 * @rules 同一语料快照内 ID 唯一，规范化文本唯一
 * @dependencies encoding/json
 * @refs service/utils/normalize.go, service/dataset
 */

package models

// Category 隐喻类型
type Category string

// 隐喻类型封闭词表
const (
	CategorySimile           Category = "simile"
	CategoryImplicit         Category = "implicit"
	CategoryPersonification  Category = "personification"
	CategorySynesthesia      Category = "synesthesia"
	CategoryCulturalAllusion Category = "cultural_allusion"
	CategoryDeadConventional Category = "dead_conventional"
	CategoryMixedOther       Category = "mixed_other"
)

// CategoryCatchAll 无法识别类别时使用的兜底类别
const CategoryCatchAll = CategoryMixedOther

// AllCategories 返回固定顺序的隐喻类型词表，抽样和统计均按此顺序遍历
func AllCategories() []Category {
	return []Category{
		CategorySimile,
		CategoryImplicit,
		CategoryPersonification,
		CategorySynesthesia,
		CategoryCulturalAllusion,
		CategoryDeadConventional,
		CategoryMixedOther,
	}
}

// IsKnown 判断类别是否属于封闭词表
func (c Category) IsKnown() bool {
	for _, known := range AllCategories() {
		if c == known {
			return true
		}
	}
	return false
}

// 来源标签
const (
	SourceSeedBuiltin = "seed_builtin"
	SourceBooks       = "books"
	SourceExternal    = "external"
	SourceCMDAG       = "cmdag"
	SourceCMC         = "cmc"
)

// 许可标签
const (
	LicenseInternalSeed    = "internal_seed"
	LicenseInternalBooks   = "internal_books"
	LicenseExternalUnknown = "external_unknown"
)

// CulturalLoadUnknown 文化负载未标注
const CulturalLoadUnknown = "unknown"

// SourceMeta 条目来源信息
type SourceMeta struct {
	Source     string `json:"source"`
	LocalID    string `json:"local_id"`
	File       string `json:"file,omitempty"`
	Doc        string `json:"doc,omitempty"`
	LicenseTag string `json:"license_tag"`
}

// CategoryMeta 条目类别信息
type CategoryMeta struct {
	MetaphorType Category `json:"metaphor_type"`
	CulturalLoad string   `json:"cultural_load"`
}

// ItemMeta 派生信息
type ItemMeta struct {
	LenChar   int    `json:"len_char"`
	CreatedAt string `json:"created_at"`
}

// SourceItem 语料条目
type SourceItem struct {
	ID           string       `json:"sid"`
	Text         string       `json:"text_zh"`
	SourceMeta   SourceMeta   `json:"source_meta"`
	CategoryMeta CategoryMeta `json:"metaphor_meta"`
	Meta         ItemMeta     `json:"meta"`
}

// Category 返回条目的隐喻类型
func (s SourceItem) Category() Category {
	return s.CategoryMeta.MetaphorType
}
