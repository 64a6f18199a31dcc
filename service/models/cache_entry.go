/*
 * @module service/models/cache_entry
 * @description 评测输出缓存表模型
 * @architecture 数据模型层 - gorm 模型
 * @rules (sid, system_id, prompt_version) 复合主键唯一
 * @dependencies gorm.io/gorm
 * @refs service/cache
 */

package models

import "time"

// CacheEntry 评测输出缓存，主键为 (item_id, evaluator_id, prompt_version)
type CacheEntry struct {
	ItemID        string    `gorm:"primaryKey;column:sid;type:text" json:"sid"`
	EvaluatorID   string    `gorm:"primaryKey;column:system_id;type:text" json:"system_id"`
	PromptVersion string    `gorm:"primaryKey;column:prompt_version;type:text" json:"prompt_version"`
	Output        string    `gorm:"column:translation;type:text;not null" json:"translation"`
	UpdatedAt     time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// TableName 指定表名
func (CacheEntry) TableName() string {
	return "translation_cache"
}

// CacheKey 缓存复合键
type CacheKey struct {
	ItemID        string
	EvaluatorID   string
	PromptVersion string
}
