package models

// EvalKey 评测配对键 (条目, 评测系统)
type EvalKey struct {
	ItemID   string
	SystemID string
}

// TranslationRow 翻译阶段输出
type TranslationRow struct {
	ItemID        string `json:"sid"`
	SystemID      string `json:"system_id"`
	Text          string `json:"text_zh"`
	Translation   string `json:"translation"`
	PromptVersion string `json:"prompt_version"`
}

// Key 返回配对键
func (r TranslationRow) Key() EvalKey {
	return EvalKey{ItemID: r.ItemID, SystemID: r.SystemID}
}

// PersonaGoldRow 多角色共识评分
type PersonaGoldRow struct {
	ItemID     string      `json:"sid"`
	SystemID   string      `json:"system_id"`
	ScoresGold ScoreVector `json:"scores_gold"`
	OVGold     int         `json:"OV_gold"`
	Range      ScoreVector `json:"range"`
}

// Key 返回配对键
func (r PersonaGoldRow) Key() EvalKey {
	return EvalKey{ItemID: r.ItemID, SystemID: r.SystemID}
}

// JudgeScoreRow 模型评审评分
type JudgeScoreRow struct {
	ItemID             string      `json:"sid"`
	SystemID           string      `json:"system_id"`
	ScoresModel        ScoreVector `json:"scores_model"`
	OVModel            int         `json:"OV_model"`
	JudgePromptVersion string      `json:"judge_prompt_version"`
}

// Key 返回配对键
func (r JudgeScoreRow) Key() EvalKey {
	return EvalKey{ItemID: r.ItemID, SystemID: r.SystemID}
}

// FewShotRow 少样本示例库条目
type FewShotRow struct {
	ItemID        string      `json:"sid"`
	SystemID      string      `json:"system_id"`
	Text          string      `json:"text_zh"`
	Translation   string      `json:"translation"`
	ScoresGold    ScoreVector `json:"scores_gold"`
	OVGold        int         `json:"OV_gold"`
	GoldRationale string      `json:"gold_rationale"`
}

// TraditionalMetricRow 传统词汇重叠指标
type TraditionalMetricRow struct {
	ItemID          string  `json:"sid"`
	SystemID        string  `json:"system_id"`
	BLEU            float64 `json:"bleu"`
	METEOR          float64 `json:"meteor"`
	ReferenceSource string  `json:"reference_source"`
}

// DimensionCorrelation 单维度与传统指标的相关性
type DimensionCorrelation struct {
	BLEU   float64 `json:"bleu"`
	METEOR float64 `json:"meteor"`
}

// MetricsSummary 指标汇总
type MetricsSummary struct {
	HumanModelSpearman float64                            `json:"human_model_spearman"`
	HumanModelPValue   float64                            `json:"human_model_pvalue"`
	PairedRows         int                                `json:"paired_rows"`
	SystemMeans        map[string]map[Dimension]float64   `json:"system_means"`
	DimCorrelation     map[Dimension]DimensionCorrelation `json:"dim_correlation"`
}
