package models

// FileDiagnostic 单个文件的解析诊断
type FileDiagnostic struct {
	File         string `json:"file"`
	Ext          string `json:"ext"`
	ParsedRows   int    `json:"parsed_rows"`
	AcceptedRows int    `json:"accepted_rows"`
	DroppedRows  int    `json:"dropped_rows"`
	Source       string `json:"source"`
	Error        string `json:"error,omitempty"`
}

// ParserMeta 解析器诊断汇总
type ParserMeta struct {
	Files  []FileDiagnostic `json:"files"`
	NFiles int              `json:"n_files"`
}

// LengthStats 文本长度分布
type LengthStats struct {
	Min  int     `json:"min"`
	Max  int     `json:"max"`
	Mean float64 `json:"mean"`
	P50  int     `json:"p50"`
	P90  int     `json:"p90"`
}

// QualityReport 语料质量报告（每次构建生成一次，不可变）
type QualityReport struct {
	CreatedAt          string           `json:"created_at"`
	RowsBeforeDedup    int              `json:"rows_before_dedup"`
	RowsAfterDedup     int              `json:"rows_after_dedup"`
	DuplicatesRemoved  int              `json:"duplicates_removed"`
	EvalRows           int              `json:"eval_rows"`
	PoolRows           int              `json:"pool_rows"`
	SourceCounts       map[string]int   `json:"source_counts"`
	MetaphorTypeCounts map[Category]int `json:"metaphor_type_counts"`
	LengthStats        LengthStats      `json:"length_stats"`
	ParserMeta         ParserMeta       `json:"parser_meta"`
}
