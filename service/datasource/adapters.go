/*
 * @module service/datasource/adapters
 * @description 内置格式适配器：JSONL、JSON 文档、CSV/TSV 表格、纯文本
 * @architecture 策略模式 - 每种格式独立实现 Adapter
 * @stateFlow 文件内容 -> 行切分 -> []Row
 * @rules
 *   - JSONL 非法行、非对象行跳过
 *   - JSON 文档支持顶层数组、包装键(data/records/samples/items/train)、对象映射
 *   - 表格以首行作为表头，短行缺失字段为空值
 *   - 纯文本按句末标点切分为句子片段
 * @dependencies encoding/json, encoding/csv, regexp
 * @refs interface.go, row.go
 */

package datasource

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"
)

// 纯文本句子片段长度窗口
const (
	MinSentenceChars = 6
	MaxSentenceChars = 220
)

// jsonWrapperKeys 常见的记录列表包装键，按优先级排列
var jsonWrapperKeys = []string{"data", "records", "samples", "items", "train"}

var sentenceBoundary = regexp.MustCompile(`[。！？!?]\s*`)

// JSONLAdapter 行分隔 JSON
type JSONLAdapter struct{}

// NewJSONLAdapter 创建 JSONL 适配器
func NewJSONLAdapter() Adapter { return &JSONLAdapter{} }

func (a *JSONLAdapter) Name() string         { return "jsonl" }
func (a *JSONLAdapter) Extensions() []string { return []string{".jsonl"} }

// Parse 逐行解析，非法行静默跳过
func (a *JSONLAdapter) Parse(ctx context.Context, content string) ([]Row, error) {
	var rows []Row
	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] != '{' {
			continue
		}
		var row Row
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			continue
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return rows, fmt.Errorf("读取JSONL失败: %w", err)
	}
	return rows, nil
}

// JSONAdapter 整文档 JSON
type JSONAdapter struct{}

// NewJSONAdapter 创建 JSON 文档适配器
func NewJSONAdapter() Adapter { return &JSONAdapter{} }

func (a *JSONAdapter) Name() string         { return "json" }
func (a *JSONAdapter) Extensions() []string { return []string{".json"} }

// Parse 解析顶层数组、包装键列表或对象映射
func (a *JSONAdapter) Parse(ctx context.Context, content string) ([]Row, error) {
	data := []byte(content)
	switch firstByte(data) {
	case '[':
		return rowsFromArray(data)
	case '{':
		fields, err := decodeObject(data)
		if err != nil {
			return nil, fmt.Errorf("解析JSON文档失败: %w", err)
		}
		for _, key := range jsonWrapperKeys {
			for _, f := range fields {
				if f.key == key && firstByte(f.raw) == '[' {
					return rowsFromArray(f.raw)
				}
			}
		}
		var rows []Row
		for _, f := range fields {
			if firstByte(f.raw) != '{' {
				return nil, nil
			}
			var row Row
			if err := json.Unmarshal(f.raw, &row); err != nil {
				return nil, fmt.Errorf("解析记录 %s 失败: %w", f.key, err)
			}
			rows = append(rows, row)
		}
		return rows, nil
	default:
		if !json.Valid(data) {
			return nil, errors.New("非法JSON文档")
		}
		return nil, nil
	}
}

// rowsFromArray 取出数组中的对象元素，其他元素忽略
func rowsFromArray(data []byte) ([]Row, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, fmt.Errorf("解析JSON数组失败: %w", err)
	}
	rows := make([]Row, 0, len(elems))
	for _, elem := range elems {
		if firstByte(elem) != '{' {
			continue
		}
		var row Row
		if err := json.Unmarshal(elem, &row); err != nil {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// TableAdapter 分隔符表格
type TableAdapter struct {
	name      string
	ext       string
	delimiter rune
}

// NewCSVAdapter 创建逗号分隔表格适配器
func NewCSVAdapter() Adapter { return &TableAdapter{name: "csv", ext: ".csv", delimiter: ','} }

// NewTSVAdapter 创建制表符分隔表格适配器
func NewTSVAdapter() Adapter { return &TableAdapter{name: "tsv", ext: ".tsv", delimiter: '\t'} }

func (a *TableAdapter) Name() string         { return a.name }
func (a *TableAdapter) Extensions() []string { return []string{a.ext} }

// Parse 首行为表头，其余每行映射为一行记录；格式错误的行跳过
func (a *TableAdapter) Parse(ctx context.Context, content string) ([]Row, error) {
	reader := csv.NewReader(strings.NewReader(content))
	reader.Comma = a.delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取表头失败: %w", err)
	}

	var rows []Row
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				continue
			}
			return rows, fmt.Errorf("读取表格失败: %w", err)
		}
		row := make(Row, 0, len(header))
		for i, key := range header {
			var value interface{}
			if i < len(record) {
				value = record[i]
			}
			row = append(row, Field{Key: key, Value: value})
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// TextAdapter 纯文本
type TextAdapter struct{}

// NewTextAdapter 创建纯文本适配器
func NewTextAdapter() Adapter { return &TextAdapter{} }

func (a *TextAdapter) Name() string         { return "txt" }
func (a *TextAdapter) Extensions() []string { return []string{".txt"} }

// Parse 切分句子，每个片段成为只含 text_zh 字段的行
func (a *TextAdapter) Parse(ctx context.Context, content string) ([]Row, error) {
	sentences := SplitSentences(content)
	rows := make([]Row, 0, len(sentences))
	for _, s := range sentences {
		rows = append(rows, Row{{Key: "text_zh", Value: s}})
	}
	return rows, nil
}

// SplitSentences 按句末标点切分文本，保留长度在窗口内且含汉字的片段，并补全句号
func SplitSentences(text string) []string {
	var out []string
	for _, piece := range sentenceBoundary.Split(text, -1) {
		piece = strings.TrimSpace(piece)
		n := utf8.RuneCountInString(piece)
		if n < MinSentenceChars || n > MaxSentenceChars || !HasScript(piece) {
			continue
		}
		out = append(out, piece+"。")
	}
	return out
}
