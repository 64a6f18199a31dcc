package datasource

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Field 行内字段
type Field struct {
	Key   string
	Value interface{}
}

// Row 保持原始字段顺序的中间行，兜底扫描按此顺序进行
type Row []Field

// Get 按键名取值，键重复时以最后一次出现为准
func (r Row) Get(key string) (interface{}, bool) {
	var (
		value interface{}
		found bool
	)
	for _, f := range r {
		if f.Key == key {
			value, found = f.Value, true
		}
	}
	return value, found
}

// RowFromMap 由无序映射构造行，仅用于测试和程序化输入
func RowFromMap(keys []string, values map[string]interface{}) Row {
	row := make(Row, 0, len(keys))
	for _, k := range keys {
		row = append(row, Field{Key: k, Value: values[k]})
	}
	return row
}

// UnmarshalJSON 按出现顺序解析 JSON 对象
func (r *Row) UnmarshalJSON(data []byte) error {
	fields, err := decodeObject(data)
	if err != nil {
		return err
	}
	row := make(Row, 0, len(fields))
	for _, f := range fields {
		value, err := decodeValue(f.raw)
		if err != nil {
			return fmt.Errorf("解析字段 %s 失败: %w", f.key, err)
		}
		row = append(row, Field{Key: f.key, Value: value})
	}
	*r = row
	return nil
}

type rawField struct {
	key string
	raw json.RawMessage
}

var errNotObject = errors.New("不是 JSON 对象")

// decodeObject 逐 token 读取对象的键及原始值，保留键顺序
func decodeObject(data []byte) ([]rawField, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errNotObject
	}

	var fields []rawField
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("非法对象键: %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		fields = append(fields, rawField{key: key, raw: raw})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return fields, nil
}

func decodeValue(raw json.RawMessage) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var value interface{}
	if err := dec.Decode(&value); err != nil {
		return nil, err
	}
	return value, nil
}

// firstByte 返回首个非空白字节
func firstByte(data []byte) byte {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}
