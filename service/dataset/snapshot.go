/*
 * @module service/dataset/snapshot
 * @description 语料快照落盘：四个快照文件要么全部写入，要么一个都不写
 * @architecture 两阶段提交 - 校验并暂存全部文件后统一重命名
 * @stateFlow Snapshot -> 编码 -> JSON Schema 校验 -> 临时文件 -> 重命名
 * @rules
 *   - 任一记录校验失败则不写任何文件
 *   - 暂存阶段失败时清理已写出的临时文件
 * @dependencies github.com/kaptinlin/jsonschema
 * @refs jsonl.go, schemas/*.schema.json
 */

package dataset

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/kaptinlin/jsonschema"

	"inkstone-service/service/models"
)

// 快照文件名
const (
	SourceItemsFile = "source_items.jsonl"
	EvalSetFile     = "eval_set.jsonl"
	PoolFile        = "pool.jsonl"
	DataQualityFile = "data_quality.jsonl"
)

//go:embed schemas/source_item.schema.json
var sourceItemSchemaJSON []byte

//go:embed schemas/quality_report.schema.json
var qualityReportSchemaJSON []byte

var (
	sourceItemSchema    = sync.OnceValues(func() (*jsonschema.Schema, error) { return compileSchema(sourceItemSchemaJSON) })
	qualityReportSchema = sync.OnceValues(func() (*jsonschema.Schema, error) { return compileSchema(qualityReportSchemaJSON) })
)

func compileSchema(data []byte) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile(data)
	if err != nil {
		return nil, fmt.Errorf("编译校验规则失败: %w", err)
	}
	return schema, nil
}

// Snapshot 一次构建的完整快照
type Snapshot struct {
	Items   []models.SourceItem
	EvalSet []models.SourceItem
	Pool    []models.SourceItem
	Report  models.QualityReport
}

type stagedFile struct {
	name    string
	content []byte
	schema  func() (*jsonschema.Schema, error)
}

// WriteSnapshot 校验后写入快照，返回各文件路径
func WriteSnapshot(dir string, snap Snapshot) (map[string]string, error) {
	files := make([]stagedFile, 0, 4)
	for _, spec := range []struct {
		name string
		rows []models.SourceItem
	}{
		{SourceItemsFile, snap.Items},
		{EvalSetFile, snap.EvalSet},
		{PoolFile, snap.Pool},
	} {
		content, err := EncodeJSONL(spec.rows)
		if err != nil {
			return nil, fmt.Errorf("编码 %s 失败: %w", spec.name, err)
		}
		files = append(files, stagedFile{name: spec.name, content: content, schema: sourceItemSchema})
	}
	report, err := EncodeJSONL([]models.QualityReport{snap.Report})
	if err != nil {
		return nil, fmt.Errorf("编码质量报告失败: %w", err)
	}
	files = append(files, stagedFile{name: DataQualityFile, content: report, schema: qualityReportSchema})

	for _, f := range files {
		if err := validateJSONL(f.schema, f.content); err != nil {
			return nil, fmt.Errorf("%s 校验失败: %w", f.name, err)
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建快照目录失败: %w", err)
	}
	temps := make([]string, 0, len(files))
	for _, f := range files {
		tempPath, err := stageFile(filepath.Join(dir, f.name), f.content, 0o644)
		if err != nil {
			for _, t := range temps {
				_ = os.Remove(t)
			}
			return nil, err
		}
		temps = append(temps, tempPath)
	}

	paths := make(map[string]string, len(files))
	for i, f := range files {
		target := filepath.Join(dir, f.name)
		if err := commitFile(temps[i], target); err != nil {
			for _, t := range temps[i+1:] {
				_ = os.Remove(t)
			}
			return nil, err
		}
		paths[f.name] = target
	}
	return paths, nil
}

func validateJSONL(load func() (*jsonschema.Schema, error), data []byte) error {
	schema, err := load()
	if err != nil {
		return err
	}
	for i, line := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		result := schema.ValidateJSON(line)
		if !result.IsValid() {
			return fmt.Errorf("第 %d 行: %v", i+1, result.Errors)
		}
	}
	return nil
}
