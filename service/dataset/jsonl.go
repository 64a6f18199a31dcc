package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"inkstone-service/service/models"
)

// EncodeJSONL 将记录编码为行分隔 JSON，不转义 HTML 字符
func EncodeJSONL[T any](rows []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i, row := range rows {
		if err := enc.Encode(row); err != nil {
			return nil, fmt.Errorf("编码第 %d 行失败: %w", i+1, err)
		}
	}
	return buf.Bytes(), nil
}

// WriteJSONL 原子写入行分隔 JSON 文件
func WriteJSONL[T any](path string, rows []T) error {
	data, err := EncodeJSONL(rows)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data, 0o644)
}

// AppendJSONL 追加一行记录
func AppendJSONL(path string, row any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}
	data, err := EncodeJSONL([]any{row})
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("打开文件失败: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("追加写入失败: %w", err)
	}
	return f.Close()
}

// ReadJSONL 读取行分隔 JSON 文件，文件不存在时返回空结果
func ReadJSONL[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("打开文件失败: %w", err)
	}
	defer f.Close()

	var rows []T
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		b := bytes.TrimSpace(scanner.Bytes())
		if len(b) == 0 {
			continue
		}
		var row T
		if err := json.Unmarshal(b, &row); err != nil {
			return nil, fmt.Errorf("%s 第 %d 行解析失败: %w", path, line, err)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("读取文件失败: %w", err)
	}
	return rows, nil
}

// ReadItems 读取语料条目文件
func ReadItems(path string) ([]models.SourceItem, error) {
	return ReadJSONL[models.SourceItem](path)
}

// WriteFileAtomic 先写临时文件并落盘，再重命名到目标路径
func WriteFileAtomic(path string, content []byte, mode os.FileMode) error {
	tempPath, err := stageFile(path, content, mode)
	if err != nil {
		return err
	}
	return commitFile(tempPath, path)
}

func stageFile(path string, content []byte, mode os.FileMode) (string, error) {
	parent := filepath.Dir(path)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return "", fmt.Errorf("创建目录失败: %w", err)
	}
	tempFile, err := os.CreateTemp(parent, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("创建临时文件失败: %w", err)
	}
	tempPath := tempFile.Name()

	fail := func(step string, err error) (string, error) {
		_ = tempFile.Close()
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("%s失败: %w", step, err)
	}
	if _, err := tempFile.Write(content); err != nil {
		return fail("写入临时文件", err)
	}
	if err := tempFile.Sync(); err != nil {
		return fail("同步临时文件", err)
	}
	if err := tempFile.Chmod(mode); err != nil {
		return fail("设置文件权限", err)
	}
	if err := tempFile.Close(); err != nil {
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("关闭临时文件失败: %w", err)
	}
	return tempPath, nil
}

func commitFile(tempPath, path string) error {
	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS != "windows" {
			_ = os.Remove(tempPath)
			return fmt.Errorf("重命名临时文件失败: %w", err)
		}
		if removeErr := os.Remove(path); removeErr != nil && !errors.Is(removeErr, fs.ErrNotExist) {
			_ = os.Remove(tempPath)
			return fmt.Errorf("删除目标文件失败: %w", removeErr)
		}
		if err := os.Rename(tempPath, path); err != nil {
			_ = os.Remove(tempPath)
			return fmt.Errorf("重命名临时文件失败: %w", err)
		}
	}
	if dir, err := os.Open(filepath.Dir(path)); err == nil {
		_ = dir.Sync()
		_ = dir.Close()
	}
	return nil
}
