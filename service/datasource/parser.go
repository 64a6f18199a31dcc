/*
 * @module service/datasource/parser
 * @description 目录级解析：发现源文件、按扩展名分派适配器、字段发现并生成语料条目与诊断
 * @architecture 管道模式 - 文件并行解析，按发现顺序合并结果
 * @stateFlow 目录 -> 文件列表(按路径排序) -> 并行解析 -> 有序合并 -> 条目 + 诊断
 * @rules
 *   - 目录不存在视为零贡献，不报错
 *   - 单个文件读取或解析失败只记录在诊断中，不中断构建
 *   - 遍历时无法读取的子目录告警后跳过
 *   - 无可用文本或长度不足的行静默丢弃并计数
 * @dependencies golang.org/x/sync/errgroup, log/slog
 * @refs registry.go, discovery.go, service/models/quality.go
 */

package datasource

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"inkstone-service/service/models"
	"inkstone-service/service/utils"
)

// ParseResult 目录解析结果
type ParseResult struct {
	Items []models.SourceItem
	Meta  models.ParserMeta
}

// Parser 源文件解析器
type Parser struct {
	registry    *Registry
	createdAt   string
	concurrency int
	logger      *slog.Logger
}

// ParserOption 解析器选项
type ParserOption func(*Parser)

// WithRegistry 指定适配器注册中心
func WithRegistry(registry *Registry) ParserOption {
	return func(p *Parser) { p.registry = registry }
}

// WithConcurrency 指定并行解析的文件数
func WithConcurrency(n int) ParserOption {
	return func(p *Parser) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithLogger 指定日志记录器
func WithLogger(logger *slog.Logger) ParserOption {
	return func(p *Parser) { p.logger = logger }
}

// NewParser 创建解析器，createdAt 写入每个条目的 meta.created_at
func NewParser(createdAt string, opts ...ParserOption) *Parser {
	p := &Parser{
		registry:    GetGlobalRegistry(),
		createdAt:   createdAt,
		concurrency: runtime.NumCPU(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Discover 递归查找目录下已注册扩展名的文件，按路径字典序返回
// 无法读取的子目录或文件记录告警后跳过
func Discover(dir string, registry *Registry, logger *slog.Logger) []string {
	if dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	names := discoverFS(os.DirFS(dir), registry, logger)
	files := make([]string, 0, len(names))
	for _, name := range names {
		files = append(files, filepath.Join(dir, filepath.FromSlash(name)))
	}
	sort.Strings(files)
	return files
}

func discoverFS(fsys fs.FS, registry *Registry, logger *slog.Logger) []string {
	var names []string
	_ = fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("跳过无法读取的路径", "path", path, "error", err)
			if d != nil && d.IsDir() && path != "." {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if _, ok := registry.AdapterFor(filepath.Ext(path)); ok {
			names = append(names, path)
		}
		return nil
	})
	return names
}

// OriginLabel 根据文件路径推断来源标签
func OriginLabel(path string) string {
	low := strings.ToLower(path)
	switch {
	case strings.Contains(low, "cmdag"):
		return models.SourceCMDAG
	case strings.Contains(low, "cmc"):
		return models.SourceCMC
	default:
		return models.SourceExternal
	}
}

type fileResult struct {
	items []models.SourceItem
	diag  models.FileDiagnostic
}

// ParseDirectory 解析外部语料目录
func (p *Parser) ParseDirectory(ctx context.Context, dir string) (*ParseResult, error) {
	files := Discover(dir, p.registry, p.logger)

	results := make([]fileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = p.parseFile(gctx, path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("解析外部语料失败: %w", err)
	}

	result := &ParseResult{Meta: models.ParserMeta{Files: make([]models.FileDiagnostic, 0, len(files)), NFiles: len(files)}}
	for _, r := range results {
		result.Items = append(result.Items, r.items...)
		result.Meta.Files = append(result.Meta.Files, r.diag)
	}
	p.logger.Info("外部语料解析完成", "dir", dir, "files", len(files), "rows", len(result.Items))
	return result, nil
}

func (p *Parser) parseFile(ctx context.Context, path string) fileResult {
	ext := strings.ToLower(filepath.Ext(path))
	origin := OriginLabel(path)
	diag := models.FileDiagnostic{File: path, Ext: ext, Source: origin}

	rows, err := p.readRows(ctx, path, ext)
	if err != nil {
		p.logger.Warn("源文件解析失败，已跳过", "file", path, "error", err)
		diag.Error = err.Error()
	}

	base := filepath.Base(path)
	items := make([]models.SourceItem, 0, len(rows))
	for idx, row := range rows {
		text, hint := PickTextAndCategory(row)
		if utf8.RuneCountInString(text) < MinTextChars {
			continue
		}
		localID := base + ":" + strconv.Itoa(idx+1)
		items = append(items, p.newItem(text, ResolveCategory(hint, text), models.SourceMeta{
			Source:     origin,
			LocalID:    localID,
			File:       path,
			LicenseTag: models.LicenseExternalUnknown,
		}))
	}

	diag.ParsedRows = len(rows)
	diag.AcceptedRows = len(items)
	diag.DroppedRows = len(rows) - len(items)
	p.logger.Debug("源文件解析", "file", path, "parsed", diag.ParsedRows, "accepted", diag.AcceptedRows)
	return fileResult{items: items, diag: diag}
}

func (p *Parser) readRows(ctx context.Context, path, ext string) ([]Row, error) {
	adapter, ok := p.registry.AdapterFor(ext)
	if !ok {
		return nil, fmt.Errorf("不支持的扩展名: %s", ext)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取文件失败: %w", err)
	}
	return adapter.Parse(ctx, utils.DecodeText(data))
}

// ParseBooks 解析书籍目录下（不递归）的 .txt 文件，类别由关键词分类器推断
func (p *Parser) ParseBooks(ctx context.Context, dir string) ([]models.SourceItem, error) {
	if dir == "" {
		return nil, nil
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return nil, fmt.Errorf("查找书籍文件失败: %w", err)
	}
	sort.Strings(files)

	var items []models.SourceItem
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			p.logger.Warn("书籍文件读取失败，已跳过", "file", path, "error", err)
			continue
		}
		name := filepath.Base(path)
		for idx, text := range SplitSentences(utils.DecodeText(data)) {
			items = append(items, p.newItem(text, InferCategory(text), models.SourceMeta{
				Source:     models.SourceBooks,
				LocalID:    name + ":" + strconv.Itoa(idx+1),
				File:       path,
				Doc:        name,
				LicenseTag: models.LicenseInternalBooks,
			}))
		}
	}
	p.logger.Info("书籍语料解析完成", "dir", dir, "files", len(files), "rows", len(items))
	return items, nil
}

func (p *Parser) newItem(text string, category models.Category, source models.SourceMeta) models.SourceItem {
	return models.SourceItem{
		ID:         utils.StableID(text, source.Source, source.LocalID),
		Text:       text,
		SourceMeta: source,
		CategoryMeta: models.CategoryMeta{
			MetaphorType: category,
			CulturalLoad: models.CulturalLoadUnknown,
		},
		Meta: models.ItemMeta{
			LenChar:   utf8.RuneCountInString(text),
			CreatedAt: p.createdAt,
		},
	}
}
