/*
 * @module api/controllers/dashboard_controller
 * @description 看板数据控制器，只读提供指标汇总、数据质量、产物文件清单与数据样本
 * @architecture MVC架构 - 控制器层
 * @stateFlow 请求接收 -> 读取处理后的 JSONL 文件 -> 统一响应
 * @rules 文件不存在视为空数据而非错误；样本接口分页，单页最多 200 条
 * @dependencies github.com/go-chi/render
 * @refs service/dataset/jsonl.go, service/pipeline/pipeline.go
 */

package controllers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/render"

	"inkstone-service/service/dataset"
	"inkstone-service/service/models"
	"inkstone-service/service/pipeline"
)

// 分页参数
const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

// DashboardController 看板数据控制器
type DashboardController struct {
	processedDir string
	reportsDir   string
}

// NewDashboardController 创建看板数据控制器实例
func NewDashboardController(processedDir, reportsDir string) *DashboardController {
	return &DashboardController{processedDir: processedDir, reportsDir: reportsDir}
}

// FileInfo 产物文件状态
type FileInfo struct {
	Name       string     `json:"name"`
	Path       string     `json:"path"`
	Exists     bool       `json:"exists"`
	Size       int64      `json:"size"`
	ModifiedAt *time.Time `json:"modified_at,omitempty"`
}

// GetSummary 获取最近一次运行的指标汇总
func (c *DashboardController) GetSummary(w http.ResponseWriter, r *http.Request) {
	rows, err := dataset.ReadJSONL[models.MetricsSummary](filepath.Join(c.processedDir, pipeline.MetricsSummaryFile))
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, InternalErrorResponse("读取指标汇总失败", err))
		return
	}
	var data interface{}
	if len(rows) > 0 {
		data = rows[0]
	}
	render.JSON(w, r, SuccessResponse("获取指标汇总成功", data))
}

// GetQuality 获取数据质量报告
func (c *DashboardController) GetQuality(w http.ResponseWriter, r *http.Request) {
	rows, err := dataset.ReadJSONL[models.QualityReport](filepath.Join(c.processedDir, dataset.DataQualityFile))
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, InternalErrorResponse("读取数据质量报告失败", err))
		return
	}
	var data interface{}
	if len(rows) > 0 {
		data = rows[0]
	}
	render.JSON(w, r, SuccessResponse("获取数据质量报告成功", data))
}

// GetFiles 获取产物文件清单
func (c *DashboardController) GetFiles(w http.ResponseWriter, r *http.Request) {
	files := make([]FileInfo, 0, 12)
	for _, name := range []string{
		dataset.SourceItemsFile, dataset.EvalSetFile, dataset.PoolFile, dataset.DataQualityFile,
		pipeline.TranslationsFile, pipeline.PersonaGoldFile, pipeline.FewShotBankFile,
		pipeline.JudgeScoresFile, pipeline.MetricsTraditionalFile, pipeline.MetricsSummaryFile,
	} {
		files = append(files, statFile(name, filepath.Join(c.processedDir, name)))
	}
	files = append(files, statFile(pipeline.RunManifestFile, filepath.Join(c.reportsDir, pipeline.RunManifestFile)))
	render.JSON(w, r, SuccessResponse("获取文件清单成功", files))
}

// GetEvalSet 分页获取评测集，可按 category 过滤
func (c *DashboardController) GetEvalSet(w http.ResponseWriter, r *http.Request) {
	page, size, err := parsePage(r)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, BadRequestResponse("分页参数错误", err))
		return
	}
	items, err := dataset.ReadItems(filepath.Join(c.processedDir, dataset.EvalSetFile))
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, InternalErrorResponse("读取评测集失败", err))
		return
	}
	if category := r.URL.Query().Get("category"); category != "" {
		filtered := items[:0:0]
		for _, item := range items {
			if string(item.Category()) == category {
				filtered = append(filtered, item)
			}
		}
		items = filtered
	}
	render.JSON(w, r, paginate("获取评测集成功", items, page, size))
}

// GetTranslations 分页获取译文，可按 system_id 过滤
func (c *DashboardController) GetTranslations(w http.ResponseWriter, r *http.Request) {
	page, size, err := parsePage(r)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, BadRequestResponse("分页参数错误", err))
		return
	}
	rows, err := dataset.ReadJSONL[models.TranslationRow](filepath.Join(c.processedDir, pipeline.TranslationsFile))
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, InternalErrorResponse("读取译文失败", err))
		return
	}
	if systemID := r.URL.Query().Get("system_id"); systemID != "" {
		filtered := rows[:0:0]
		for _, row := range rows {
			if row.SystemID == systemID {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}
	render.JSON(w, r, paginate("获取译文成功", rows, page, size))
}

func statFile(name, path string) FileInfo {
	info := FileInfo{Name: name, Path: path}
	if st, err := os.Stat(path); err == nil {
		mod := st.ModTime().UTC()
		info.Exists = true
		info.Size = st.Size()
		info.ModifiedAt = &mod
	}
	return info
}

// parsePage 解析 page/size，page 从 1 开始
func parsePage(r *http.Request) (int, int, error) {
	page, size := 1, DefaultPageSize
	q := r.URL.Query()
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return 0, 0, fmt.Errorf("page 必须为正整数: %q", v)
		}
		page = n
	}
	if v := q.Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return 0, 0, fmt.Errorf("size 必须为正整数: %q", v)
		}
		size = min(n, MaxPageSize)
	}
	return page, size, nil
}

func paginate[T any](msg string, rows []T, page, size int) *PaginatedResponse {
	if rows == nil {
		rows = []T{}
	}
	start := min((page-1)*size, len(rows))
	end := min(start+size, len(rows))
	return &PaginatedResponse{
		Status: 0,
		Msg:    msg,
		Data:   rows[start:end],
		Total:  int64(len(rows)),
		Page:   page,
		Size:   size,
	}
}
