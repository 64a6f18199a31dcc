/*
 * @module api/controllers/health_controller
 * @description 健康检查控制器，提供服务存活与数据就绪状态
 * @architecture MVC架构 - 控制器层
 * @stateFlow HTTP请求处理流程
 * @rules 存活检查恒为 ok；就绪检查要求评测集快照已存在
 * @dependencies net/http, github.com/go-chi/render
 * @refs dashboard_controller.go
 */

package controllers

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/render"

	"inkstone-service/service/dataset"
)

// ServiceName 服务名称
const ServiceName = "inkstone-service"

// Version 服务版本，构建时可通过 -ldflags 覆盖
var Version = "dev"

// HealthController 健康检查控制器
type HealthController struct {
	processedDir string
}

// NewHealthController 创建健康检查控制器实例
func NewHealthController(processedDir string) *HealthController {
	return &HealthController{processedDir: processedDir}
}

// HealthResponse 健康检查响应结构
type HealthResponse struct {
	Status    string    `json:"status" example:"ok"`
	Timestamp time.Time `json:"timestamp" example:"2024-01-01T00:00:00Z"`
	Version   string    `json:"version" example:"dev"`
	Service   string    `json:"service" example:"inkstone-service"`
}

// Health 健康检查
func (c *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   Version,
		Service:   ServiceName,
	})
}

// Ready 就绪检查，评测集快照不存在时返回 503
func (c *HealthController) Ready(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	if _, err := os.Stat(filepath.Join(c.processedDir, dataset.EvalSetFile)); err != nil {
		status = "not_ready"
		render.Status(r, http.StatusServiceUnavailable)
	}
	render.JSON(w, r, HealthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Version:   Version,
		Service:   ServiceName,
	})
}
