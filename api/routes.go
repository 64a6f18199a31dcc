/*
 * @module api/routes
 * @description API路由配置模块，负责初始化看板数据接口、运行触发与指标端点
 * @architecture RESTful API架构
 * @stateFlow 无状态HTTP请求处理
 * @rules 统一错误处理和响应格式；看板接口只读
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/cors, github.com/go-chi/render
 * @refs api/controllers
 */

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"

	"inkstone-service/api/controllers"
)

// Dependencies 路由依赖
type Dependencies struct {
	ProcessedDir   string
	ReportsDir     string
	RunController  *controllers.RunController
	MetricsHandler http.Handler
}

// InitRoute 初始化所有API路由
func InitRoute(r *chi.Mux, deps Dependencies) {
	// 基础中间件
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	// CORS配置
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		// 健康检查
		healthController := controllers.NewHealthController(deps.ProcessedDir)
		r.Get("/health", healthController.Health)
		r.Get("/ready", healthController.Ready)

		r.Route("/api", func(r chi.Router) {
			dashboardController := controllers.NewDashboardController(deps.ProcessedDir, deps.ReportsDir)
			r.Get("/summary", dashboardController.GetSummary)
			r.Get("/quality", dashboardController.GetQuality)
			r.Get("/files", dashboardController.GetFiles)
			r.Get("/eval-set", dashboardController.GetEvalSet)
			r.Get("/translations", dashboardController.GetTranslations)

			if deps.RunController != nil {
				r.Post("/runs", deps.RunController.TriggerRun)
			}
		})
	})
}
